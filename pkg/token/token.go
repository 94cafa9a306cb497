package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

var (
	ErrInsufficientBalance   = errors.New("ERC20: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("ERC20: insufficient allowance")
	ErrOverflow              = errors.New("ERC20: arithmetic overflow")
	ErrZeroAddress           = errors.New("ERC20: zero address")
	ErrInvalidAmount         = errors.New("ERC20: invalid amount")
	ErrUnknownAsset          = errors.New("unknown asset")
	ErrReservedAddress       = errors.New("address reserved for another contract")
)

// IFungibleAsset is the subset of ERC-20 the whitelist gate depends on.
type IFungibleAsset interface {
	Address() common.Address
	BalanceOf(account common.Address) *big.Int
	Allowance(owner, spender common.Address) *big.Int
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *big.Int) error
}

// IAssetResolver looks up a deployed asset by address.
type IAssetResolver interface {
	Resolve(asset common.Address) (IFungibleAsset, bool)
}

// IAddressReserver keeps assets from being placed at an address that belongs
// to another contract, such as the gate holding custody.
type IAddressReserver interface {
	Reserve(addr common.Address, owner string) error
}

// Token is an in-process ERC-20 ledger with the MockToken surface: anyone may mint.
// All amounts are uint256; conversions from *big.Int reject negatives and values
// wider than 256 bits.
type Token struct {
	mu sync.RWMutex

	address  common.Address
	name     string
	symbol   string
	decimals uint8

	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int

	logger *zap.Logger
}

func NewToken(address common.Address, name string, symbol string, logger *zap.Logger) *Token {
	return &Token{
		address:     address,
		name:        name,
		symbol:      symbol,
		decimals:    18,
		totalSupply: uint256.NewInt(0),
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
		logger:      logger,
	}
}

func (t *Token) Address() common.Address { return t.address }
func (t *Token) Name() string            { return t.name }
func (t *Token) Symbol() string          { return t.symbol }
func (t *Token) Decimals() uint8         { return t.decimals }

func toUint256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrOverflow
	}
	return v, nil
}

func (t *Token) balanceLocked(account common.Address) *uint256.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return uint256.NewInt(0)
}

func (t *Token) allowanceLocked(owner, spender common.Address) *uint256.Int {
	if m, ok := t.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return uint256.NewInt(0)
}

// Mint credits amount to `to` and grows the total supply.
func (t *Token) Mint(to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	v, err := toUint256(amount)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	supply, overflow := new(uint256.Int).AddOverflow(t.totalSupply, v)
	if overflow {
		return ErrOverflow
	}
	// balance <= totalSupply, so this cannot overflow once the supply add succeeded
	t.balances[to] = new(uint256.Int).Add(t.balanceLocked(to), v)
	t.totalSupply = supply

	t.logger.Sugar().Debugw("Minted tokens", "token", t.symbol, "to", to.Hex(), "amount", v.Dec())
	return nil
}

// Approve sets the allowance of spender over owner's tokens.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	v, err := toUint256(amount)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.allowances[owner]; !ok {
		t.allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	t.allowances[owner][spender] = v

	t.logger.Sugar().Debugw("Approved spender", "token", t.symbol, "owner", owner.Hex(), "spender", spender.Hex(), "amount", v.Dec())
	return nil
}

// Transfer moves amount from `from` to `to`.
func (t *Token) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := toUint256(amount)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.transferLocked(from, to, v)
}

// TransferFrom moves amount from `from` to `to` on behalf of spender, consuming allowance.
func (t *Token) TransferFrom(ctx context.Context, spender, from, to common.Address, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := toUint256(amount)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := t.allowanceLocked(from, spender)
	if allowance.Lt(v) {
		return fmt.Errorf("%w: allowance %s, requested %s", ErrInsufficientAllowance, allowance.Dec(), v.Dec())
	}
	if err := t.transferLocked(from, to, v); err != nil {
		return err
	}
	t.allowances[from][spender] = new(uint256.Int).Sub(allowance, v)
	return nil
}

func (t *Token) transferLocked(from, to common.Address, v *uint256.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	fromBalance := t.balanceLocked(from)
	if fromBalance.Lt(v) {
		return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance, fromBalance.Dec(), v.Dec())
	}

	t.balances[from] = new(uint256.Int).Sub(fromBalance, v)
	t.balances[to] = new(uint256.Int).Add(t.balanceLocked(to), v)

	t.logger.Sugar().Debugw("Transferred tokens", "token", t.symbol, "from", from.Hex(), "to", to.Hex(), "amount", v.Dec())
	return nil
}

func (t *Token) BalanceOf(account common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balanceLocked(account).ToBig()
}

func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowanceLocked(owner, spender).ToBig()
}

func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalSupply.ToBig()
}
