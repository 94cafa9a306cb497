package token

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Book holds every token deployed in this process, keyed by address.
type Book struct {
	mu     sync.RWMutex
	tokens map[common.Address]*Token
	// addresses of non-token contracts, mapped to what lives there
	reserved map[common.Address]string
	nonce    uint64
	// deployer seeds derived token addresses, like CREATE from a fixed account
	deployer common.Address
	logger   *zap.Logger
}

func NewBook(deployer common.Address, logger *zap.Logger) *Book {
	return &Book{
		tokens:   make(map[common.Address]*Token),
		reserved: make(map[common.Address]string),
		deployer: deployer,
		logger:   logger,
	}
}

var _ IAddressReserver = (*Book)(nil)

// Reserve marks addr as taken by owner. Deploy skips reserved addresses and
// Register refuses them. Reserving an address twice is allowed.
func (b *Book) Reserve(addr common.Address, owner string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.tokens[addr]; exists {
		return fmt.Errorf("%w: %s already holds a token, cannot reserve it for %s", ErrReservedAddress, addr.Hex(), owner)
	}
	b.reserved[addr] = owner
	return nil
}

// Deploy creates a new token at the next CREATE address of the book's deployer.
// Nonces whose address is reserved are treated as spent by that contract.
func (b *Book) Deploy(name, symbol string) *Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	addr := crypto.CreateAddress(b.deployer, b.nonce)
	b.nonce++
	for {
		if _, taken := b.reserved[addr]; !taken {
			break
		}
		addr = crypto.CreateAddress(b.deployer, b.nonce)
		b.nonce++
	}

	t := NewToken(addr, name, symbol, b.logger)
	b.tokens[addr] = t

	b.logger.Sugar().Infow("Deployed token", "name", name, "symbol", symbol, "address", addr.Hex())
	return t
}

// Register adds an externally constructed token.
func (b *Book) Register(t *Token) error {
	if t == nil {
		return fmt.Errorf("token is nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.tokens[t.Address()]; exists {
		return fmt.Errorf("token already registered at %s", t.Address().Hex())
	}
	if owner, taken := b.reserved[t.Address()]; taken {
		return fmt.Errorf("%w: %s belongs to %s", ErrReservedAddress, t.Address().Hex(), owner)
	}
	b.tokens[t.Address()] = t
	return nil
}

// Get returns the concrete token at addr.
func (b *Book) Get(addr common.Address) (*Token, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, addr.Hex())
	}
	return t, nil
}

// Resolve implements IAssetResolver.
func (b *Book) Resolve(addr common.Address) (IFungibleAsset, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.tokens[addr]
	if !ok {
		return nil, false
	}
	return t, true
}

// List returns all tokens ordered by address.
func (b *Book) List() []*Token {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*Token, 0, len(b.tokens))
	for _, t := range b.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address().Cmp(out[j].Address()) < 0
	})
	return out
}
