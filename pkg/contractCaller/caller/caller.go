package caller

import (
	"context"
	"fmt"
	"math/big"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/contractCaller"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/transactionSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

type ContractCaller struct {
	backend     bind.ContractBackend
	signer      transactionSigner.ITransactionSigner
	gateAddress common.Address
	gate        *bind.BoundContract
	logger      *zap.Logger
}

var _ contractCaller.IContractCaller = (*ContractCaller)(nil)

// NewContractCaller binds to the gate at gateAddress. signer may be nil for a
// read-only caller; write methods then fail.
func NewContractCaller(
	backend bind.ContractBackend,
	signer transactionSigner.ITransactionSigner,
	gateAddress common.Address,
	logger *zap.Logger,
) (*ContractCaller, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if gateAddress == (common.Address{}) {
		return nil, fmt.Errorf("gate address is required")
	}
	return &ContractCaller{
		backend:     backend,
		signer:      signer,
		gateAddress: gateAddress,
		gate:        bind.NewBoundContract(gateAddress, whitelistABI, backend, backend, backend),
		logger:      logger,
	}, nil
}

func (cc *ContractCaller) GateAddress() common.Address {
	return cc.gateAddress
}

func (cc *ContractCaller) token(asset common.Address) *bind.BoundContract {
	return bind.NewBoundContract(asset, tokenABI, cc.backend, cc.backend, cc.backend)
}

func (cc *ContractCaller) call(ctx context.Context, contract *bind.BoundContract, method string, params ...interface{}) (interface{}, error) {
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s output length %d", method, len(out))
	}
	return out[0], nil
}

func (cc *ContractCaller) callAddress(ctx context.Context, contract *bind.BoundContract, method string, params ...interface{}) (common.Address, error) {
	res, err := cc.call(ctx, contract, method, params...)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := res.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s output type %T", method, res)
	}
	return addr, nil
}

func (cc *ContractCaller) callUint(ctx context.Context, contract *bind.BoundContract, method string, params ...interface{}) (*big.Int, error) {
	res, err := cc.call(ctx, contract, method, params...)
	if err != nil {
		return nil, err
	}
	v, ok := res.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", method, res)
	}
	return v, nil
}

func (cc *ContractCaller) Whitelister(ctx context.Context) (common.Address, error) {
	return cc.callAddress(ctx, cc.gate, "whitelister")
}

func (cc *ContractCaller) Verify(ctx context.Context, wallet common.Address, price *big.Int, fractionInfo string, signature []byte) (common.Address, error) {
	return cc.callAddress(ctx, cc.gate, "verify1", wallet, price, fractionInfo, signature)
}

func (cc *ContractCaller) DoWhitelist(
	ctx context.Context,
	asset common.Address,
	amount *big.Int,
	fractionID types.FractionID,
	fractionInfo string,
	signature []byte,
) (*ethereumTypes.Receipt, error) {
	cc.logger.Sugar().Infow("Whitelisting fraction",
		"asset", asset.Hex(),
		"amount", amount.String(),
		"fractionId", fractionID.Hex(),
	)
	return cc.transact(ctx, cc.gate, "DoWhitelist", "doWhitelist", asset, amount, [32]byte(fractionID), fractionInfo, signature)
}

func (cc *ContractCaller) UpdateToken(ctx context.Context, asset common.Address, accepted bool) (*ethereumTypes.Receipt, error) {
	cc.logger.Sugar().Infow("Updating accepted token",
		"asset", asset.Hex(),
		"accepted", accepted,
	)
	return cc.transact(ctx, cc.gate, "UpdateToken", "updateToken", asset, accepted)
}

func (cc *ContractCaller) Approve(ctx context.Context, asset common.Address, spender common.Address, amount *big.Int) (*ethereumTypes.Receipt, error) {
	return cc.transact(ctx, cc.token(asset), "Approve", "approve", spender, amount)
}

func (cc *ContractCaller) Mint(ctx context.Context, asset common.Address, to common.Address, amount *big.Int) (*ethereumTypes.Receipt, error) {
	return cc.transact(ctx, cc.token(asset), "Mint", "mint", to, amount)
}

func (cc *ContractCaller) BalanceOf(ctx context.Context, asset common.Address, account common.Address) (*big.Int, error) {
	return cc.callUint(ctx, cc.token(asset), "balanceOf", account)
}

func (cc *ContractCaller) Allowance(ctx context.Context, asset common.Address, owner common.Address, spender common.Address) (*big.Int, error) {
	return cc.callUint(ctx, cc.token(asset), "allowance", owner, spender)
}
