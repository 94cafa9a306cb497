package caller

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
)

func (cc *ContractCaller) buildTransactionOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if cc.signer == nil {
		return nil, fmt.Errorf("contract caller has no transaction signer")
	}
	return cc.signer.GetTransactOpts(ctx)
}

// transact packs method on contract without sending, then signs, sends and waits
// for a successful receipt.
func (cc *ContractCaller) transact(ctx context.Context, contract *bind.BoundContract, operation string, method string, params ...interface{}) (*ethereumTypes.Receipt, error) {
	txOpts, err := cc.buildTransactionOpts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction options: %w", err)
	}
	tx, err := contract.Transact(txOpts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s transaction: %w", operation, err)
	}
	return cc.signAndSendTransaction(ctx, tx, operation)
}

func (cc *ContractCaller) signAndSendTransaction(ctx context.Context, tx *ethereumTypes.Transaction, operation string) (*ethereumTypes.Receipt, error) {
	cc.logger.Sugar().Infow("Signing and sending transaction",
		"operation", operation,
		"from", cc.signer.GetFromAddress().Hex(),
		"to", tx.To().Hex(),
	)

	return cc.signer.SignAndSendTransaction(ctx, tx)
}
