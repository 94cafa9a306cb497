package contractCaller

import (
	"context"
	"math/big"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
)

// IContractCaller talks to a deployed ArtfiWhitelist contract and the ERC-20
// tokens it moves. Reads are eth_calls; writes block until the receipt is mined.
type IContractCaller interface {
	GateAddress() common.Address

	Whitelister(ctx context.Context) (common.Address, error)

	// Verify returns the address recovered by the contract's verify1 view.
	Verify(ctx context.Context, wallet common.Address, price *big.Int, fractionInfo string, signature []byte) (common.Address, error)

	DoWhitelist(
		ctx context.Context,
		asset common.Address,
		amount *big.Int,
		fractionID types.FractionID,
		fractionInfo string,
		signature []byte,
	) (*ethereumTypes.Receipt, error)

	UpdateToken(ctx context.Context, asset common.Address, accepted bool) (*ethereumTypes.Receipt, error)

	// Token helpers
	Approve(ctx context.Context, asset common.Address, spender common.Address, amount *big.Int) (*ethereumTypes.Receipt, error)
	Mint(ctx context.Context, asset common.Address, to common.Address, amount *big.Int) (*ethereumTypes.Receipt, error)
	BalanceOf(ctx context.Context, asset common.Address, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, asset common.Address, owner common.Address, spender common.Address) (*big.Int, error)
}
