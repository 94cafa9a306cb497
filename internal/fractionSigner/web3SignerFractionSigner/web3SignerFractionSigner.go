package web3SignerFractionSigner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/artfi-labs/artfi-whitelist-go/internal/fractionSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/clients/web3signer"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// Web3SignerFractionSigner delegates EIP-712 signing to a Web3Signer instance
// holding the whitelister key.
type Web3SignerFractionSigner struct {
	client  web3signer.IWeb3Signer
	account common.Address
	logger  *zap.Logger

	checkOnce sync.Once
	checkErr  error
}

var _ fractionSigner.IFractionSigner = (*Web3SignerFractionSigner)(nil)

func NewWeb3SignerFractionSigner(client web3signer.IWeb3Signer, account common.Address, logger *zap.Logger) *Web3SignerFractionSigner {
	return &Web3SignerFractionSigner{
		client:  client,
		account: account,
		logger:  logger,
	}
}

func (w *Web3SignerFractionSigner) KeyID() string {
	return fmt.Sprintf("web3signer-%s", w.account.Hex())
}

// Address confirms once that the signer serves the account.
func (w *Web3SignerFractionSigner) Address(ctx context.Context) (common.Address, error) {
	w.checkOnce.Do(func() {
		accounts, err := w.client.EthAccounts(ctx)
		if err != nil {
			w.checkErr = fmt.Errorf("failed to list web3signer accounts: %w", err)
			return
		}
		for _, a := range accounts {
			if strings.EqualFold(a, w.account.Hex()) {
				return
			}
		}
		w.checkErr = fmt.Errorf("web3signer does not hold a key for %s", w.account.Hex())
	})
	if w.checkErr != nil {
		return common.Address{}, w.checkErr
	}
	return w.account, nil
}

func (w *Web3SignerFractionSigner) SignFraction(ctx context.Context, domain eip712.Domain, fraction *types.Fraction) ([]byte, error) {
	if _, err := w.Address(ctx); err != nil {
		return nil, err
	}
	td, err := eip712.TypedData(domain, fraction)
	if err != nil {
		return nil, err
	}

	sigHex, err := w.client.EthSignTypedData(ctx, w.account.Hex(), td)
	if err != nil {
		return nil, fmt.Errorf("web3signer failed to sign fraction: %w", err)
	}
	raw, err := hexutil.Decode(sigHex)
	if err != nil {
		return nil, fmt.Errorf("web3signer returned an invalid signature: %w", err)
	}
	sig, err := eip712.NormalizeSignature(raw)
	if err != nil {
		return nil, err
	}
	sig[64] += 27

	recovered, err := eip712.RecoverFractionSigner(domain, fraction, sig)
	if err != nil {
		return nil, err
	}
	if recovered != w.account {
		return nil, fmt.Errorf("web3signer signature recovers to %s, expected %s", recovered.Hex(), w.account.Hex())
	}

	w.logger.Sugar().Debugw("Signed fraction with web3signer",
		"account", w.account.Hex(),
		"wallet", fraction.WalletAddress.Hex(),
	)
	return sig, nil
}
