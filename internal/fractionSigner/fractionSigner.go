package fractionSigner

import (
	"context"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// IFractionSigner produces whitelister signatures over Fraction messages.
type IFractionSigner interface {
	// KeyID identifies the key in its backing store
	KeyID() string

	// Address returns the whitelister identity the signatures recover to
	Address(ctx context.Context) (common.Address, error)

	// SignFraction signs the EIP-712 digest of fraction under domain, returning
	// r || s || v with v in {27, 28} and low s
	SignFraction(ctx context.Context, domain eip712.Domain, fraction *types.Fraction) ([]byte, error)
}

// IDigestSigner is implemented by signers that can sign an arbitrary 32-byte digest.
type IDigestSigner interface {
	SignDigest(ctx context.Context, digest common.Hash) ([]byte, error)
}

// SignFractionWith hashes fraction and signs the digest with signer.
func SignFractionWith(ctx context.Context, signer IDigestSigner, domain eip712.Domain, fraction *types.Fraction) ([]byte, error) {
	digest, err := eip712.HashFraction(domain, fraction)
	if err != nil {
		return nil, err
	}
	return signer.SignDigest(ctx, digest)
}
