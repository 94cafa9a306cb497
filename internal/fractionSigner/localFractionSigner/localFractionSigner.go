package localFractionSigner

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/artfi-labs/artfi-whitelist-go/internal/fractionSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalFractionSigner holds the whitelister key in process memory.
type LocalFractionSigner struct {
	logger     *zap.Logger
	keyID      string
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

var _ fractionSigner.IFractionSigner = (*LocalFractionSigner)(nil)

func NewLocalFractionSigner(key *ecdsa.PrivateKey, logger *zap.Logger) *LocalFractionSigner {
	return &LocalFractionSigner{
		logger:     logger,
		keyID:      fmt.Sprintf("local-key-%s", uuid.New().String()),
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}
}

func NewLocalFractionSignerFromHex(privateKeyHex string, logger *zap.Logger) (*LocalFractionSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("error loading private key: %w", err)
	}
	return NewLocalFractionSigner(key, logger), nil
}

// GenerateLocalFractionSigner creates a signer around a fresh secp256k1 key.
func GenerateLocalFractionSigner(logger *zap.Logger) (*LocalFractionSigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA key: %w", err)
	}
	s := NewLocalFractionSigner(key, logger)
	logger.Info("Generated local whitelister key",
		zap.String("keyId", s.keyID),
		zap.String("address", s.address.Hex()),
	)
	return s, nil
}

func (s *LocalFractionSigner) KeyID() string {
	return s.keyID
}

func (s *LocalFractionSigner) Address(_ context.Context) (common.Address, error) {
	return s.address, nil
}

func (s *LocalFractionSigner) SignDigest(_ context.Context, digest common.Hash) ([]byte, error) {
	return eip712.SignDigest(s.privateKey, digest)
}

func (s *LocalFractionSigner) SignFraction(ctx context.Context, domain eip712.Domain, fraction *types.Fraction) ([]byte, error) {
	return fractionSigner.SignFractionWith(ctx, s, domain, fraction)
}
