package inMemoryCallSigner

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/callSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

type InMemoryCallSigner struct {
	logger     *zap.Logger
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

var _ callSigner.ICallSigner = (*InMemoryCallSigner)(nil)

func NewInMemoryCallSignerFromHex(privateKeyHex string, logger *zap.Logger) (*InMemoryCallSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("error loading private key: %w", err)
	}
	return NewInMemoryCallSigner(key, logger), nil
}

func NewInMemoryCallSigner(key *ecdsa.PrivateKey, logger *zap.Logger) *InMemoryCallSigner {
	return &InMemoryCallSigner{
		logger:     logger,
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (s *InMemoryCallSigner) Address() common.Address {
	return s.address
}

// SignMessage signs keccak256(data).
func (s *InMemoryCallSigner) SignMessage(data []byte) ([]byte, error) {
	return eip712.SignDigest(s.privateKey, crypto.Keccak256Hash(data))
}

func (s *InMemoryCallSigner) CreateSignedCall(payload []byte) (*callSigner.SignedCall, error) {
	sig, err := s.SignMessage(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign call: %w", err)
	}
	return &callSigner.SignedCall{
		Payload:   payload,
		Hash:      crypto.Keccak256Hash(payload),
		Signature: sig,
		From:      s.address,
	}, nil
}
