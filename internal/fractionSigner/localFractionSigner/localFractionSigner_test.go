package localFractionSigner

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/logger"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LocalFractionSigner(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: true})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("Should load the hardhat deployer key", func(t *testing.T) {
		s, err := NewLocalFractionSignerFromHex("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", l)
		require.NoError(t, err)
		addr, err := s.Address(ctx)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), addr)
		assert.True(t, strings.HasPrefix(s.KeyID(), "local-key-"))
	})

	t.Run("Should reject a malformed key", func(t *testing.T) {
		_, err := NewLocalFractionSignerFromHex("0x1234", l)
		require.Error(t, err)
	})

	t.Run("Should sign fractions that recover to the signer", func(t *testing.T) {
		s, err := GenerateLocalFractionSigner(l)
		require.NoError(t, err)

		domain := eip712.NewDomain(31337, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))
		fraction := &types.Fraction{
			WalletAddress: common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
			FractionInfo:  "1,3,5",
			Price:         big.NewInt(100),
		}
		sig, err := s.SignFraction(ctx, domain, fraction)
		require.NoError(t, err)
		require.Len(t, sig, eip712.SignatureLength)
		assert.True(t, sig[64] == 27 || sig[64] == 28)

		signer, err := eip712.RecoverFractionSigner(domain, fraction, sig)
		require.NoError(t, err)
		addr, _ := s.Address(ctx)
		assert.Equal(t, addr, signer)
	})

	t.Run("Key ids are unique", func(t *testing.T) {
		a, err := GenerateLocalFractionSigner(l)
		require.NoError(t, err)
		b, err := GenerateLocalFractionSigner(l)
		require.NoError(t, err)
		assert.NotEqual(t, a.KeyID(), b.KeyID())
	})
}
