package eip712

import (
	"math/big"
	"testing"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testGate = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testBob  = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func parseUnits(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func testFraction() *types.Fraction {
	return &types.Fraction{
		WalletAddress: testBob,
		FractionInfo:  "1,3,5",
		Price:         parseUnits(100),
	}
}

// manualDigest encodes the Fraction struct by hand, the way the contract does.
func manualDigest(chainID uint64, gate common.Address, f *types.Fraction) common.Hash {
	domainTypeHash := crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	fractionTypeHash := crypto.Keccak256([]byte("Fraction(address walletAddress,string fractionInfo,uint256 price)"))

	domainSeparator := crypto.Keccak256(
		domainTypeHash,
		crypto.Keccak256([]byte(DomainName)),
		crypto.Keccak256([]byte(DomainVersion)),
		common.LeftPadBytes(new(big.Int).SetUint64(chainID).Bytes(), 32),
		common.LeftPadBytes(gate.Bytes(), 32),
	)

	structHash := crypto.Keccak256(
		fractionTypeHash,
		common.LeftPadBytes(f.WalletAddress.Bytes(), 32),
		crypto.Keccak256([]byte(f.FractionInfo)),
		common.LeftPadBytes(f.Price.Bytes(), 32),
	)

	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domainSeparator, structHash)
}

func TestHashFraction_MatchesManualEncoding(t *testing.T) {
	domain := NewDomain(31337, testGate)
	f := testFraction()

	digest, err := HashFraction(domain, f)
	require.NoError(t, err)
	assert.Equal(t, manualDigest(31337, testGate, f), digest)

	sep, err := domain.Separator()
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, sep)
}

func TestHashFraction_DomainSeparation(t *testing.T) {
	f := testFraction()

	base, err := HashFraction(NewDomain(31337, testGate), f)
	require.NoError(t, err)

	otherChain, err := HashFraction(NewDomain(137, testGate), f)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherChain)

	otherGate, err := HashFraction(NewDomain(31337, common.HexToAddress("0x1")), f)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherGate)
}

func TestHashFraction_InvalidInput(t *testing.T) {
	domain := NewDomain(31337, testGate)

	_, err := HashFraction(domain, nil)
	require.Error(t, err)

	_, err = HashFraction(domain, &types.Fraction{WalletAddress: testBob})
	require.Error(t, err)

	_, err = HashFraction(domain, &types.Fraction{WalletAddress: testBob, Price: big.NewInt(-1)})
	require.Error(t, err)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = HashFraction(domain, &types.Fraction{WalletAddress: testBob, Price: tooBig})
	require.Error(t, err)
}

func TestSignAndRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)
	domain := NewDomain(31337, testGate)
	f := testFraction()

	sig, err := SignFraction(key, domain, f)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)
	require.True(t, sig[64] == 27 || sig[64] == 28)

	recovered, err := RecoverFractionSigner(domain, f, sig)
	require.NoError(t, err)
	assert.Equal(t, signer, recovered)

	t.Run("raw recovery id accepted", func(t *testing.T) {
		raw := append([]byte{}, sig...)
		raw[64] -= 27
		recovered, err := RecoverFractionSigner(domain, f, raw)
		require.NoError(t, err)
		assert.Equal(t, signer, recovered)
	})

	t.Run("input signature not mutated", func(t *testing.T) {
		before := append([]byte{}, sig...)
		_, err := RecoverFractionSigner(domain, f, sig)
		require.NoError(t, err)
		assert.Equal(t, before, sig)
	})

	t.Run("tampered price recovers someone else", func(t *testing.T) {
		tampered := testFraction()
		tampered.Price = parseUnits(200)
		recovered, err := RecoverFractionSigner(domain, tampered, sig)
		if err == nil {
			assert.NotEqual(t, signer, recovered)
		}
	})

	t.Run("tampered info recovers someone else", func(t *testing.T) {
		tampered := testFraction()
		tampered.FractionInfo = "1,3,6"
		recovered, err := RecoverFractionSigner(domain, tampered, sig)
		if err == nil {
			assert.NotEqual(t, signer, recovered)
		}
	})

	t.Run("other key recovers other identity", func(t *testing.T) {
		other, err := crypto.GenerateKey()
		require.NoError(t, err)
		otherSig, err := SignFraction(other, domain, f)
		require.NoError(t, err)
		recovered, err := RecoverFractionSigner(domain, f, otherSig)
		require.NoError(t, err)
		assert.NotEqual(t, signer, recovered)
		assert.Equal(t, crypto.PubkeyToAddress(other.PublicKey), recovered)
	})
}

func TestNormalizeSignature_Malformed(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := SignFraction(key, NewDomain(31337, testGate), testFraction())
	require.NoError(t, err)

	tests := []struct {
		name string
		sig  func() []byte
	}{
		{"empty", func() []byte { return nil }},
		{"too short", func() []byte { return sig[:64] }},
		{"too long", func() []byte { return append(append([]byte{}, sig...), 0x00) }},
		{"bad recovery id", func() []byte {
			s := append([]byte{}, sig...)
			s[64] = 29
			return s
		}},
		{"bad recovery id below 27", func() []byte {
			s := append([]byte{}, sig...)
			s[64] = 2
			return s
		}},
		{"zero r", func() []byte {
			s := append([]byte{}, sig...)
			copy(s[:32], make([]byte, 32))
			return s
		}},
		{"high s", func() []byte {
			s := append([]byte{}, sig...)
			n := crypto.S256().Params().N
			highS := new(big.Int).Sub(n, new(big.Int).SetBytes(s[32:64]))
			copy(s[32:64], common.LeftPadBytes(highS.Bytes(), 32))
			s[64] ^= 1
			return s
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeSignature(tt.sig())
			require.ErrorIs(t, err, ErrMalformedSignature)

			_, err = RecoverSigner(common.Hash{1}, tt.sig())
			require.ErrorIs(t, err, ErrMalformedSignature)
		})
	}
}

func TestTypedData(t *testing.T) {
	td, err := TypedData(NewDomain(80001, testGate), testFraction())
	require.NoError(t, err)
	assert.Equal(t, PrimaryType, td.PrimaryType)
	assert.Equal(t, DomainName, td.Domain.Name)
	assert.Equal(t, DomainVersion, td.Domain.Version)
	assert.Equal(t, testGate.Hex(), td.Domain.VerifyingContract)
	assert.Equal(t, "1,3,5", td.Message["fractionInfo"])
	assert.Equal(t, parseUnits(100).String(), td.Message["price"])
}

func TestIsLowS(t *testing.T) {
	n := crypto.S256().Params().N
	half := new(big.Int).Rsh(n, 1)
	assert.True(t, IsLowS(big.NewInt(1)))
	assert.True(t, IsLowS(half))
	assert.False(t, IsLowS(new(big.Int).Add(half, big.NewInt(1))))
}
