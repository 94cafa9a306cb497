package eip712

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

/*
Typed data signed by the whitelister (EIP-712):

	domain  = EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	          { name: "ARTFI", version: "1.0.0", chainId, verifyingContract: <gate address> }
	message = Fraction(address walletAddress,string fractionInfo,uint256 price)

	digest  = keccak256("\x19\x01" || hashStruct(domain) || hashStruct(message))

This matches ethers' _signTypedData and OpenZeppelin's EIP712._hashTypedDataV4, so
signatures produced by either side verify against the other.
*/

const (
	DomainName    = "ARTFI"
	DomainVersion = "1.0.0"

	PrimaryType = "Fraction"

	// SignatureLength is r || s || v
	SignatureLength = 65
)

var (
	// ErrMalformedSignature is returned when a signature cannot be decoded to exactly one signer
	ErrMalformedSignature = errors.New("malformed signature")

	secp256k1HalfN = new(big.Int).Rsh(crypto.S256().Params().N, 1)
)

// FractionTypes is the fixed schema; field order is part of the type hash.
var FractionTypes = apitypes.Types{
	"EIP712Domain": []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	PrimaryType: []apitypes.Type{
		{Name: "walletAddress", Type: "address"},
		{Name: "fractionInfo", Type: "string"},
		{Name: "price", Type: "uint256"},
	},
}

// Domain binds signatures to one gate deployment on one chain.
type Domain struct {
	ChainID           uint64
	VerifyingContract common.Address
}

func NewDomain(chainID uint64, verifyingContract common.Address) Domain {
	return Domain{ChainID: chainID, VerifyingContract: verifyingContract}
}

func (d Domain) typedDataDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(d.ChainID)),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

// Separator returns hashStruct(EIP712Domain).
func (d Domain) Separator() (common.Hash, error) {
	td := apitypes.TypedData{Types: FractionTypes, Domain: d.typedDataDomain()}
	sep, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash domain: %w", err)
	}
	return common.BytesToHash(sep), nil
}

// TypedData builds the full typed data document for a fraction, suitable for
// eth_signTypedData_v4 or a JSON dump handed to an external signer.
func TypedData(domain Domain, fraction *types.Fraction) (apitypes.TypedData, error) {
	if fraction == nil {
		return apitypes.TypedData{}, fmt.Errorf("fraction is nil")
	}
	if fraction.Price == nil || fraction.Price.Sign() < 0 {
		return apitypes.TypedData{}, fmt.Errorf("price must be a non-negative integer")
	}
	if fraction.Price.BitLen() > 256 {
		return apitypes.TypedData{}, fmt.Errorf("price exceeds uint256")
	}

	return apitypes.TypedData{
		Types:       FractionTypes,
		PrimaryType: PrimaryType,
		Domain:      domain.typedDataDomain(),
		Message: apitypes.TypedDataMessage{
			"walletAddress": fraction.WalletAddress.Hex(),
			"fractionInfo":  fraction.FractionInfo,
			"price":         fraction.Price.String(),
		},
	}, nil
}

// HashFraction returns the EIP-712 digest the whitelister signs.
func HashFraction(domain Domain, fraction *types.Fraction) (common.Hash, error) {
	td, err := TypedData(domain, fraction)
	if err != nil {
		return common.Hash{}, err
	}
	digest, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return common.BytesToHash(digest), nil
}

// NormalizeSignature returns a copy of sig with the recovery byte in {0, 1}.
func NormalizeSignature(sig []byte) ([]byte, error) {
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, SignatureLength, len(sig))
	}
	out := make([]byte, SignatureLength)
	copy(out, sig)
	if out[64] >= 27 {
		out[64] -= 27
	}
	if out[64] > 1 {
		return nil, fmt.Errorf("%w: invalid recovery id %d", ErrMalformedSignature, sig[64])
	}

	r := new(big.Int).SetBytes(out[:32])
	s := new(big.Int).SetBytes(out[32:64])
	if !crypto.ValidateSignatureValues(out[64], r, s, true) {
		return nil, fmt.Errorf("%w: r or s out of range", ErrMalformedSignature)
	}
	return out, nil
}

// RecoverSigner recovers the address that signed digest.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	normalized, err := NormalizeSignature(sig)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// RecoverFractionSigner hashes fraction under domain and recovers the signer.
func RecoverFractionSigner(domain Domain, fraction *types.Fraction, sig []byte) (common.Address, error) {
	digest, err := HashFraction(domain, fraction)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverSigner(digest, sig)
}

// SignDigest signs a 32-byte digest and returns r || s || v with v in {27, 28}.
func SignDigest(key *ecdsa.PrivateKey, digest common.Hash) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("private key is nil")
	}
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// SignFraction produces the signature ethers' _signTypedData would for the same key.
func SignFraction(key *ecdsa.PrivateKey, domain Domain, fraction *types.Fraction) ([]byte, error) {
	digest, err := HashFraction(domain, fraction)
	if err != nil {
		return nil, err
	}
	return SignDigest(key, digest)
}

// IsLowS reports whether s is in the lower half of the curve order.
func IsLowS(s *big.Int) bool {
	return s.Cmp(secp256k1HalfN) <= 0
}
