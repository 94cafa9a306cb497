package awsKmsFractionSigner

import (
	"context"
	cryptoEcdsa "crypto/ecdsa"
	"encoding/asn1"
	"fmt"
	"math/big"
	"sync"

	"github.com/artfi-labs/artfi-whitelist-go/internal/fractionSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmsTypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// secp256k1 curve order
var secp256k1N, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)

// KMSAPI is the subset of the KMS client used by the signer. *kms.Client satisfies it.
type KMSAPI interface {
	CreateKey(ctx context.Context, params *kms.CreateKeyInput, optFns ...func(*kms.Options)) (*kms.CreateKeyOutput, error)
	CreateAlias(ctx context.Context, params *kms.CreateAliasInput, optFns ...func(*kms.Options)) (*kms.CreateAliasOutput, error)
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

// AWSKMSFractionSigner signs with an ECC_SECG_P256K1 key held in AWS KMS. The
// private key never leaves KMS; the recovery id is found by trial recovery
// against the key's public half.
type AWSKMSFractionSigner struct {
	logger    *zap.Logger
	kmsClient KMSAPI
	keyID     string

	mu        sync.Mutex
	publicKey *cryptoEcdsa.PublicKey
}

var _ fractionSigner.IFractionSigner = (*AWSKMSFractionSigner)(nil)

func NewAWSKMSFractionSigner(kmsClient KMSAPI, keyID string, logger *zap.Logger) *AWSKMSFractionSigner {
	return &AWSKMSFractionSigner{
		logger:    logger,
		kmsClient: kmsClient,
		keyID:     keyID,
	}
}

func NewAWSKMSFractionSignerFromConfig(awsCfg aws.Config, keyID string, logger *zap.Logger) *AWSKMSFractionSigner {
	return NewAWSKMSFractionSigner(kms.NewFromConfig(awsCfg), keyID, logger)
}

// CreateSigningKey creates a secp256k1 signing key tagged for the given chain and
// points alias/<aliasName> at it. It returns the new key id.
func CreateSigningKey(ctx context.Context, kmsClient KMSAPI, keyName, aliasName, chainName string) (string, error) {
	input := &kms.CreateKeyInput{
		KeyUsage:    kmsTypes.KeyUsageTypeSignVerify,
		KeySpec:     kmsTypes.KeySpecEccSecgP256k1,
		Description: aws.String(fmt.Sprintf("Artfi whitelister signing key - %s", keyName)),
		Tags: []kmsTypes.Tag{
			{TagKey: aws.String("Name"), TagValue: aws.String(keyName)},
			{TagKey: aws.String("Chain"), TagValue: aws.String(chainName)},
			{TagKey: aws.String("Purpose"), TagValue: aws.String("whitelister")},
			{TagKey: aws.String("Curve"), TagValue: aws.String("secp256k1")},
		},
	}

	keyRes, err := kmsClient.CreateKey(ctx, input)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create KMS key %s", keyName)
	}
	keyID := aws.ToString(keyRes.KeyMetadata.KeyId)

	if aliasName != "" {
		_, err = kmsClient.CreateAlias(ctx, &kms.CreateAliasInput{
			AliasName:   aws.String(fmt.Sprintf("alias/%s", aliasName)),
			TargetKeyId: aws.String(keyID),
		})
		if err != nil {
			return "", errors.Wrapf(err, "failed to create alias %s for key %s", aliasName, keyID)
		}
	}
	return keyID, nil
}

func (a *AWSKMSFractionSigner) KeyID() string {
	return a.keyID
}

func (a *AWSKMSFractionSigner) getPublicKey(ctx context.Context) (*cryptoEcdsa.PublicKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.publicKey != nil {
		return a.publicKey, nil
	}

	out, err := a.kmsClient.GetPublicKey(ctx, &kms.GetPublicKeyInput{KeyId: aws.String(a.keyID)})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get public key for key %s", a.keyID)
	}
	pub, err := parseECDSAPublicKey(out.PublicKey)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse public key for key %s", a.keyID)
	}
	a.publicKey = pub
	return pub, nil
}

func (a *AWSKMSFractionSigner) Address(ctx context.Context) (common.Address, error) {
	pub, err := a.getPublicKey(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func (a *AWSKMSFractionSigner) SignFraction(ctx context.Context, domain eip712.Domain, fraction *types.Fraction) ([]byte, error) {
	return fractionSigner.SignFractionWith(ctx, a, domain, fraction)
}

// SignDigest asks KMS for a DER signature over digest and converts it to the
// 65-byte recoverable form.
func (a *AWSKMSFractionSigner) SignDigest(ctx context.Context, digest common.Hash) ([]byte, error) {
	expected, err := a.getPublicKey(ctx)
	if err != nil {
		return nil, err
	}

	out, err := a.kmsClient.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(a.keyID),
		Message:          digest.Bytes(),
		SigningAlgorithm: kmsTypes.SigningAlgorithmSpecEcdsaSha256,
		MessageType:      kmsTypes.MessageTypeDigest,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sign digest with key %s", a.keyID)
	}

	sig, err := recoverableSignature(digest, out.Signature, expected)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to convert KMS signature for key %s", a.keyID)
	}
	a.logger.Debug("Signed digest with KMS key", zap.String("keyId", a.keyID), zap.String("digest", digest.Hex()))
	return sig, nil
}

type asn1EcSig struct {
	R asn1.RawValue
	S asn1.RawValue
}

type asn1EcPublicKey struct {
	EcPublicKeyInfo asn1EcPublicKeyInfo
	PublicKey       asn1.BitString
}

type asn1EcPublicKeyInfo struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}

// parseECDSAPublicKey parses the DER SubjectPublicKeyInfo returned by KMS
func parseECDSAPublicKey(derBytes []byte) (*cryptoEcdsa.PublicKey, error) {
	var asn1pubk asn1EcPublicKey
	if _, err := asn1.Unmarshal(derBytes, &asn1pubk); err != nil {
		return nil, fmt.Errorf("failed to parse ASN.1 public key: %w", err)
	}
	return crypto.UnmarshalPubkey(asn1pubk.PublicKey.Bytes)
}

// recoverableSignature turns a DER (r, s) pair into r || s || v: s is folded into
// the lower half of the curve order and v is the recovery id that yields expected.
func recoverableSignature(digest common.Hash, der []byte, expected *cryptoEcdsa.PublicKey) ([]byte, error) {
	var sigAsn1 asn1EcSig
	if _, err := asn1.Unmarshal(der, &sigAsn1); err != nil {
		return nil, fmt.Errorf("failed to parse ASN.1 signature: %w", err)
	}
	r := new(big.Int).SetBytes(sigAsn1.R.Bytes)
	s := new(big.Int).SetBytes(sigAsn1.S.Bytes)
	if !eip712.IsLowS(s) {
		s = new(big.Int).Sub(secp256k1N, s)
	}

	sig := make([]byte, 65)
	r.FillBytes(sig[0:32])
	s.FillBytes(sig[32:64])

	expectedBytes := crypto.FromECDSAPub(expected)
	for recoveryID := byte(0); recoveryID < 2; recoveryID++ {
		sig[64] = recoveryID
		recovered, err := crypto.Ecrecover(digest.Bytes(), sig)
		if err != nil {
			continue
		}
		if string(recovered) == string(expectedBytes) {
			sig[64] = 27 + recoveryID
			return sig, nil
		}
	}
	return nil, fmt.Errorf("could not determine valid recovery ID")
}
