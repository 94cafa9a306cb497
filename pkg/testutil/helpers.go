package testutil

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/artfi-labs/artfi-whitelist-go/internal/tests"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is a funded hardhat account from the shared chain config.
type Account struct {
	Address    common.Address
	PrivateKey *ecdsa.PrivateKey
}

// TestAccounts holds the deployer, whitelister and user accounts.
type TestAccounts struct {
	ChainID     uint64
	Gate        common.Address
	NFT         common.Address
	Deployer    *Account
	Whitelister *Account
	Users       []*Account
}

// LoadTestAccounts reads internal/testData/chain-config.json.
func LoadTestAccounts(t *testing.T) *TestAccounts {
	t.Helper()

	chainConfig, err := tests.ReadChainConfig(tests.GetProjectRootPath())
	if err != nil {
		t.Fatalf("Failed to read chain config: %v", err)
	}

	return &TestAccounts{
		ChainID:     chainConfig.ChainID,
		Gate:        common.HexToAddress(chainConfig.GateAddress),
		NFT:         common.HexToAddress(chainConfig.NFTAddress),
		Deployer:    mustAccount(t, chainConfig.DeployerAccountAddress, chainConfig.DeployerAccountPrivateKey),
		Whitelister: mustAccount(t, chainConfig.WhitelisterAccountAddress, chainConfig.WhitelisterPrivateKey),
		Users: []*Account{
			mustAccount(t, chainConfig.UserAccountAddress1, chainConfig.UserAccountPrivateKey1),
			mustAccount(t, chainConfig.UserAccountAddress2, chainConfig.UserAccountPrivateKey2),
			mustAccount(t, chainConfig.UserAccountAddress3, chainConfig.UserAccountPrivateKey3),
		},
	}
}

func mustAccount(t *testing.T, address, privateKeyHex string) *Account {
	t.Helper()
	key, err := crypto.HexToECDSA(strip0x(privateKeyHex))
	if err != nil {
		t.Fatalf("Invalid private key for %s: %v", address, err)
	}
	derived := crypto.PubkeyToAddress(key.PublicKey)
	if derived != common.HexToAddress(address) {
		t.Fatalf("Private key for %s derives %s", address, derived.Hex())
	}
	return &Account{Address: derived, PrivateKey: key}
}

func strip0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// SignFraction signs {wallet, info, price} for domain with key.
func SignFraction(t *testing.T, key *ecdsa.PrivateKey, domain eip712.Domain, wallet common.Address, info string, price int64) []byte {
	t.Helper()
	sig, err := eip712.SignFraction(key, domain, &types.Fraction{
		WalletAddress: wallet,
		FractionInfo:  info,
		Price:         big.NewInt(price),
	})
	if err != nil {
		t.Fatalf("Failed to sign fraction: %v", err)
	}
	return sig
}
