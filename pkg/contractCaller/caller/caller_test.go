package caller

import (
	"context"
	"math/big"
	"testing"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/transactionSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// hardhat account #0
const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var gateAddress = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")

func selector(sig string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(sig))[:4])
}

func TestMethodSelectors(t *testing.T) {
	cases := []struct {
		method    string
		signature string
		contract  string
	}{
		{"whitelister", "whitelister()", "gate"},
		{"verify1", "verify1(address,uint256,string,bytes)", "gate"},
		{"doWhitelist", "doWhitelist(address,uint256,bytes32,string,bytes)", "gate"},
		{"updateToken", "updateToken(address,bool)", "gate"},
		{"approve", "approve(address,uint256)", "token"},
		{"balanceOf", "balanceOf(address)", "token"},
		{"allowance", "allowance(address,address)", "token"},
		{"mint", "mint(address,uint256)", "token"},
	}
	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			parsed := whitelistABI
			if tc.contract == "token" {
				parsed = tokenABI
			}
			m, ok := parsed.Methods[tc.method]
			require.True(t, ok)
			assert.Equal(t, tc.signature, m.Sig)
			assert.Equal(t, selector(tc.signature), hexutil.Encode(m.ID))
		})
	}

	assert.Equal(t, "0x095ea7b3", selector("approve(address,uint256)"))
	assert.Equal(t, "0x70a08231", selector("balanceOf(address)"))
	assert.Equal(t, "0x40c10f19", selector("mint(address,uint256)"))
}

func TestPackDoWhitelist(t *testing.T) {
	asset := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	id := types.FractionIDFromUint64(7)
	sig := make([]byte, 65)

	data, err := whitelistABI.Pack("doWhitelist", asset, big.NewInt(100), [32]byte(id), "1,3,5", sig)
	require.NoError(t, err)
	assert.Equal(t, selector("doWhitelist(address,uint256,bytes32,string,bytes)"), hexutil.Encode(data[:4]))

	args, err := whitelistABI.Methods["doWhitelist"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, args, 5)
	assert.Equal(t, asset, args[0])
	assert.Equal(t, "100", args[1].(*big.Int).String())
	assert.Equal(t, [32]byte(id), args[2])
	assert.Equal(t, "1,3,5", args[3])
	assert.Equal(t, sig, args[4])
}

func TestNewContractCaller(t *testing.T) {
	_, err := NewContractCaller(nil, nil, gateAddress, zap.NewNop())
	require.Error(t, err)

	backend := simulated.NewBackend(ethereumTypes.GenesisAlloc{})
	t.Cleanup(func() { _ = backend.Close() })

	_, err = NewContractCaller(backend.Client(), nil, common.Address{}, zap.NewNop())
	require.Error(t, err)

	cc, err := NewContractCaller(backend.Client(), nil, gateAddress, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, gateAddress, cc.GateAddress())
}

func TestContractCaller_NoCode(t *testing.T) {
	key, err := crypto.HexToECDSA(testPrivateKey[2:])
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	ether := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	backend := simulated.NewBackend(ethereumTypes.GenesisAlloc{
		from: {Balance: new(big.Int).Mul(big.NewInt(100), ether)},
	})
	t.Cleanup(func() { _ = backend.Close() })

	signer, err := transactionSigner.NewPrivateKeySigner(testPrivateKey, backend.Client(), zap.NewNop())
	require.NoError(t, err)

	cc, err := NewContractCaller(backend.Client(), signer, gateAddress, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cc.Whitelister(ctx)
	require.Error(t, err)

	_, err = cc.BalanceOf(ctx, gateAddress, from)
	require.Error(t, err)

	_, err = cc.UpdateToken(ctx, gateAddress, true)
	require.Error(t, err)
}

func TestContractCaller_ReadOnlyRejectsWrites(t *testing.T) {
	backend := simulated.NewBackend(ethereumTypes.GenesisAlloc{})
	t.Cleanup(func() { _ = backend.Close() })

	cc, err := NewContractCaller(backend.Client(), nil, gateAddress, zap.NewNop())
	require.NoError(t, err)

	_, err = cc.Approve(context.Background(), gateAddress, gateAddress, big.NewInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transaction signer")
}
