package web3SignerFractionSigner

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/clients/web3signer"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeWeb3Signer answers eth_accounts and eth_signTypedData with an in-memory key.
func fakeWeb3Signer(t *testing.T, key *ecdsa.PrivateKey, rawRecoveryID bool) *httptest.Server {
	t.Helper()
	account := crypto.PubkeyToAddress(key.PublicKey)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     int64             `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result any
		switch req.Method {
		case "eth_accounts":
			result = []string{strings.ToLower(account.Hex())}
		case "eth_signTypedData":
			var td apitypes.TypedData
			require.NoError(t, json.Unmarshal(req.Params[1], &td))
			digest, _, err := apitypes.TypedDataAndHash(td)
			require.NoError(t, err)
			sig, err := crypto.Sign(digest, key)
			require.NoError(t, err)
			if !rawRecoveryID {
				sig[64] += 27
			}
			result = hexutil.Encode(sig)
		default:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]any{"code": -32601, "message": "method not found"},
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
}

func newClient(t *testing.T, url string) *web3signer.Client {
	t.Helper()
	client, err := web3signer.NewClient(&web3signer.Config{BaseURL: url}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestWeb3SignerFractionSigner_SignFraction(t *testing.T) {
	for _, raw := range []bool{false, true} {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		srv := fakeWeb3Signer(t, key, raw)
		defer srv.Close()

		account := crypto.PubkeyToAddress(key.PublicKey)
		signer := NewWeb3SignerFractionSigner(newClient(t, srv.URL), account, zap.NewNop())

		addr, err := signer.Address(context.Background())
		require.NoError(t, err)
		assert.Equal(t, account, addr)

		domain := eip712.NewDomain(31337, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))
		fraction := &types.Fraction{
			WalletAddress: common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
			FractionInfo:  "1,3,5",
			Price:         big.NewInt(100),
		}
		sig, err := signer.SignFraction(context.Background(), domain, fraction)
		require.NoError(t, err)
		assert.True(t, sig[64] == 27 || sig[64] == 28)

		expected, err := eip712.SignFraction(key, domain, fraction)
		require.NoError(t, err)
		assert.Equal(t, expected, sig)
	}
}

func TestWeb3SignerFractionSigner_UnknownAccount(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	srv := fakeWeb3Signer(t, key, false)
	defer srv.Close()

	other := common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	signer := NewWeb3SignerFractionSigner(newClient(t, srv.URL), other, zap.NewNop())

	_, err = signer.Address(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not hold a key")

	domain := eip712.NewDomain(31337, other)
	_, err = signer.SignFraction(context.Background(), domain, &types.Fraction{WalletAddress: other, Price: big.NewInt(1)})
	require.Error(t, err)
}
