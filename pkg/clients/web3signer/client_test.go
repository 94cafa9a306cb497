package web3signer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient(nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", client.baseURL)

	_, err = NewClient(&Config{}, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestClient_JSONRPC(t *testing.T) {
	var (
		mu      sync.Mutex
		methods []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/upcheck" {
			_, _ = w.Write([]byte("OK"))
			return
		}
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		mu.Lock()
		methods = append(methods, req.Method)
		mu.Unlock()

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		switch req.Method {
		case "eth_accounts":
			resp["result"] = []string{"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"}
		case "eth_signTypedData":
			require.Len(t, req.Params, 2)
			resp["result"] = "0xdeadbeef"
		default:
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client, err := NewClient(&Config{BaseURL: srv.URL + "/"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, client.Upcheck(ctx))

	accounts, err := client.EthAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"}, accounts)

	sig, err := client.EthSignTypedData(ctx, accounts[0], map[string]any{"primaryType": "Fraction"})
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", sig)

	var rpcErr *JSONRPCError
	err = client.call(ctx, "eth_unknown", nil, new(string))
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"eth_accounts", "eth_signTypedData", "eth_unknown"}, methods)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(&Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = client.EthAccounts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	require.Error(t, client.Upcheck(context.Background()))
}
