package node

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/callSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/callSigner/inMemoryCallSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/gate"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/merkle"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/metrics"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence/memory"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/token"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var gateAddress = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")

type testNode struct {
	node    *Node
	handler http.Handler
	store   *memory.MemoryPersistence
	asset   *token.Token

	whitelisterKey *ecdsa.PrivateKey
	whitelister    *inMemoryCallSigner.InMemoryCallSigner
	bob            *inMemoryCallSigner.InMemoryCallSigner
}

func newTestNode(t *testing.T, cfg Config) *testNode {
	t.Helper()
	tn := &testNode{store: memory.NewMemoryPersistence()}

	var err error
	tn.whitelisterKey, err = crypto.GenerateKey()
	require.NoError(t, err)
	bobKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	tn.whitelister = inMemoryCallSigner.NewInMemoryCallSigner(tn.whitelisterKey, zap.NewNop())
	tn.bob = inMemoryCallSigner.NewInMemoryCallSigner(bobKey, zap.NewNop())

	book := token.NewBook(tn.whitelister.Address(), zap.NewNop())
	tn.asset = book.Deploy("MockToken", "MTK")

	g, err := gate.NewGate(&gate.Config{
		Whitelister: tn.whitelister.Address(),
		Address:     gateAddress,
		ChainID:     31337,
	}, tn.store, book, zap.NewNop())
	require.NoError(t, err)

	cfg.Logger = zap.NewNop()
	tn.node, err = NewNode(cfg, g, tn.store, book, metrics.New())
	require.NoError(t, err)
	tn.handler = tn.node.Server().GetHandler()
	return tn
}

func (tn *testNode) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	tn.handler.ServeHTTP(w, req)
	return w
}

type callPayload interface {
	SetCallHeader(header types.CallHeader)
}

// callHeader addresses a call to the test gate with a fresh nonce.
func callHeader(t *testing.T) types.CallHeader {
	t.Helper()
	nonce, err := callSigner.NewNonce()
	require.NoError(t, err)
	return types.CallHeader{Gate: gateAddress, ChainID: 31337, Nonce: nonce}
}

func signedBody(t *testing.T, signer callSigner.ICallSigner, payload callPayload) []byte {
	t.Helper()
	return signedBodyWith(t, signer, callHeader(t), payload)
}

func signedBodyWith(t *testing.T, signer callSigner.ICallSigner, header types.CallHeader, payload callPayload) []byte {
	t.Helper()
	payload.SetCallHeader(header)
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	call, err := signer.CreateSignedCall(raw)
	require.NoError(t, err)
	body, err := json.Marshal(call)
	require.NoError(t, err)
	return body
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (tn *testNode) fractionSignature(t *testing.T, wallet common.Address, info string, price int64) []byte {
	t.Helper()
	sig, err := eip712.SignFraction(tn.whitelisterKey, tn.node.Gate().Domain(), &types.Fraction{
		WalletAddress: wallet,
		FractionInfo:  info,
		Price:         big.NewInt(price),
	})
	require.NoError(t, err)
	return sig
}

// fund registers the mock token and gives bob 1000 units approved to the gate.
func (tn *testNode) fund(t *testing.T) {
	t.Helper()
	w := tn.do(t, http.MethodPost, "/admin/token", signedBody(t, tn.whitelister, &types.UpdateTokenCall{
		Asset:    tn.asset.Address().Hex(),
		Accepted: true,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = tn.do(t, http.MethodPost, "/token/mint", signedBody(t, tn.bob, &types.MintCall{
		Asset:  tn.asset.Address().Hex(),
		To:     tn.bob.Address(),
		Amount: "1000",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = tn.do(t, http.MethodPost, "/token/approve", signedBody(t, tn.bob, &types.ApproveCall{
		Asset:   tn.asset.Address().Hex(),
		Spender: gateAddress,
		Amount:  "1000",
	}))
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
}

func (tn *testNode) whitelistBody(t *testing.T, signer callSigner.ICallSigner, amount string, slot uint64, sig []byte) []byte {
	return signedBody(t, signer, &types.DoWhitelistCall{
		Asset:        tn.asset.Address().Hex(),
		Amount:       amount,
		FractionID:   types.FractionIDFromUint64(slot),
		FractionInfo: "1,3,5",
		Signature:    sig,
	})
}

func (tn *testNode) balance(t *testing.T, account common.Address) string {
	t.Helper()
	w := tn.do(t, http.MethodGet, "/token/balance?asset="+tn.asset.Address().Hex()+"&account="+account.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp types.BalanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Balance
}

func TestNewNode(t *testing.T) {
	_, err := NewNode(Config{}, nil, memory.NewMemoryPersistence(), nil, nil)
	assert.Error(t, err)
}

func TestHandleWhitelister(t *testing.T) {
	tn := newTestNode(t, Config{})

	w := tn.do(t, http.MethodGet, "/whitelister", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.WhitelisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, tn.whitelister.Address(), resp.Whitelister)
	assert.Equal(t, tn.whitelister.Address(), resp.Owner)
	assert.Equal(t, gateAddress, resp.Gate)
	assert.Equal(t, uint64(31337), resp.ChainID)

	t.Run("Method not allowed", func(t *testing.T) {
		w := tn.do(t, http.MethodPost, "/whitelister", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHandleVerify(t *testing.T) {
	tn := newTestNode(t, Config{})
	sig := tn.fractionSignature(t, tn.bob.Address(), "1,3,5", 100)

	verify := func(price string, signature []byte) *httptest.ResponseRecorder {
		body, err := json.Marshal(types.VerifyRequest{
			WalletAddress: tn.bob.Address(),
			Price:         price,
			FractionInfo:  "1,3,5",
			Signature:     signature,
		})
		require.NoError(t, err)
		return tn.do(t, http.MethodPost, "/verify", body)
	}

	t.Run("whitelister signature", func(t *testing.T) {
		w := verify("100", sig)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp types.VerifyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Valid)
		assert.Equal(t, tn.whitelister.Address(), resp.Signer)
	})

	t.Run("tampered price recovers another identity", func(t *testing.T) {
		w := verify("101", sig)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp types.VerifyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Valid)
		assert.NotEqual(t, tn.whitelister.Address(), resp.Signer)
	})

	t.Run("malformed signature", func(t *testing.T) {
		w := verify("100", sig[:64])
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "malformed_signature", decodeError(t, w).Code)
	})

	t.Run("invalid price", func(t *testing.T) {
		w := verify("-1", sig)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_amount", decodeError(t, w).Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		w := tn.do(t, http.MethodPost, "/verify", []byte("invalid json"))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_request", decodeError(t, w).Code)
	})
}

func TestHandleDoWhitelist(t *testing.T) {
	tn := newTestNode(t, Config{})
	tn.fund(t)

	sig := tn.fractionSignature(t, tn.bob.Address(), "1,3,5", 100)
	w := tn.do(t, http.MethodPost, "/whitelist", tn.whitelistBody(t, tn.bob, "100", 1, sig))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var receipt types.WhitelistReceipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.Equal(t, tn.bob.Address(), receipt.Wallet)
	assert.Equal(t, tn.whitelister.Address(), receipt.Signer)
	assert.Equal(t, "100", receipt.Amount.String())
	assert.Equal(t, w.Header().Get(RequestIDHeader), receipt.ID)

	assert.Equal(t, "900", tn.balance(t, tn.bob.Address()))
	assert.Equal(t, "100", tn.balance(t, gateAddress))

	t.Run("slot already used", func(t *testing.T) {
		w := tn.do(t, http.MethodPost, "/whitelist", tn.whitelistBody(t, tn.bob, "100", 1, sig))
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "slot_already_used", decodeError(t, w).Code)
		assert.Equal(t, "900", tn.balance(t, tn.bob.Address()))
	})

	t.Run("slot lookup", func(t *testing.T) {
		w := tn.do(t, http.MethodGet, "/slots/"+types.FractionIDFromUint64(1).Hex(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp types.SlotResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Consumed)

		w = tn.do(t, http.MethodGet, "/slots/0x02", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Consumed)

		w = tn.do(t, http.MethodGet, "/slots/nothex", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("receipt root and proof", func(t *testing.T) {
		w := tn.do(t, http.MethodGet, "/receipts/root", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var root types.ReceiptRootResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &root))
		assert.Equal(t, 1, root.Count)

		w = tn.do(t, http.MethodGet, "/receipts/proof?fractionId=0x01", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp types.ReceiptProofResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, root.Root, resp.Root)

		ok, err := merkle.VerifyProof(&merkle.ReceiptProof{
			Receipt: resp.Receipt,
			Leaf:    resp.Leaf,
			Index:   resp.Index,
			Hashes:  resp.Proof,
		}, resp.Root)
		require.NoError(t, err)
		assert.True(t, ok)

		w = tn.do(t, http.MethodGet, "/receipts/proof?fractionId=0x09", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "receipt_not_found", decodeError(t, w).Code)
	})
}

func TestHandleDoWhitelist_Errors(t *testing.T) {
	tn := newTestNode(t, Config{})
	tn.fund(t)
	sig := tn.fractionSignature(t, tn.bob.Address(), "1,3,5", 100)

	tests := []struct {
		name   string
		body   func() []byte
		status int
		code   string
	}{
		{
			name:   "tampered amount",
			body:   func() []byte { return tn.whitelistBody(t, tn.bob, "99", 10, sig) },
			status: http.StatusForbidden,
			code:   "unauthorized",
		},
		{
			name: "signature for another wallet",
			body: func() []byte {
				return tn.whitelistBody(t, tn.whitelister, "100", 11, sig)
			},
			status: http.StatusForbidden,
			code:   "unauthorized",
		},
		{
			name:   "malformed signature",
			body:   func() []byte { return tn.whitelistBody(t, tn.bob, "100", 12, sig[:10]) },
			status: http.StatusBadRequest,
			code:   "malformed_signature",
		},
		{
			name:   "invalid amount",
			body:   func() []byte { return tn.whitelistBody(t, tn.bob, "abc", 13, sig) },
			status: http.StatusBadRequest,
			code:   "invalid_amount",
		},
		{
			name: "insufficient allowance",
			body: func() []byte {
				overSig := tn.fractionSignature(t, tn.bob.Address(), "1,3,5", 5000)
				return tn.whitelistBody(t, tn.bob, "5000", 14, overSig)
			},
			status: http.StatusPaymentRequired,
			code:   "insufficient_allowance_or_balance",
		},
		{
			name: "asset with doubled hex prefix",
			body: func() []byte {
				return signedBody(t, tn.bob, &types.DoWhitelistCall{
					Asset:        "0x0x" + tn.asset.Address().Hex()[2:],
					Amount:       "100",
					FractionID:   types.FractionIDFromUint64(16),
					FractionInfo: "1,3,5",
					Signature:    sig,
				})
			},
			status: http.StatusBadRequest,
			code:   "invalid_asset",
		},
		{
			name: "asset not accepted",
			body: func() []byte {
				return signedBody(t, tn.bob, &types.DoWhitelistCall{
					Asset:        "0x00000000000000000000000000000000000000aa",
					Amount:       "100",
					FractionID:   types.FractionIDFromUint64(15),
					FractionInfo: "1,3,5",
					Signature:    sig,
				})
			},
			status: http.StatusUnprocessableEntity,
			code:   "asset_not_accepted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tn.do(t, http.MethodPost, "/whitelist", tt.body())
			require.Equal(t, tt.status, w.Code, w.Body.String())
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
		})
	}

	assert.Equal(t, "1000", tn.balance(t, tn.bob.Address()))
}

func TestSignedCallRejected(t *testing.T) {
	tn := newTestNode(t, Config{})
	tn.fund(t)

	t.Run("sender mismatch", func(t *testing.T) {
		raw, err := json.Marshal(types.UpdateTokenCall{CallHeader: callHeader(t), Asset: tn.asset.Address().Hex()})
		require.NoError(t, err)
		call, err := tn.bob.CreateSignedCall(raw)
		require.NoError(t, err)
		call.From = tn.whitelister.Address()
		body, err := json.Marshal(call)
		require.NoError(t, err)

		w := tn.do(t, http.MethodPost, "/admin/token", body)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "sender_mismatch", decodeError(t, w).Code)
	})

	t.Run("replayed call", func(t *testing.T) {
		body := signedBody(t, tn.whitelister, &types.UpdateTokenCall{
			Asset:    tn.asset.Address().Hex(),
			Accepted: true,
		})
		w := tn.do(t, http.MethodPost, "/admin/token", body)
		require.Equal(t, http.StatusOK, w.Code)

		w = tn.do(t, http.MethodPost, "/admin/token", body)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "replayed_call", decodeError(t, w).Code)
	})

	t.Run("addressed to another gate", func(t *testing.T) {
		for name, header := range map[string]types.CallHeader{
			"other gate":  {Gate: common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), ChainID: 31337},
			"other chain": {Gate: gateAddress, ChainID: 80001},
		} {
			nonce, err := callSigner.NewNonce()
			require.NoError(t, err)
			header.Nonce = nonce
			body := signedBodyWith(t, tn.whitelister, header, &types.UpdateTokenCall{
				Asset:    tn.asset.Address().Hex(),
				Accepted: true,
			})
			w := tn.do(t, http.MethodPost, "/admin/token", body)
			require.Equal(t, http.StatusUnauthorized, w.Code, name)
			assert.Equal(t, "wrong_audience", decodeError(t, w).Code, name)
		}
	})

	t.Run("stale nonce", func(t *testing.T) {
		header := callHeader(t)
		stale, err := callSigner.NewNonceAt(time.Now().Add(-time.Hour))
		require.NoError(t, err)
		header.Nonce = stale
		body := signedBodyWith(t, tn.whitelister, header, &types.UpdateTokenCall{
			Asset: tn.asset.Address().Hex(),
		})
		w := tn.do(t, http.MethodPost, "/admin/token", body)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "stale_nonce", decodeError(t, w).Code)
	})
}

func TestHandleUpdateToken(t *testing.T) {
	tn := newTestNode(t, Config{})

	update := func(signer callSigner.ICallSigner, asset string, accepted bool) *httptest.ResponseRecorder {
		return tn.do(t, http.MethodPost, "/admin/token", signedBody(t, signer, &types.UpdateTokenCall{
			Asset:    asset,
			Accepted: accepted,
		}))
	}
	assetHex := tn.asset.Address().Hex()

	w := update(tn.bob, assetHex, true)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_owner", decodeError(t, w).Code)

	w = update(tn.whitelister, "0x0x"+assetHex[2:], true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_asset", decodeError(t, w).Code)

	w = update(tn.whitelister, assetHex, true)
	require.Equal(t, http.StatusOK, w.Code)
	var resp types.TokensResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []common.Address{tn.asset.Address()}, resp.Accepted)

	w = update(tn.whitelister, assetHex, false)
	require.Equal(t, http.StatusOK, w.Code)

	w = tn.do(t, http.MethodGet, "/tokens", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Accepted)
}

func TestHandleTokenHelpers(t *testing.T) {
	tn := newTestNode(t, Config{})

	t.Run("unknown asset", func(t *testing.T) {
		w := tn.do(t, http.MethodPost, "/token/mint", signedBody(t, tn.bob, &types.MintCall{
			Asset:  "0x00000000000000000000000000000000000000bb",
			To:     tn.bob.Address(),
			Amount: "1",
		}))
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "unknown_asset", decodeError(t, w).Code)
	})

	t.Run("invalid account", func(t *testing.T) {
		w := tn.do(t, http.MethodGet, "/token/balance?asset="+tn.asset.Address().Hex()+"&account=bob", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_account", decodeError(t, w).Code)
	})

	t.Run("approve is bound to the sender", func(t *testing.T) {
		w := tn.do(t, http.MethodPost, "/token/approve", signedBody(t, tn.bob, &types.ApproveCall{
			Asset:   tn.asset.Address().Hex(),
			Spender: gateAddress,
			Amount:  "42",
		}))
		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "42", tn.asset.Allowance(tn.bob.Address(), gateAddress).String())
		assert.Equal(t, "0", tn.asset.Allowance(tn.whitelister.Address(), gateAddress).String())
	})
}

func TestRateLimit(t *testing.T) {
	tn := newTestNode(t, Config{RateLimit: 0.001, Burst: 1})

	w := tn.do(t, http.MethodGet, "/whitelister", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = tn.do(t, http.MethodGet, "/whitelister", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decodeError(t, w).Code)
}

func TestRequestID(t *testing.T) {
	tn := newTestNode(t, Config{})

	t.Run("generated", func(t *testing.T) {
		w := tn.do(t, http.MethodGet, "/tokens", nil)
		_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("propagated", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/slots/nothex", nil)
		req.Header.Set(RequestIDHeader, id)
		w := httptest.NewRecorder()
		tn.handler.ServeHTTP(w, req)

		assert.Equal(t, id, w.Header().Get(RequestIDHeader))
		assert.Equal(t, id, decodeError(t, w).RequestID)
	})

	t.Run("non-uuid header replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tokens", nil)
		req.Header.Set(RequestIDHeader, "not a uuid")
		w := httptest.NewRecorder()
		tn.handler.ServeHTTP(w, req)
		assert.NotEqual(t, "not a uuid", w.Header().Get(RequestIDHeader))
	})
}

func TestHealthAndMetrics(t *testing.T) {
	tn := newTestNode(t, Config{})

	w := tn.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = tn.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "artfi_whitelist_http_requests_total"))

	require.NoError(t, tn.store.Close())
	w = tn.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = tn.do(t, http.MethodGet, "/tokens", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{gate.ErrMalformedSignature, http.StatusBadRequest},
		{gate.ErrUnauthorized, http.StatusForbidden},
		{gate.ErrNotOwner, http.StatusForbidden},
		{gate.ErrAssetNotAccepted, http.StatusUnprocessableEntity},
		{gate.ErrSlotAlreadyUsed, http.StatusConflict},
		{gate.ErrInsufficientAllowanceOrBalance, http.StatusPaymentRequired},
		{gate.ErrReentrantCall, http.StatusConflict},
		{callSigner.ErrInvalidCall, http.StatusUnauthorized},
		{token.ErrUnknownAsset, http.StatusNotFound},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}
