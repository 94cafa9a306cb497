package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/callSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/gate"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      5 * time.Second,
	BackoffMultiple: 2.0,
}

// APIError is a non-2xx answer from the node. It unwraps to the matching gate
// sentinel so callers can use errors.Is across the wire.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d, code %s, request %s)", e.Message, e.StatusCode, e.Code, e.RequestID)
}

var codeErrors = map[string]error{
	"malformed_signature":               gate.ErrMalformedSignature,
	"unauthorized":                      gate.ErrUnauthorized,
	"asset_not_accepted":                gate.ErrAssetNotAccepted,
	"slot_already_used":                 gate.ErrSlotAlreadyUsed,
	"insufficient_allowance_or_balance": gate.ErrInsufficientAllowanceOrBalance,
	"not_owner":                         gate.ErrNotOwner,
	"invalid_asset":                     gate.ErrInvalidAsset,
	"invalid_amount":                    gate.ErrInvalidAmount,
	"reentrant_call":                    gate.ErrReentrantCall,
	"sender_mismatch":                   callSigner.ErrSenderMismatch,
	"stale_nonce":                       callSigner.ErrStaleNonce,
	"replayed_call":                     callSigner.ErrReplayedCall,
	"wrong_audience":                    callSigner.ErrWrongAudience,
	"invalid_call":                      callSigner.ErrInvalidCall,
}

func (e *APIError) Unwrap() error {
	return codeErrors[e.Code]
}

func (e *APIError) retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// Client talks to a whitelist node. Read-only calls are retried with
// exponential backoff; calls that change state are sent exactly once.
type Client struct {
	baseURL     string
	signer      callSigner.ICallSigner
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *zap.Logger

	// gate and chain id that signed calls are addressed to, fetched on first use
	audienceMu sync.Mutex
	audience   *types.CallHeader
}

// signedPayload is a call payload that embeds types.CallHeader.
type signedPayload interface {
	SetCallHeader(header types.CallHeader)
}

// NewClient creates a new transport client. signer may be nil for a read-only client.
func NewClient(baseURL string, signer callSigner.ICallSigner, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		signer:      signer,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		retryConfig: DefaultRetryConfig,
		logger:      logger,
	}
}

func (c *Client) SetRetryConfig(cfg RetryConfig) {
	c.retryConfig = cfg
}

func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// buildRequestURL constructs a full URL for a node endpoint
func (c *Client) buildRequestURL(path string, query url.Values) string {
	if len(query) == 0 {
		return c.baseURL + path
	}
	return c.baseURL + path + "?" + query.Encode()
}

func (c *Client) send(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
		var errResp types.ErrorResponse
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &errResp) == nil && errResp.Code != "" {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Error
		} else {
			apiErr.Code = "http_error"
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// withRetry runs a read-only request until it succeeds, hits a non-retryable
// error or runs out of attempts.
func (c *Client) withRetry(ctx context.Context, method, endpoint string, body []byte, out any) error {
	attempts := c.retryConfig.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	backoff := c.retryConfig.InitialBackoff
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = c.send(ctx, method, endpoint, body, out)
		if lastErr == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && !apiErr.retryable() {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		c.logger.Sugar().Debugw("Retrying request", "endpoint", endpoint, "attempt", attempt+1, "error", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * c.retryConfig.BackoffMultiple)
		if backoff > c.retryConfig.MaxBackoff {
			backoff = c.retryConfig.MaxBackoff
		}
	}
	return fmt.Errorf("request to %s failed after %d attempts: %w", endpoint, attempts, lastErr)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.withRetry(ctx, http.MethodGet, c.buildRequestURL(path, query), nil, out)
}

// SetAudience addresses signed calls to gate on chainID without asking the node.
func (c *Client) SetAudience(gate common.Address, chainID uint64) {
	c.audienceMu.Lock()
	defer c.audienceMu.Unlock()
	c.audience = &types.CallHeader{Gate: gate, ChainID: chainID}
}

func (c *Client) callHeader(ctx context.Context) (types.CallHeader, error) {
	c.audienceMu.Lock()
	defer c.audienceMu.Unlock()

	if c.audience == nil {
		info, err := c.Whitelister(ctx)
		if err != nil {
			return types.CallHeader{}, fmt.Errorf("failed to look up gate address: %w", err)
		}
		c.audience = &types.CallHeader{Gate: info.Gate, ChainID: info.ChainID}
	}

	nonce, err := callSigner.NewNonce()
	if err != nil {
		return types.CallHeader{}, err
	}
	header := *c.audience
	header.Nonce = nonce
	return header, nil
}

// call addresses payload to the gate, signs it into a callSigner envelope and
// posts it once.
func (c *Client) call(ctx context.Context, path string, payload signedPayload, out any) error {
	if c.signer == nil {
		return fmt.Errorf("client has no signer; cannot call %s", path)
	}
	header, err := c.callHeader(ctx)
	if err != nil {
		return err
	}
	payload.SetCallHeader(header)

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal call: %w", err)
	}
	signed, err := c.signer.CreateSignedCall(raw)
	if err != nil {
		return fmt.Errorf("failed to create signed call: %w", err)
	}
	data, err := json.Marshal(signed)
	if err != nil {
		return fmt.Errorf("failed to marshal signed call: %w", err)
	}
	return c.send(ctx, http.MethodPost, c.buildRequestURL(path, nil), data, out)
}

func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil, nil)
}

func (c *Client) Whitelister(ctx context.Context) (*types.WhitelisterResponse, error) {
	var resp types.WhitelisterResponse
	if err := c.get(ctx, "/whitelister", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify asks the node who signed a fraction. Verification has no side effects,
// so it is retried like the GET endpoints.
func (c *Client) Verify(ctx context.Context, wallet common.Address, price *big.Int, fractionInfo string, signature []byte) (*types.VerifyResponse, error) {
	if price == nil {
		return nil, gate.ErrInvalidAmount
	}
	body, err := json.Marshal(types.VerifyRequest{
		WalletAddress: wallet,
		Price:         price.String(),
		FractionInfo:  fractionInfo,
		Signature:     signature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verify request: %w", err)
	}
	var resp types.VerifyResponse
	if err := c.withRetry(ctx, http.MethodPost, c.buildRequestURL("/verify", nil), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) AcceptedTokens(ctx context.Context) ([]common.Address, error) {
	var resp types.TokensResponse
	if err := c.get(ctx, "/tokens", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Accepted, nil
}

func (c *Client) IsSlotConsumed(ctx context.Context, id types.FractionID) (bool, error) {
	var resp types.SlotResponse
	if err := c.get(ctx, "/slots/"+id.Hex(), nil, &resp); err != nil {
		return false, err
	}
	return resp.Consumed, nil
}

func (c *Client) ReceiptRoot(ctx context.Context) (*types.ReceiptRootResponse, error) {
	var resp types.ReceiptRootResponse
	if err := c.get(ctx, "/receipts/root", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ReceiptProof(ctx context.Context, id types.FractionID) (*types.ReceiptProofResponse, error) {
	var resp types.ReceiptProofResponse
	if err := c.get(ctx, "/receipts/proof", url.Values{"fractionId": {id.Hex()}}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) BalanceOf(ctx context.Context, asset, account common.Address) (*big.Int, error) {
	var resp types.BalanceResponse
	query := url.Values{"asset": {asset.Hex()}, "account": {account.Hex()}}
	if err := c.get(ctx, "/token/balance", query, &resp); err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(resp.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("node returned invalid balance %q", resp.Balance)
	}
	return balance, nil
}

// DoWhitelist claims a whitelist slot for the client's signer.
func (c *Client) DoWhitelist(
	ctx context.Context,
	asset common.Address,
	amount *big.Int,
	fractionID types.FractionID,
	fractionInfo string,
	signature []byte,
) (*types.WhitelistReceipt, error) {
	if amount == nil {
		return nil, gate.ErrInvalidAmount
	}
	var receipt types.WhitelistReceipt
	err := c.call(ctx, "/whitelist", &types.DoWhitelistCall{
		Asset:        asset.Hex(),
		Amount:       amount.String(),
		FractionID:   fractionID,
		FractionInfo: fractionInfo,
		Signature:    signature,
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// UpdateToken sets whether asset is accepted and returns the accepted set after
// the change. asset is sent verbatim and validated by the node.
func (c *Client) UpdateToken(ctx context.Context, asset string, accepted bool) ([]common.Address, error) {
	var resp types.TokensResponse
	err := c.call(ctx, "/admin/token", &types.UpdateTokenCall{
		Asset:    asset,
		Accepted: accepted,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Accepted, nil
}

func (c *Client) Mint(ctx context.Context, asset, to common.Address, amount *big.Int) error {
	if amount == nil {
		return gate.ErrInvalidAmount
	}
	return c.call(ctx, "/token/mint", &types.MintCall{
		Asset:  asset.Hex(),
		To:     to,
		Amount: amount.String(),
	}, nil)
}

func (c *Client) Approve(ctx context.Context, asset, spender common.Address, amount *big.Int) error {
	if amount == nil {
		return gate.ErrInvalidAmount
	}
	return c.call(ctx, "/token/approve", &types.ApproveCall{
		Asset:   asset.Hex(),
		Spender: spender,
		Amount:  amount.String(),
	}, nil)
}
