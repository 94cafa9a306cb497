package callSigner

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

/*
Signed calls stand in for the transaction sender of an on-chain call.

The caller JSON-encodes a call payload carrying the target gate, its chain id and
a nonce, signs keccak256(payload) with its secp256k1 key, and sends
{payload, hash, signature, from}. The node recovers the signer from the signature
and requires it to equal from.

Nonce format: "<unix seconds>-<32 hex chars>". A nonce older than the window is
refused, and a payload hash already recorded in the call ledger is refused as a
replay. Nodes that share a ledger refuse calls handled by any of them.
*/

const (
	DefaultNonceWindow = 5 * time.Minute
	nonceRandomBytes   = 16
	// tolerated clock skew for nonces stamped in the future
	maxClockSkew = time.Minute
)

var (
	ErrInvalidCall    = errors.New("invalid signed call")
	ErrSenderMismatch = errors.New("signature does not match sender")
	ErrStaleNonce     = errors.New("call nonce expired or from the future")
	ErrReplayedCall   = errors.New("call already processed")
	ErrWrongAudience  = errors.New("call addressed to a different gate")
)

type SignedCall struct {
	Payload   []byte         `json:"payload"`   // JSON-encoded call, includes "gate", "chainId" and "nonce"
	Hash      common.Hash    `json:"hash"`      // keccak256(payload)
	Signature []byte         `json:"signature"` // r || s || v over hash
	From      common.Address `json:"from"`
}

type ICallSigner interface {
	Address() common.Address
	SignMessage(data []byte) ([]byte, error)
	CreateSignedCall(payload []byte) (*SignedCall, error)
}

// ICallLedger records the hashes of accepted calls until they expire.
type ICallLedger interface {
	// MarkCallSeen returns false when hash is already recorded.
	MarkCallSeen(hash common.Hash, ttl time.Duration) (bool, error)
}

// NewNonce returns a fresh nonce stamped with the current time.
func NewNonce() (string, error) {
	return NewNonceAt(time.Now())
}

func NewNonceAt(t time.Time) (string, error) {
	b := make([]byte, nonceRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read nonce entropy: %w", err)
	}
	return fmt.Sprintf("%d-%s", t.Unix(), hex.EncodeToString(b)), nil
}

// ParseNonce splits a nonce into its timestamp and random part.
func ParseNonce(nonce string) (int64, string, error) {
	ts, random, ok := strings.Cut(nonce, "-")
	if !ok {
		return 0, "", fmt.Errorf("nonce must be <timestamp>-<hex>: %q", nonce)
	}
	timestamp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid nonce timestamp: %w", err)
	}
	if len(random) != nonceRandomBytes*2 {
		return 0, "", fmt.Errorf("invalid nonce length: expected %d hex chars, got %d", nonceRandomBytes*2, len(random))
	}
	if _, err := hex.DecodeString(random); err != nil {
		return 0, "", fmt.Errorf("invalid nonce hex: %w", err)
	}
	return timestamp, random, nil
}

// memoryLedger is the process-local ledger used when none is configured.
type memoryLedger struct {
	now func() time.Time

	mu   sync.Mutex
	seen map[common.Hash]time.Time
}

func newMemoryLedger(now func() time.Time) *memoryLedger {
	return &memoryLedger{now: now, seen: make(map[common.Hash]time.Time)}
}

func (l *memoryLedger) MarkCallSeen(hash common.Hash, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for h, expiry := range l.seen {
		if !now.Before(expiry) {
			delete(l.seen, h)
		}
	}
	if _, dup := l.seen[hash]; dup {
		return false, nil
	}
	l.seen[hash] = now.Add(ttl)
	return true, nil
}

type VerifierOption func(*Verifier)

// WithLedger records accepted calls in ledger instead of process memory.
func WithLedger(ledger ICallLedger) VerifierOption {
	return func(v *Verifier) {
		if ledger != nil {
			v.ledger = ledger
		}
	}
}

// WithAudience only accepts calls addressed to gate on chainID.
func WithAudience(gate common.Address, chainID uint64) VerifierOption {
	return func(v *Verifier) {
		v.gate = gate
		v.chainID = chainID
		v.bound = true
	}
}

// Verifier authenticates signed calls and records them to refuse replays.
type Verifier struct {
	window time.Duration
	now    func() time.Time
	ledger ICallLedger

	bound   bool
	gate    common.Address
	chainID uint64
}

func NewVerifier(window time.Duration, opts ...VerifierOption) *Verifier {
	if window <= 0 {
		window = DefaultNonceWindow
	}
	v := &Verifier{
		window: window,
		now:    time.Now,
	}
	v.ledger = newMemoryLedger(func() time.Time { return v.now() })
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Open authenticates call, decodes its payload into out and returns the sender.
func (v *Verifier) Open(call *SignedCall, out any) (common.Address, error) {
	if call == nil || len(call.Payload) == 0 {
		return common.Address{}, fmt.Errorf("%w: empty payload", ErrInvalidCall)
	}
	hash := crypto.Keccak256Hash(call.Payload)
	if hash != call.Hash {
		return common.Address{}, fmt.Errorf("%w: hash does not match payload", ErrInvalidCall)
	}

	sender, err := eip712.RecoverSigner(hash, call.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidCall, err)
	}
	if sender != call.From {
		return common.Address{}, fmt.Errorf("%w: recovered %s, claimed %s", ErrSenderMismatch, sender.Hex(), call.From.Hex())
	}

	var envelope struct {
		Gate    common.Address `json:"gate"`
		ChainID uint64         `json:"chainId"`
		Nonce   string         `json:"nonce"`
	}
	if err := json.Unmarshal(call.Payload, &envelope); err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidCall, err)
	}
	if v.bound && (envelope.Gate != v.gate || envelope.ChainID != v.chainID) {
		return common.Address{}, fmt.Errorf("%w: call for gate %s on chain %d, this is gate %s on chain %d",
			ErrWrongAudience, envelope.Gate.Hex(), envelope.ChainID, v.gate.Hex(), v.chainID)
	}
	if err := v.checkNonce(hash, envelope.Nonce); err != nil {
		return common.Address{}, err
	}

	if out != nil {
		if err := json.Unmarshal(call.Payload, out); err != nil {
			return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidCall, err)
		}
	}
	return sender, nil
}

func (v *Verifier) checkNonce(hash common.Hash, nonce string) error {
	timestamp, _, err := ParseNonce(nonce)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCall, err)
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > v.window || age < -maxClockSkew {
		return fmt.Errorf("%w: age %v, window %v", ErrStaleNonce, age, v.window)
	}

	// the hash must outlive the nonce, or the call could be replayed once forgotten
	fresh, err := v.ledger.MarkCallSeen(hash, v.window-age+maxClockSkew)
	if err != nil {
		return fmt.Errorf("failed to record call: %w", err)
	}
	if !fresh {
		return ErrReplayedCall
	}
	return nil
}
