package persistence

import (
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// IGatePersistence stores the mutable state of a whitelist gate.
// All implementations must be thread-safe; the gate serializes its own mutating
// calls, but read paths (HTTP handlers) hit the store concurrently.
type IGatePersistence interface {
	// Token registry

	// SetTokenAccepted records whether an asset may be used for payment.
	// Setting an already-held value is a no-op.
	SetTokenAccepted(asset common.Address, accepted bool) error

	// IsTokenAccepted returns false for assets never registered.
	IsTokenAccepted(asset common.Address) (bool, error)

	// ListAcceptedTokens returns accepted assets sorted by address.
	ListAcceptedTokens() ([]common.Address, error)

	// Whitelist slots

	// ConsumeSlot atomically marks a slot consumed.
	// Returns false, nil when the slot was already consumed.
	ConsumeSlot(id types.FractionID) (bool, error)

	// ReleaseSlot undoes ConsumeSlot for a call that failed before completing.
	// Idempotent.
	ReleaseSlot(id types.FractionID) error

	IsSlotConsumed(id types.FractionID) (bool, error)

	// Signed calls

	// MarkCallSeen atomically records a signed call hash for ttl.
	// Returns false, nil when the hash is already recorded and not yet expired.
	MarkCallSeen(hash common.Hash, ttl time.Duration) (bool, error)

	// Receipts

	// SaveReceipt persists the receipt of a completed whitelist call, keyed by fraction id.
	SaveReceipt(receipt *types.WhitelistReceipt) error

	// LoadReceipt returns nil if no receipt exists, error only on storage failure.
	LoadReceipt(id types.FractionID) (*types.WhitelistReceipt, error)

	// ListReceipts returns all receipts sorted by fraction id.
	ListReceipts() ([]*types.WhitelistReceipt, error)

	// Gate binding

	// SaveGateState records which gate this store belongs to. Overwrites any existing state.
	SaveGateState(state *types.GateState) error

	// LoadGateState returns nil state on first run, error only on storage failure.
	LoadGateState() (*types.GateState, error)

	// Lifecycle

	// Close is idempotent. After Close, all other operations return ErrClosed.
	Close() error

	// HealthCheck returns nil if the store is operational.
	HealthCheck() error
}
