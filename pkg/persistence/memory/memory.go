package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// MemoryPersistence is an in-memory implementation of IGatePersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Deep copies data to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	acceptedTokens map[common.Address]struct{}

	// fraction id -> unix time of consumption
	consumedSlots map[types.FractionID]int64

	receipts map[types.FractionID]*types.WhitelistReceipt

	// call hash -> expiry
	seenCalls map[common.Hash]time.Time

	gateState *types.GateState

	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
// Prints a loud warning since this should only be used for testing.
func NewMemoryPersistence() *MemoryPersistence {
	fmt.Println("⚠️  WARNING: Using in-memory persistence - consumed whitelist slots WILL BE FORGOTTEN ON RESTART")
	fmt.Println("⚠️  This should ONLY be used for testing. Set ARTFI_PERSISTENCE_TYPE=badger for production")

	return &MemoryPersistence{
		acceptedTokens: make(map[common.Address]struct{}),
		consumedSlots:  make(map[types.FractionID]int64),
		receipts:       make(map[types.FractionID]*types.WhitelistReceipt),
		seenCalls:      make(map[common.Hash]time.Time),
	}
}

func (m *MemoryPersistence) SetTokenAccepted(asset common.Address, accepted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	if accepted {
		m.acceptedTokens[asset] = struct{}{}
	} else {
		delete(m.acceptedTokens, asset)
	}
	return nil
}

func (m *MemoryPersistence) IsTokenAccepted(asset common.Address) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, persistence.ErrClosed
	}

	_, ok := m.acceptedTokens[asset]
	return ok, nil
}

func (m *MemoryPersistence) ListAcceptedTokens() ([]common.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	result := make([]common.Address, 0, len(m.acceptedTokens))
	for addr := range m.acceptedTokens {
		result = append(result, addr)
	}
	persistence.SortAddresses(result)
	return result, nil
}

// ConsumeSlot marks the slot consumed unless it already is.
func (m *MemoryPersistence) ConsumeSlot(id types.FractionID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, persistence.ErrClosed
	}

	if _, used := m.consumedSlots[id]; used {
		return false, nil
	}
	m.consumedSlots[id] = time.Now().Unix()
	return true, nil
}

func (m *MemoryPersistence) ReleaseSlot(id types.FractionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	delete(m.consumedSlots, id)
	return nil
}

func (m *MemoryPersistence) IsSlotConsumed(id types.FractionID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, persistence.ErrClosed
	}

	_, used := m.consumedSlots[id]
	return used, nil
}

// MarkCallSeen records hash until ttl passes, pruning expired entries as it goes.
func (m *MemoryPersistence) MarkCallSeen(hash common.Hash, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, persistence.ErrClosed
	}

	now := time.Now()
	for h, expiry := range m.seenCalls {
		if !now.Before(expiry) {
			delete(m.seenCalls, h)
		}
	}
	if _, seen := m.seenCalls[hash]; seen {
		return false, nil
	}
	m.seenCalls[hash] = now.Add(ttl)
	return true, nil
}

func (m *MemoryPersistence) SaveReceipt(receipt *types.WhitelistReceipt) error {
	if receipt == nil {
		return fmt.Errorf("cannot save nil WhitelistReceipt")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	m.receipts[receipt.FractionID] = receipt.Copy()
	return nil
}

func (m *MemoryPersistence) LoadReceipt(id types.FractionID) (*types.WhitelistReceipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	r, ok := m.receipts[id]
	if !ok {
		return nil, nil // Not found is not an error
	}
	return r.Copy(), nil
}

func (m *MemoryPersistence) ListReceipts() ([]*types.WhitelistReceipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	result := make([]*types.WhitelistReceipt, 0, len(m.receipts))
	for _, r := range m.receipts {
		result = append(result, r.Copy())
	}
	persistence.SortReceipts(result)
	return result, nil
}

func (m *MemoryPersistence) SaveGateState(state *types.GateState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil GateState")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	stateCopy := *state
	m.gateState = &stateCopy
	return nil
}

func (m *MemoryPersistence) LoadGateState() (*types.GateState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	if m.gateState == nil {
		return nil, nil
	}
	stateCopy := *m.gateState
	return &stateCopy, nil
}

// Close marks the store closed. Idempotent.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}
	return nil
}
