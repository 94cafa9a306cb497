package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Key prefixes for namespacing
const (
	keyPrefixToken       = "token:"
	keyPrefixSlot        = "slot:"
	keyPrefixReceipt     = "receipt:"
	keyPrefixCall        = "call:"
	keyGateState         = "gatestate:main"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerPersistence is a production-ready persistence implementation using Badger.
// Provides durable, disk-based storage with ACID guarantees.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBadgerPersistence creates a new Badger-backed persistence layer.
// The database is opened at the specified path with SyncWrites enabled for durability.
// A background goroutine is started for garbage collection.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = newBadgerLogger(logger)
	opts.SyncWrites = true // fsync on every write; a consumed slot must survive a crash
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger persistence initialized", "path", absPath)

	return bp, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}
		return nil
	})
}

// runGC runs periodic value log garbage collection in the background
func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func tokenKey(asset common.Address) []byte {
	return []byte(keyPrefixToken + strings.ToLower(asset.Hex()))
}

func slotKey(id types.FractionID) []byte {
	return []byte(keyPrefixSlot + id.Hex())
}

func callKey(hash common.Hash) []byte {
	return []byte(keyPrefixCall + hash.Hex())
}

func receiptKey(id types.FractionID) []byte {
	return []byte(keyPrefixReceipt + id.Hex())
}

// readValue returns nil, nil when key does not exist.
func readValue(txn *badgerdb.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (b *BadgerPersistence) exists(key []byte) (bool, error) {
	var found bool
	err := b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// SetTokenAccepted stores accepted assets as keys; a rejected asset has no key.
func (b *BadgerPersistence) SetTokenAccepted(asset common.Address, accepted bool) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		if accepted {
			return txn.Set(tokenKey(asset), []byte{1})
		}
		return txn.Delete(tokenKey(asset))
	})
}

func (b *BadgerPersistence) IsTokenAccepted(asset common.Address) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, persistence.ErrClosed
	}

	ok, err := b.exists(tokenKey(asset))
	if err != nil {
		return false, fmt.Errorf("failed to read token %s: %w", asset.Hex(), err)
	}
	return ok, nil
}

func (b *BadgerPersistence) ListAcceptedTokens() ([]common.Address, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	var tokens []common.Address
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefixToken)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			addr := strings.TrimPrefix(key, keyPrefixToken)
			if !common.IsHexAddress(addr) {
				b.logger.Sugar().Warnw("Malformed token key, skipping", "key", key)
				continue
			}
			tokens = append(tokens, common.HexToAddress(addr))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted tokens: %w", err)
	}

	if tokens == nil {
		tokens = []common.Address{}
	}
	persistence.SortAddresses(tokens)
	return tokens, nil
}

// ConsumeSlot performs a read-then-write in one transaction. Badger's optimistic
// concurrency control aborts the loser of a concurrent race with ErrConflict.
func (b *BadgerPersistence) ConsumeSlot(id types.FractionID) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, persistence.ErrClosed
	}

	consumed := false
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(slotKey(id))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}

		ts := make([]byte, 8)
		binary.BigEndian.PutUint64(ts, uint64(time.Now().Unix()))
		if err := txn.Set(slotKey(id), ts); err != nil {
			return err
		}
		consumed = true
		return nil
	})
	if errors.Is(err, badgerdb.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume slot %s: %w", id.Hex(), err)
	}
	return consumed, nil
}

// MarkCallSeen stores the call hash with a Badger TTL, so expired hashes read as absent.
func (b *BadgerPersistence) MarkCallSeen(hash common.Hash, ttl time.Duration) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, persistence.ErrClosed
	}

	marked := false
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(callKey(hash))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		if err := txn.SetEntry(badgerdb.NewEntry(callKey(hash), []byte{1}).WithTTL(ttl)); err != nil {
			return err
		}
		marked = true
		return nil
	})
	if errors.Is(err, badgerdb.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record call %s: %w", hash.Hex(), err)
	}
	return marked, nil
}

func (b *BadgerPersistence) ReleaseSlot(id types.FractionID) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(slotKey(id))
	})
}

func (b *BadgerPersistence) IsSlotConsumed(id types.FractionID) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, persistence.ErrClosed
	}

	ok, err := b.exists(slotKey(id))
	if err != nil {
		return false, fmt.Errorf("failed to read slot %s: %w", id.Hex(), err)
	}
	return ok, nil
}

func (b *BadgerPersistence) SaveReceipt(receipt *types.WhitelistReceipt) error {
	if receipt == nil {
		return fmt.Errorf("cannot save nil WhitelistReceipt")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	data, err := persistence.MarshalReceipt(receipt)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(receiptKey(receipt.FractionID), data)
	})
}

func (b *BadgerPersistence) LoadReceipt(id types.FractionID) (*types.WhitelistReceipt, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		var err error
		data, err = readValue(txn, receiptKey(id))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt %s: %w", id.Hex(), err)
	}
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalReceipt(data)
}

func (b *BadgerPersistence) ListReceipts() ([]*types.WhitelistReceipt, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	receipts := make([]*types.WhitelistReceipt, 0)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixReceipt)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			data, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			receipt, err := persistence.UnmarshalReceipt(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal WhitelistReceipt, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}
			receipts = append(receipts, receipt)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	persistence.SortReceipts(receipts)
	return receipts, nil
}

func (b *BadgerPersistence) SaveGateState(state *types.GateState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil GateState")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	data, err := persistence.MarshalGateState(state)
	if err != nil {
		return fmt.Errorf("failed to marshal GateState: %w", err)
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keyGateState), data)
	})
}

func (b *BadgerPersistence) LoadGateState() (*types.GateState, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		var err error
		data, err = readValue(txn, []byte(keyGateState))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load GateState: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalGateState(data)
}

// Close shuts down the persistence layer
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
