package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key names for namespacing in Redis
const (
	keyAcceptedTokens    = "artfi:tokens:accepted"
	keyPrefixSlot        = "artfi:slot:"
	keyPrefixReceipt     = "artfi:receipt:"
	keyPrefixCall        = "artfi:call:"
	keyGateState         = "artfi:gatestate:main"
	keySchemaVersion     = "artfi:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Redis has no prefix iteration without SCAN, so receipts are indexed in a set
	keySetReceipts = "artfi:receipts:index"

	opTimeout = 5 * time.Second
)

// RedisPersistence is a production-ready persistence implementation using Redis.
// Suitable when several gate nodes share one slot ledger: ConsumeSlot is a SETNX.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to every key, e.g. "gate1:" gives "gate1:artfi:slot:0x..".
	KeyPrefix string
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)

	return rp, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisPersistence) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisPersistence) slotKey(id types.FractionID) string {
	return r.prefixKey(keyPrefixSlot + id.Hex())
}

func (r *RedisPersistence) receiptKey(id types.FractionID) string {
	return r.prefixKey(keyPrefixReceipt + id.Hex())
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

func (r *RedisPersistence) SetTokenAccepted(asset common.Address, accepted bool) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	key := r.prefixKey(keyAcceptedTokens)
	var err error
	if accepted {
		err = r.client.SAdd(ctx, key, asset.Hex()).Err()
	} else {
		err = r.client.SRem(ctx, key, asset.Hex()).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to update token %s: %w", asset.Hex(), err)
	}
	return nil
}

func (r *RedisPersistence) IsTokenAccepted(asset common.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ok, err := r.client.SIsMember(ctx, r.prefixKey(keyAcceptedTokens), asset.Hex()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read token %s: %w", asset.Hex(), err)
	}
	return ok, nil
}

func (r *RedisPersistence) ListAcceptedTokens() ([]common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	members, err := r.client.SMembers(ctx, r.prefixKey(keyAcceptedTokens)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted tokens: %w", err)
	}

	tokens := make([]common.Address, 0, len(members))
	for _, m := range members {
		if !common.IsHexAddress(m) {
			r.logger.Sugar().Warnw("Malformed token member, skipping", "member", m)
			continue
		}
		tokens = append(tokens, common.HexToAddress(m))
	}
	persistence.SortAddresses(tokens)
	return tokens, nil
}

// ConsumeSlot uses SETNX, so concurrent gate nodes sharing a Redis agree on one winner.
func (r *RedisPersistence) ConsumeSlot(id types.FractionID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ok, err := r.client.SetNX(ctx, r.slotKey(id), time.Now().Unix(), 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume slot %s: %w", id.Hex(), err)
	}
	return ok, nil
}

// MarkCallSeen is a SETNX with expiry, shared by every node on the same Redis.
func (r *RedisPersistence) MarkCallSeen(hash common.Hash, ttl time.Duration) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ok, err := r.client.SetNX(ctx, r.prefixKey(keyPrefixCall+hash.Hex()), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record call %s: %w", hash.Hex(), err)
	}
	return ok, nil
}

func (r *RedisPersistence) ReleaseSlot(id types.FractionID) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.slotKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to release slot %s: %w", id.Hex(), err)
	}
	return nil
}

func (r *RedisPersistence) IsSlotConsumed(id types.FractionID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	n, err := r.client.Exists(ctx, r.slotKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read slot %s: %w", id.Hex(), err)
	}
	return n > 0, nil
}

func (r *RedisPersistence) SaveReceipt(receipt *types.WhitelistReceipt) error {
	if receipt == nil {
		return fmt.Errorf("cannot save nil WhitelistReceipt")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	data, err := persistence.MarshalReceipt(receipt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.receiptKey(receipt.FractionID), data, 0)
		pipe.SAdd(ctx, r.prefixKey(keySetReceipts), receipt.FractionID.Hex())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save receipt %s: %w", receipt.FractionID.Hex(), err)
	}
	return nil
}

func (r *RedisPersistence) LoadReceipt(id types.FractionID) (*types.WhitelistReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.receiptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt %s: %w", id.Hex(), err)
	}
	return persistence.UnmarshalReceipt(data)
}

func (r *RedisPersistence) ListReceipts() ([]*types.WhitelistReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ids, err := r.client.SMembers(ctx, r.prefixKey(keySetReceipts)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list receipt index: %w", err)
	}

	receipts := make([]*types.WhitelistReceipt, 0, len(ids))
	if len(ids) == 0 {
		return receipts, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, r.prefixKey(keyPrefixReceipt+id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to fetch receipts: %w", err)
	}

	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			r.logger.Sugar().Warnw("Receipt index entry without receipt, skipping", "fractionId", ids[i])
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch receipt %s: %w", ids[i], err)
		}
		receipt, err := persistence.UnmarshalReceipt(data)
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal WhitelistReceipt, skipping", "fractionId", ids[i], "error", err)
			continue
		}
		receipts = append(receipts, receipt)
	}

	persistence.SortReceipts(receipts)
	return receipts, nil
}

func (r *RedisPersistence) SaveGateState(state *types.GateState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil GateState")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	data, err := persistence.MarshalGateState(state)
	if err != nil {
		return fmt.Errorf("failed to marshal GateState: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.client.Set(ctx, r.prefixKey(keyGateState), data, 0).Err()
}

func (r *RedisPersistence) LoadGateState() (*types.GateState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefixKey(keyGateState)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load GateState: %w", err)
	}
	return persistence.UnmarshalGateState(data)
}

// Close shuts down the persistence layer
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	return nil
}
