// Package idempotency suppresses re-execution of mutating operations
// replayed with the same client-supplied key. A hit returns the cached
// status and body byte-for-byte, bypassing all business logic.
//
// The guard deliberately lives outside ledger transactions: a crash
// between ledger commit and record write risks one un-deduplicated
// replay, never data corruption.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/taklabs/coordinator/internal/metrics"
	"github.com/taklabs/coordinator/pkg/cache"
)

// Record is a cached response for an idempotency key.
type Record struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// Store persists idempotency records with a retention window.
type Store interface {
	// Lookup returns the record for key, or nil on a miss.
	Lookup(ctx context.Context, key string) (*Record, error)
	// Record stores the response for key; the entry expires after the
	// store's retention window.
	Record(ctx context.Context, key string, rec Record) error
}

// Guard wraps a Store with metrics and makes lookup failures
// non-fatal: a broken cache degrades to re-execution, it never blocks
// the operation itself.
type Guard struct {
	store  Store
	logger *zap.Logger
}

func NewGuard(store Store, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{store: store, logger: logger}
}

// Lookup returns the cached record for key, or nil.
func (g *Guard) Lookup(ctx context.Context, key string) *Record {
	rec, err := g.store.Lookup(ctx, key)
	if err != nil {
		g.logger.Warn("idempotency.lookup_failed", zap.String("key", key), zap.Error(err))
		metrics.IncError("idempotency", "lookup_failed")
		return nil
	}
	if rec == nil {
		metrics.IncIdempotency("miss")
		return nil
	}
	metrics.IncIdempotency("hit")
	return rec
}

// Record stores the response for key. Failures are logged, not surfaced:
// the operation already succeeded.
func (g *Guard) Record(ctx context.Context, key string, rec Record) {
	if err := g.store.Record(ctx, key, rec); err != nil {
		g.logger.Warn("idempotency.record_failed", zap.String("key", key), zap.Error(err))
		metrics.IncError("idempotency", "record_failed")
	}
}

// RedisStore keeps idempotency records in Redis with native TTL expiry.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func redisKey(key string) string { return "idem:" + key }

func (s *RedisStore) Lookup(ctx context.Context, key string) (*Record, error) {
	data, err := s.rdb.Get(ctx, redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Record(ctx context.Context, key string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.rdb.Set(ctx, redisKey(key), data, s.ttl).Err()
}

// MemoryStore keeps idempotency records in a process-local TTL cache.
// Intended for development runs without Redis; run StartSweep to purge
// expired entries.
type MemoryStore struct {
	cache *cache.Cache[Record]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New[Record](ttl)}
}

func (s *MemoryStore) Lookup(_ context.Context, key string) (*Record, error) {
	rec, ok := s.cache.Get(key)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Record(_ context.Context, key string, rec Record) error {
	s.cache.Put(key, rec)
	return nil
}

// StartSweep runs the expiry sweep until stop is closed.
func (s *MemoryStore) StartSweep(interval time.Duration, stop <-chan struct{}) {
	s.cache.StartCleaner(interval, stop)
}
