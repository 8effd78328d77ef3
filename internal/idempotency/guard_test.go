package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(rdb, 24*time.Hour), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	rec := Record{Status: 201, Body: []byte(`{"id":"req_abc"}`)}
	require.NoError(t, store.Record(ctx, "key-1", rec))

	got, err := store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.Status)
	assert.Equal(t, []byte(`{"id":"req_abc"}`), got.Body)
}

func TestRedisStore_Miss(t *testing.T) {
	store, _ := newRedisStore(t)

	got, err := store.Lookup(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "key-1", Record{Status: 200, Body: []byte("{}")}))

	// A key reused after the retention window is treated as novel.
	mr.FastForward(25 * time.Hour)

	got, err := store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	rec := Record{Status: 200, Body: []byte(`{"ok":true}`)}
	require.NoError(t, store.Record(ctx, "key-1", rec))

	got, err := store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "key-1", Record{Status: 200}))
	time.Sleep(25 * time.Millisecond)

	got, err := store.Lookup(ctx, "key-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGuard_LookupFailureDegradesToMiss(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := NewGuard(NewRedisStore(rdb, time.Hour), zap.NewNop())

	// A broken cache must not block the operation.
	mr.Close()

	assert.Nil(t, guard.Lookup(context.Background(), "any"))
}

func TestGuard_HitAndMiss(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	guard := NewGuard(store, zap.NewNop())
	ctx := context.Background()

	assert.Nil(t, guard.Lookup(ctx, "k"))

	guard.Record(ctx, "k", Record{Status: 201, Body: []byte("body")})

	got := guard.Lookup(ctx, "k")
	require.NotNil(t, got)
	assert.Equal(t, 201, got.Status)
	assert.Equal(t, []byte("body"), got.Body)
}
