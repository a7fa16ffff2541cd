package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testValue struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(NewRedisClientFromConn(client, zap.NewNop()), zap.NewNop()), mr
}

func TestStoreSetGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", testValue{Name: "a", Count: 3}, time.Minute))

	var got testValue
	require.NoError(t, store.Get(ctx, "k", &got))
	assert.Equal(t, testValue{Name: "a", Count: 3}, got)
}

func TestStoreMissOnAbsent(t *testing.T) {
	store, _ := newTestStore(t)

	var got testValue
	assert.ErrorIs(t, store.Get(context.Background(), "nope", &got), ErrCacheMiss)
}

func TestStoreMissOnExpired(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", testValue{Name: "a"}, time.Second))
	mr.FastForward(2 * time.Second)

	var got testValue
	assert.ErrorIs(t, store.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestStoreMissOnCorruptRecord(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, mr.Set("k", "not json at all"))

	var got testValue
	assert.ErrorIs(t, store.Get(context.Background(), "k", &got), ErrCacheMiss)
}

func TestStoreMissOnSchemaVersionMismatch(t *testing.T) {
	store, mr := newTestStore(t)

	old, err := json.Marshal(record{
		SchemaVersion: SchemaVersion + 1,
		Value:         json.RawMessage(`{"name":"a","count":1}`),
		StoredAt:      time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, mr.Set("k", string(old)))

	var got testValue
	assert.ErrorIs(t, store.Get(context.Background(), "k", &got), ErrCacheMiss)
}

func TestStoreZeroTTLNeverExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", testValue{Name: "a"}, 0))
	mr.FastForward(24 * time.Hour)

	var got testValue
	assert.NoError(t, store.Get(ctx, "k", &got))
}

func TestStoreInvalidateIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", testValue{}, time.Minute))
	assert.NoError(t, store.Invalidate(ctx, "k"))
	assert.NoError(t, store.Invalidate(ctx, "k"))

	var got testValue
	assert.ErrorIs(t, store.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestStoreStoredAt(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, store.Set(ctx, "k", testValue{}, time.Minute))

	at, err := store.StoredAt(ctx, "k")
	require.NoError(t, err)
	assert.True(t, at.After(before))
}
