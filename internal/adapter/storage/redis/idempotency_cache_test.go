package redis_test

import (
	"context"
	"testing"
	"time"

	"pin-ledger/internal/adapter/storage/redis"
	"pin-ledger/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestIdempotencyCache_Lifecycle(t *testing.T) {
	mr, client := newTestClient(t)
	cache := redis.NewIdempotencyCache(client)
	ctx := context.Background()
	key := domain.BuildIdempotencyKey("A1", "deposit", "k1")

	ok, err := cache.Reserve(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Reserve(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must fail while in flight")

	resp, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, resp, "in-flight key has no response yet")

	stored := &domain.IdempotentResponse{
		Key:        key,
		StatusCode: 200,
		Body:       []byte(`{"data":{"balance":"150"}}`),
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, cache.Complete(ctx, stored, time.Hour))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 200, got.StatusCode)
	assert.JSONEq(t, string(stored.Body), string(got.Body))

	// Release never removes a completed response.
	require.NoError(t, cache.Release(ctx, key))
	got, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, got)

	mr.FastForward(2 * time.Hour)
	got, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "expired after ttl")
}

func TestIdempotencyCache_ReleaseAllowsRetry(t *testing.T) {
	_, client := newTestClient(t)
	cache := redis.NewIdempotencyCache(client)
	ctx := context.Background()

	ok, err := cache.Reserve(ctx, "A1:withdraw:k2", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, cache.Release(ctx, "A1:withdraw:k2"))

	ok, err = cache.Reserve(ctx, "A1:withdraw:k2", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyCache_Get_Missing(t *testing.T) {
	_, client := newTestClient(t)
	cache := redis.NewIdempotencyCache(client)

	got, err := cache.Get(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdempotencyCache_Get_Corrupt(t *testing.T) {
	mr, client := newTestClient(t)
	cache := redis.NewIdempotencyCache(client)
	require.NoError(t, mr.Set("idempotency:bad", "{not json"))

	_, err := cache.Get(context.Background(), "bad")
	assert.ErrorContains(t, err, "decode idempotent response")
}
