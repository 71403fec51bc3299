package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pin-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// pendingMarker is stored under a key while its request is in flight.
const pendingMarker = "__pending__"

// releaseScript deletes the key only while it still holds the pending marker.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IdempotencyCache implements ports.IdempotencyCache using Redis.
type IdempotencyCache struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: "idempotency:",
	}
}

// Reserve claims key with SETNX. Returns false if it is in flight or completed.
func (c *IdempotencyCache) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.prefix+key, pendingMarker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis idempotency reserve: %w", err)
	}
	return ok, nil
}

// Get retrieves a completed response by idempotency key.
// Returns nil, nil if the key does not exist or is still in flight.
func (c *IdempotencyCache) Get(ctx context.Context, key string) (*domain.IdempotentResponse, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	if string(val) == pendingMarker {
		return nil, nil
	}

	var resp domain.IdempotentResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, fmt.Errorf("decode idempotent response: %w", err)
	}
	return &resp, nil
}

// Complete stores the response, replacing the reservation.
func (c *IdempotencyCache) Complete(ctx context.Context, resp *domain.IdempotentResponse, ttl time.Duration) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode idempotent response: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+resp.Key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}

// Release drops an in-flight reservation. Completed responses are left alone.
func (c *IdempotencyCache) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, c.client, []string{c.prefix + key}, pendingMarker).Err(); err != nil {
		return fmt.Errorf("redis idempotency release: %w", err)
	}
	return nil
}
