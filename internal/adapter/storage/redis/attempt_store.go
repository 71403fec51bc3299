package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// recordFailureScript increments the counter and sets its expiry in one step.
// A counter found without a TTL also gets one, so no key outlives its window.
var recordFailureScript = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// AttemptStore implements ports.AttemptTracker with a per-account counter
// that expires LockoutWindow after the first failure.
type AttemptStore struct {
	client *goredis.Client
	prefix string
}

// NewAttemptStore creates a new Redis-backed failed-PIN counter.
func NewAttemptStore(client *goredis.Client) *AttemptStore {
	return &AttemptStore{
		client: client,
		prefix: "pin_failures:",
	}
}

// Failures returns the failure count inside the current window.
func (s *AttemptStore) Failures(ctx context.Context, accountID string) (int64, error) {
	n, err := s.client.Get(ctx, s.prefix+accountID).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis attempts get: %w", err)
	}
	return n, nil
}

// RecordFailure increments the counter; the first failure starts the window.
func (s *AttemptStore) RecordFailure(ctx context.Context, accountID string, window time.Duration) (int64, error) {
	n, err := recordFailureScript.Run(ctx, s.client, []string{s.prefix + accountID}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis attempts incr: %w", err)
	}
	return n, nil
}

// Reset clears the counter.
func (s *AttemptStore) Reset(ctx context.Context, accountID string) error {
	if err := s.client.Del(ctx, s.prefix+accountID).Err(); err != nil {
		return fmt.Errorf("redis attempts del: %w", err)
	}
	return nil
}
