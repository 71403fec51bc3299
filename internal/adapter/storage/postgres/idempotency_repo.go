package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pin-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyCache on the idempotency_keys
// table. It is used when Redis is disabled but PostgreSQL is not.
// A row with status_code 0 is an in-flight reservation.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Reserve inserts an in-flight row, or takes over an expired one.
func (r *IdempotencyRepo) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	query := `INSERT INTO idempotency_keys (key, status_code, body, created_at, expires_at)
		VALUES ($1, 0, NULL, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET status_code = 0, body = NULL, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
		WHERE idempotency_keys.expires_at < $2`

	tag, err := r.pool.Exec(ctx, query, key, now, now.Add(ttl))
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get returns the completed response for key, or nil if there is none.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotentResponse, error) {
	query := `SELECT key, fingerprint, status_code, body, created_at FROM idempotency_keys
		WHERE key = $1 AND status_code > 0 AND expires_at > $2`

	resp := &domain.IdempotentResponse{}
	err := r.pool.QueryRow(ctx, query, key, time.Now().UTC()).
		Scan(&resp.Key, &resp.Fingerprint, &resp.StatusCode, &resp.Body, &resp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return resp, nil
}

// Complete stores the final response for a reserved key.
func (r *IdempotencyRepo) Complete(ctx context.Context, resp *domain.IdempotentResponse, ttl time.Duration) error {
	query := `INSERT INTO idempotency_keys (key, fingerprint, status_code, body, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE
		SET fingerprint = EXCLUDED.fingerprint, status_code = EXCLUDED.status_code,
			body = EXCLUDED.body, expires_at = EXCLUDED.expires_at`

	_, err := r.pool.Exec(ctx, query,
		resp.Key, resp.Fingerprint, resp.StatusCode, resp.Body, resp.CreatedAt, resp.CreatedAt.Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release deletes an in-flight reservation. Completed rows are kept.
func (r *IdempotencyRepo) Release(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND status_code = 0`, key)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
