package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"pin-ledger/internal/core/domain"
)

// TransactionJournal exports committed transaction records to durable storage.
// The journal is write-only: the ledger never reads it back on startup.
type TransactionJournal interface {
	// Record stores a single deposit or withdrawal record.
	Record(ctx context.Context, tx domain.Transaction) error
	// RecordTransfer stores both legs of a transfer atomically.
	RecordTransfer(ctx context.Context, out, in domain.Transaction) error
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// IdempotencyCache stores completed responses keyed by domain.BuildIdempotencyKey.
type IdempotencyCache interface {
	// Reserve marks key as in flight. Returns false if the key is already reserved or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Get returns the completed response, or nil if none is stored.
	Get(ctx context.Context, key string) (*domain.IdempotentResponse, error)
	// Complete stores the final response, replacing the reservation.
	Complete(ctx context.Context, resp *domain.IdempotentResponse, ttl time.Duration) error
	// Release drops a reservation whose request failed so the client may retry.
	Release(ctx context.Context, key string) error
}

// AttemptTracker counts failed credential checks per account within a window.
type AttemptTracker interface {
	// Failures returns the current failure count for accountID.
	Failures(ctx context.Context, accountID string) (int64, error)
	// RecordFailure increments the counter, starting the window on the first failure.
	RecordFailure(ctx context.Context, accountID string, window time.Duration) (int64, error)
	// Reset clears the counter after a successful check.
	Reset(ctx context.Context, accountID string) error
}
