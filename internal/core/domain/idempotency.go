package domain

import (
	"time"
)

// IdempotentResponse is a completed HTTP response replayed for a repeated Idempotency-Key.
type IdempotentResponse struct {
	Key         string    `json:"key"`         // Format: "account_id:operation:client_key"
	Fingerprint string    `json:"fingerprint"` // hash of the original request body
	StatusCode  int       `json:"status_code"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// BuildIdempotencyKey scopes a client-supplied key to one account and operation,
// so the same key reused for a different account or endpoint does not collide.
func BuildIdempotencyKey(accountID, operation, clientKey string) string {
	return accountID + ":" + operation + ":" + clientKey
}
