package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"pin-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// CredentialVerifier seals account credentials at creation and checks supplied ones.
type CredentialVerifier interface {
	Seal(credential string) (string, error)
	Verify(supplied, sealed string) (bool, error)
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations for operators.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
	Role    string
}

// AuditService records audit events. Failures are logged, never returned.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// LedgerService is the ledger directory: it owns every account and mediates
// lookups and authorization. Every state-changing or state-revealing
// operation authorizes the acting account first.
type LedgerService interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*AccountView, error)
	Find(ctx context.Context, id string) (*domain.Account, error)
	Authorize(ctx context.Context, id, credential string) (*domain.Account, error)
	CloseAccount(ctx context.Context, id, credential string) error
	List(ctx context.Context) ([]AccountSummary, error)

	Deposit(ctx context.Context, req AmountRequest) (*MutationResult, error)
	Withdraw(ctx context.Context, req AmountRequest) (*MutationResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*MutationResult, error)
	Balance(ctx context.Context, req CredentialRequest) (decimal.Decimal, error)
	History(ctx context.Context, req CredentialRequest) ([]domain.Transaction, error)
}

// CreateAccountRequest holds validated input for opening an account.
type CreateAccountRequest struct {
	ID             string
	HolderName     string
	InitialBalance decimal.Decimal
	Credential     string
}

// CredentialRequest identifies an account and the credential presented for it.
type CredentialRequest struct {
	AccountID  string
	Credential string
}

// AmountRequest authorizes and applies a single-account deposit or withdrawal.
type AmountRequest struct {
	AccountID  string
	Credential string
	Amount     decimal.Decimal
}

// TransferRequest authorizes the sender and moves Amount to RecipientID.
type TransferRequest struct {
	AccountID   string
	Credential  string
	RecipientID string
	Amount      decimal.Decimal
}

// MutationResult is the acting account's record and resulting balance.
type MutationResult struct {
	Transaction domain.Transaction
	Balance     decimal.Decimal
}

// AccountView is returned when an account is opened.
type AccountView struct {
	ID         string             `json:"account_id"`
	HolderName string             `json:"holder_name"`
	Kind       domain.AccountKind `json:"kind"`
	Balance    decimal.Decimal    `json:"balance"`
	CreatedAt  time.Time          `json:"created_at"`
}

// AccountSummary is the operator listing entry. Balances are not included.
type AccountSummary struct {
	ID         string             `json:"account_id"`
	HolderName string             `json:"holder_name"`
	Kind       domain.AccountKind `json:"kind"`
	CreatedAt  time.Time          `json:"created_at"`
}

// AdminService authenticates operators.
type AdminService interface {
	Login(ctx context.Context, password string) (string, time.Time, error) // token, expiry, error
}
