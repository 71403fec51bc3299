package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pin-ledger/internal/core/domain"
	"pin-ledger/internal/core/ports"
	"pin-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultOperationTimeout = 2 * time.Second
	journalWriteTimeout     = 3 * time.Second
)

// LedgerOptions tunes the ledger directory.
type LedgerOptions struct {
	// OperationTimeout bounds every directory operation, including lock waits.
	OperationTimeout time.Duration
	// UniformAuthErrors collapses AccountNotFound and InvalidCredential into
	// NotAuthorized during Authorize so callers cannot discover which ids exist.
	UniformAuthErrors bool
	// MaxFailedAttempts locks an account's PIN after this many failures within
	// LockoutWindow. Zero means unlimited retries. Requires an AttemptTracker.
	MaxFailedAttempts int64
	LockoutWindow     time.Duration
}

// LedgerServiceImpl implements ports.LedgerService. It is the sole owner of
// every Account.
type LedgerServiceImpl struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	order    []string // insertion order, for List

	verifier ports.CredentialVerifier
	journal  ports.TransactionJournal
	attempts ports.AttemptTracker
	opts     LedgerOptions
	log      zerolog.Logger
}

// NewLedgerService creates an empty ledger directory.
// journal and attempts may be nil to disable the journal and PIN lockout.
func NewLedgerService(
	verifier ports.CredentialVerifier,
	journal ports.TransactionJournal,
	attempts ports.AttemptTracker,
	opts LedgerOptions,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = defaultOperationTimeout
	}
	if attempts == nil {
		opts.MaxFailedAttempts = 0
	}
	return &LedgerServiceImpl{
		accounts: make(map[string]*domain.Account),
		verifier: verifier,
		journal:  journal,
		attempts: attempts,
		opts:     opts,
		log:      log,
	}
}

// CreateAccount opens a new savings account. The opening balance is not
// recorded as a history entry.
func (s *LedgerServiceImpl) CreateAccount(ctx context.Context, req ports.CreateAccountRequest) (*ports.AccountView, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, apperror.Validation("account id is required")
	}
	if req.Credential == "" {
		return nil, apperror.Validation("pin is required")
	}
	if req.InitialBalance.IsNegative() {
		return nil, apperror.ErrInvalidAmount()
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sealed, err := s.verifier.Seal(req.Credential)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("seal credential: %w", err))
	}

	acc, err := domain.NewAccount(id, req.HolderName, req.InitialBalance, sealed)
	if err != nil {
		return nil, mapDomainError(err)
	}

	// Sealing may be slow when hashing is on; give up before inserting.
	if err := ctx.Err(); err != nil {
		return nil, apperror.ErrLockTimeout(err)
	}

	s.mu.Lock()
	if _, exists := s.accounts[id]; exists {
		s.mu.Unlock()
		return nil, apperror.ErrDuplicateAccount()
	}
	s.accounts[id] = acc
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.log.Info().
		Str("account_id", id).
		Str("initial_balance", req.InitialBalance.String()).
		Msg("account created")

	return &ports.AccountView{
		ID:         acc.ID(),
		HolderName: acc.HolderName(),
		Kind:       acc.Kind(),
		Balance:    req.InitialBalance,
		CreatedAt:  acc.CreatedAt(),
	}, nil
}

// Find resolves an account by id without checking credentials.
func (s *LedgerServiceImpl) Find(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	acc, ok := s.accounts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperror.ErrAccountNotFound()
	}
	return acc, nil
}

// Authorize resolves id and checks credential against the stored one.
func (s *LedgerServiceImpl) Authorize(ctx context.Context, id, credential string) (*domain.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	acc, err := s.Find(ctx, id)
	if err != nil {
		if s.opts.UniformAuthErrors {
			return nil, apperror.ErrNotAuthorized()
		}
		return nil, err
	}

	if s.lockoutEnabled() {
		failures, err := s.attempts.Failures(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("account_id", id).Msg("failed to read PIN attempt counter")
		} else if failures >= s.opts.MaxFailedAttempts {
			s.log.Info().Str("account_id", id).Int64("failures", failures).Msg("PIN attempts locked out")
			// A distinct lockout error would confirm the id exists.
			if s.opts.UniformAuthErrors {
				return nil, apperror.ErrNotAuthorized()
			}
			return nil, apperror.ErrCredentialLocked()
		}
	}

	ok, err := s.verifier.Verify(credential, acc.SealedCredential())
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify credential: %w", err))
	}
	if !ok {
		s.recordFailure(ctx, id)
		if s.opts.UniformAuthErrors {
			return nil, apperror.ErrNotAuthorized()
		}
		return nil, apperror.ErrInvalidCredential()
	}

	if s.lockoutEnabled() {
		if err := s.attempts.Reset(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("account_id", id).Msg("failed to reset PIN attempt counter")
		}
	}

	return acc, nil
}

// CloseAccount authorizes and removes the account. Its state is discarded.
func (s *LedgerServiceImpl) CloseAccount(ctx context.Context, id, credential string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	acc, err := s.Authorize(ctx, id, credential)
	if err != nil {
		return err
	}

	if err := acc.Close(ctx); err != nil {
		return mapDomainError(err)
	}

	s.mu.Lock()
	if s.accounts[id] == acc {
		delete(s.accounts, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	s.log.Info().Str("account_id", id).Msg("account closed")
	return nil
}

// List returns account summaries in creation order.
func (s *LedgerServiceImpl) List(_ context.Context) ([]ports.AccountSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ports.AccountSummary, 0, len(s.order))
	for _, id := range s.order {
		acc := s.accounts[id]
		out = append(out, ports.AccountSummary{
			ID:         acc.ID(),
			HolderName: acc.HolderName(),
			Kind:       acc.Kind(),
			CreatedAt:  acc.CreatedAt(),
		})
	}
	return out, nil
}

// Deposit authorizes req.AccountID and credits req.Amount.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.AmountRequest) (*ports.MutationResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	acc, err := s.Authorize(ctx, req.AccountID, req.Credential)
	if err != nil {
		return nil, err
	}

	tx, err := acc.Deposit(ctx, req.Amount)
	if err != nil {
		return nil, mapDomainError(err)
	}

	s.journalRecord(ctx, tx)
	s.logCommitted(tx, "deposit committed")

	return &ports.MutationResult{Transaction: tx, Balance: tx.ResultingBalance}, nil
}

// Withdraw authorizes req.AccountID and debits req.Amount if funds allow.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, req ports.AmountRequest) (*ports.MutationResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	acc, err := s.Authorize(ctx, req.AccountID, req.Credential)
	if err != nil {
		return nil, err
	}

	tx, err := acc.Withdraw(ctx, req.Amount)
	if err != nil {
		return nil, mapDomainError(err)
	}

	s.journalRecord(ctx, tx)
	s.logCommitted(tx, "withdrawal committed")

	return &ports.MutationResult{Transaction: tx, Balance: tx.ResultingBalance}, nil
}

// Transfer authorizes the sender and moves req.Amount to req.RecipientID.
// The recipient is resolved without a credential.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.MutationResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sender, err := s.Authorize(ctx, req.AccountID, req.Credential)
	if err != nil {
		return nil, err
	}
	if req.RecipientID == req.AccountID {
		return nil, apperror.ErrSameAccount()
	}

	recipient, err := s.Find(ctx, req.RecipientID)
	if err != nil {
		return nil, err
	}

	out, in, err := sender.Transfer(ctx, recipient, req.Amount)
	if err != nil {
		return nil, mapDomainError(err)
	}

	if s.journal != nil {
		jctx, jcancel := journalContext(ctx)
		defer jcancel()
		if err := s.journal.RecordTransfer(jctx, out, in); err != nil {
			s.log.Warn().Err(err).Str("tx_id", out.ID.String()).Msg("failed to journal transfer")
		}
	}

	s.log.Info().
		Str("tx_id", out.ID.String()).
		Str("account_id", out.AccountID).
		Str("recipient_id", in.AccountID).
		Str("amount", out.Amount.String()).
		Msg("transfer committed")

	return &ports.MutationResult{Transaction: out, Balance: out.ResultingBalance}, nil
}

// Balance authorizes req.AccountID and returns its balance.
func (s *LedgerServiceImpl) Balance(ctx context.Context, req ports.CredentialRequest) (decimal.Decimal, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	acc, err := s.Authorize(ctx, req.AccountID, req.Credential)
	if err != nil {
		return decimal.Zero, err
	}

	balance, err := acc.Balance(ctx)
	if err != nil {
		return decimal.Zero, mapDomainError(err)
	}
	return balance, nil
}

// History authorizes req.AccountID and returns its records oldest first.
func (s *LedgerServiceImpl) History(ctx context.Context, req ports.CredentialRequest) ([]domain.Transaction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	acc, err := s.Authorize(ctx, req.AccountID, req.Credential)
	if err != nil {
		return nil, err
	}

	history, err := acc.History(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return history, nil
}

func (s *LedgerServiceImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.OperationTimeout)
}

func (s *LedgerServiceImpl) lockoutEnabled() bool {
	return s.opts.MaxFailedAttempts > 0
}

func (s *LedgerServiceImpl) recordFailure(ctx context.Context, id string) {
	s.log.Warn().Str("account_id", id).Msg("credential mismatch")

	if !s.lockoutEnabled() {
		return
	}
	failures, err := s.attempts.RecordFailure(ctx, id, s.opts.LockoutWindow)
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", id).Msg("failed to record PIN attempt")
		return
	}
	if failures >= s.opts.MaxFailedAttempts {
		s.log.Warn().Str("account_id", id).Int64("failures", failures).Msg("PIN locked")
	}
}

// journalRecord exports tx best-effort; the in-memory commit already happened.
func (s *LedgerServiceImpl) journalRecord(ctx context.Context, tx domain.Transaction) {
	if s.journal == nil {
		return
	}
	jctx, cancel := journalContext(ctx)
	defer cancel()
	if err := s.journal.Record(jctx, tx); err != nil {
		s.log.Warn().Err(err).Str("tx_id", tx.ID.String()).Msg("failed to journal transaction")
	}
}

func (s *LedgerServiceImpl) logCommitted(tx domain.Transaction, msg string) {
	s.log.Info().
		Str("tx_id", tx.ID.String()).
		Str("account_id", tx.AccountID).
		Str("amount", tx.Amount.String()).
		Str("balance", tx.ResultingBalance.String()).
		Msg(msg)
}

// journalContext detaches from the operation deadline, which may already be
// spent on lock waits.
func journalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), journalWriteTimeout)
}

// mapDomainError translates Account errors into API errors.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return apperror.ErrInvalidAmount()
	case errors.Is(err, domain.ErrInsufficientFunds):
		return apperror.ErrInsufficientFunds()
	case errors.Is(err, domain.ErrSameAccount):
		return apperror.ErrSameAccount()
	case errors.Is(err, domain.ErrAccountClosed):
		return apperror.ErrAccountNotFound()
	case errors.Is(err, domain.ErrAccountBusy),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperror.ErrLockTimeout(err)
	default:
		return apperror.InternalError(err)
	}
}
