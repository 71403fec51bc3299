package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
)

// AccountKind tags the account variant. Only savings accounts exist.
type AccountKind string

const AccountKindSavings AccountKind = "SAVINGS"

// Account owns a balance and its append-only history.
//
// The balance/history pair is guarded by a weighted semaphore of size one so
// that acquisition can honour a context deadline. Identity fields never change
// after construction and are read without the guard.
type Account struct {
	id          string
	incarnation uuid.UUID
	holderName  string
	kind        AccountKind
	credential  string // as sealed by the credential verifier
	createdAt   time.Time

	guard   *semaphore.Weighted
	balance decimal.Decimal
	history []Transaction
	closed  bool
}

// AccountSnapshot is a point-in-time copy of an account's state.
type AccountSnapshot struct {
	ID           string          `json:"id"`
	HolderName   string          `json:"holder_name"`
	Kind         AccountKind     `json:"kind"`
	Balance      decimal.Decimal `json:"balance"`
	HistoryCount int             `json:"history_count"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewAccount creates a savings account. The opening balance is not a history record.
func NewAccount(id, holderName string, initialBalance decimal.Decimal, sealedCredential string) (*Account, error) {
	if initialBalance.IsNegative() {
		return nil, ErrInvalidAmount
	}
	return &Account{
		id:          id,
		incarnation: uuid.New(),
		holderName:  holderName,
		kind:        AccountKindSavings,
		credential:  sealedCredential,
		createdAt:   time.Now().UTC(),
		guard:       semaphore.NewWeighted(1),
		balance:     initialBalance,
	}, nil
}

func (a *Account) ID() string { return a.id }

// Incarnation distinguishes this account from any earlier one that held the same id.
func (a *Account) Incarnation() string { return a.incarnation.String() }

func (a *Account) HolderName() string { return a.holderName }

func (a *Account) Kind() AccountKind { return a.kind }

func (a *Account) CreatedAt() time.Time { return a.createdAt }

// SealedCredential returns the credential as stored by the verifier that created the account.
func (a *Account) SealedCredential() string { return a.credential }

// Deposit credits amount and appends a Deposit record.
func (a *Account) Deposit(ctx context.Context, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	if err := a.lock(ctx); err != nil {
		return Transaction{}, err
	}
	defer a.unlock()

	if a.closed {
		return Transaction{}, ErrAccountClosed
	}
	return a.credit(TransactionKindDeposit, amount, "", time.Now().UTC()), nil
}

// Withdraw debits amount if the balance covers it and appends a Withdrawal record.
func (a *Account) Withdraw(ctx context.Context, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	if err := a.lock(ctx); err != nil {
		return Transaction{}, err
	}
	defer a.unlock()

	if a.closed {
		return Transaction{}, ErrAccountClosed
	}
	if a.balance.LessThan(amount) {
		return Transaction{}, ErrInsufficientFunds
	}
	return a.debit(TransactionKindWithdrawal, amount, "", time.Now().UTC()), nil
}

// Transfer moves amount from a to recipient as one unit. Both guards are held
// for the whole operation, taken in ascending id order so that two opposing
// transfers cannot deadlock. The sender is debited and logged before the
// recipient is credited; on any failure neither account changes.
func (a *Account) Transfer(ctx context.Context, recipient *Account, amount decimal.Decimal) (out Transaction, in Transaction, err error) {
	if !amount.IsPositive() {
		return Transaction{}, Transaction{}, ErrInvalidAmount
	}
	if recipient == nil {
		return Transaction{}, Transaction{}, ErrAccountClosed
	}
	if recipient == a || recipient.id == a.id {
		return Transaction{}, Transaction{}, ErrSameAccount
	}

	first, second := a, recipient
	if second.id < first.id {
		first, second = second, first
	}
	if err := first.lock(ctx); err != nil {
		return Transaction{}, Transaction{}, err
	}
	defer first.unlock()
	if err := second.lock(ctx); err != nil {
		return Transaction{}, Transaction{}, err
	}
	defer second.unlock()

	if a.closed || recipient.closed {
		return Transaction{}, Transaction{}, ErrAccountClosed
	}
	if a.balance.LessThan(amount) {
		return Transaction{}, Transaction{}, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	out = a.debit(TransactionKindTransferOut, amount, recipient.id, now)
	in = recipient.credit(TransactionKindTransferIn, amount, a.id, now)
	return out, in, nil
}

// Balance returns the current balance.
func (a *Account) Balance(ctx context.Context) (decimal.Decimal, error) {
	if err := a.lock(ctx); err != nil {
		return decimal.Zero, err
	}
	defer a.unlock()

	if a.closed {
		return decimal.Zero, ErrAccountClosed
	}
	return a.balance, nil
}

// History returns a copy of the records in the order they were committed.
func (a *Account) History(ctx context.Context) ([]Transaction, error) {
	if err := a.lock(ctx); err != nil {
		return nil, err
	}
	defer a.unlock()

	if a.closed {
		return nil, ErrAccountClosed
	}
	out := make([]Transaction, len(a.history))
	copy(out, a.history)
	return out, nil
}

// Snapshot returns a consistent copy of identity, balance and history size.
func (a *Account) Snapshot(ctx context.Context) (AccountSnapshot, error) {
	if err := a.lock(ctx); err != nil {
		return AccountSnapshot{}, err
	}
	defer a.unlock()

	if a.closed {
		return AccountSnapshot{}, ErrAccountClosed
	}
	return AccountSnapshot{
		ID:           a.id,
		HolderName:   a.holderName,
		Kind:         a.kind,
		Balance:      a.balance,
		HistoryCount: len(a.history),
		CreatedAt:    a.createdAt,
	}, nil
}

// Close marks the account closed. Operations racing with the close observe
// ErrAccountClosed once they acquire the guard.
func (a *Account) Close(ctx context.Context) error {
	if err := a.lock(ctx); err != nil {
		return err
	}
	defer a.unlock()

	if a.closed {
		return ErrAccountClosed
	}
	a.closed = true
	return nil
}

// credit and debit require the guard to be held.
func (a *Account) credit(kind TransactionKind, amount decimal.Decimal, counterparty string, at time.Time) Transaction {
	a.balance = a.balance.Add(amount)
	tx := newTransaction(a.id, kind, amount, counterparty, a.balance, at)
	a.history = append(a.history, tx)
	return tx
}

func (a *Account) debit(kind TransactionKind, amount decimal.Decimal, counterparty string, at time.Time) Transaction {
	a.balance = a.balance.Sub(amount)
	tx := newTransaction(a.id, kind, amount, counterparty, a.balance, at)
	a.history = append(a.history, tx)
	return tx
}

func (a *Account) lock(ctx context.Context) error {
	if err := a.guard.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAccountBusy, a.id, err)
	}
	return nil
}

func (a *Account) unlock() {
	a.guard.Release(1)
}
