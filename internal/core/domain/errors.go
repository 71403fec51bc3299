package domain

import "errors"

// Domain errors returned by Account operations. The service layer maps them to
// apperror codes; the account state is unchanged whenever one is returned.
var (
	// ErrInvalidAmount: amount <= 0, or a negative opening balance.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInsufficientFunds: the debit would take the balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccount: transfer sender and recipient are the same account.
	ErrSameAccount = errors.New("sender and recipient are the same account")

	// ErrAccountClosed: the account was removed from the directory.
	ErrAccountClosed = errors.New("account is closed")

	// ErrAccountBusy: the account guard could not be acquired before the context ended.
	ErrAccountBusy = errors.New("account busy")
)
