package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the kind of balance movement.
type TransactionKind string

const (
	TransactionKindDeposit     TransactionKind = "DEPOSIT"
	TransactionKindWithdrawal  TransactionKind = "WITHDRAWAL"
	TransactionKindTransferOut TransactionKind = "TRANSFER_OUT"
	TransactionKindTransferIn  TransactionKind = "TRANSFER_IN"
)

// Transaction is an immutable history record of one committed balance mutation.
type Transaction struct {
	ID               uuid.UUID       `json:"id"`
	AccountID        string          `json:"account_id"`
	Kind             TransactionKind `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	CounterpartyID   string          `json:"counterparty_id,omitempty"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
	CreatedAt        time.Time       `json:"created_at"`
}

func newTransaction(accountID string, kind TransactionKind, amount decimal.Decimal, counterparty string, balance decimal.Decimal, at time.Time) Transaction {
	return Transaction{
		ID:               uuid.New(),
		AccountID:        accountID,
		Kind:             kind,
		Amount:           amount,
		CounterpartyID:   counterparty,
		ResultingBalance: balance,
		CreatedAt:        at,
	}
}

// IsCredit returns true if the record increased the balance.
func (t Transaction) IsCredit() bool {
	return t.Kind == TransactionKindDeposit || t.Kind == TransactionKindTransferIn
}

// SignedAmount returns the amount with the sign of its effect on the balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.IsCredit() {
		return t.Amount
	}
	return t.Amount.Neg()
}

// String renders the record as a history line, e.g. "Transfer to A2: -100".
func (t Transaction) String() string {
	sign := "-"
	if t.IsCredit() {
		sign = "+"
	}

	var label string
	switch t.Kind {
	case TransactionKindDeposit:
		label = "Deposit"
	case TransactionKindWithdrawal:
		label = "Withdrawal"
	case TransactionKindTransferOut:
		label = "Transfer to " + t.CounterpartyID
	case TransactionKindTransferIn:
		label = "Transfer from " + t.CounterpartyID
	default:
		label = string(t.Kind)
	}

	return fmt.Sprintf("%s: %s%s", label, sign, t.Amount.String())
}
