package dto

import (
	"time"

	"pin-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// CreateAccountRequest is the request body for opening an account.
type CreateAccountRequest struct {
	AccountID      string          `json:"account_id" binding:"required,max=64,safe_id"`
	HolderName     string          `json:"holder_name" binding:"required,min=1,max=100"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	PIN            string          `json:"pin" binding:"required,pin" sanitize:"-"`
}

// AmountRequest is the request body for deposit and withdraw.
type AmountRequest struct {
	PIN    string          `json:"pin" binding:"required" sanitize:"-"`
	Amount decimal.Decimal `json:"amount"`
}

// TransferRequest is the request body for a transfer out of the path account.
type TransferRequest struct {
	PIN         string          `json:"pin" binding:"required" sanitize:"-"`
	RecipientID string          `json:"recipient_id" binding:"required,max=64,safe_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// AdminLoginRequest is the request body for operator login.
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required,max=128" sanitize:"-"`
}

// LoginResponse is the response body for successful operator login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// TransactionResponse renders one history record.
type TransactionResponse struct {
	ID               string          `json:"id"`
	Kind             string          `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	CounterpartyID   string          `json:"counterparty_id,omitempty"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
	Description      string          `json:"description"`
	CreatedAt        string          `json:"created_at"`
}

// MutationResponse is returned by deposit, withdraw and transfer.
type MutationResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Balance     decimal.Decimal     `json:"balance"`
}

// BalanceResponse is the response body for a balance query.
type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// HistoryResponse lists an account's records oldest first.
type HistoryResponse struct {
	AccountID string                `json:"account_id"`
	Entries   []TransactionResponse `json:"entries"`
	Total     int                   `json:"total"`
}

// CloseAccountResponse confirms an account was closed.
type CloseAccountResponse struct {
	AccountID string `json:"account_id"`
	Closed    bool   `json:"closed"`
}

// AccountListResponse is the operator view of every open account.
type AccountListResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

// NewTransactionResponse converts a domain record.
func NewTransactionResponse(tx domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               tx.ID.String(),
		Kind:             string(tx.Kind),
		Amount:           tx.Amount,
		CounterpartyID:   tx.CounterpartyID,
		ResultingBalance: tx.ResultingBalance,
		Description:      tx.String(),
		CreatedAt:        tx.CreatedAt.Format(time.RFC3339),
	}
}
