package handler

import (
	"pin-ledger/internal/adapter/http/dto"
	"pin-ledger/internal/adapter/http/middleware"
	"pin-ledger/internal/core/ports"
	"pin-ledger/pkg/apperror"
	"pin-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles the PIN-gated account endpoints.
type AccountHandler struct {
	ledgerSvc ports.LedgerService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledgerSvc ports.LedgerService) *AccountHandler {
	return &AccountHandler{ledgerSvc: ledgerSvc}
}

// Create handles POST /api/v1/accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	view, err := h.ledgerSvc.CreateAccount(c.Request.Context(), ports.CreateAccountRequest{
		ID:             req.AccountID,
		HolderName:     req.HolderName,
		InitialBalance: req.InitialBalance,
		Credential:     req.PIN,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAccountID, view.ID)
	response.Created(c, view)
}

// Deposit handles POST /api/v1/accounts/:id/deposit.
func (h *AccountHandler) Deposit(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.ledgerSvc.Deposit(c.Request.Context(), ports.AmountRequest{
		AccountID:  c.Param("id"),
		Credential: req.PIN,
		Amount:     req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondMutation(c, result)
}

// Withdraw handles POST /api/v1/accounts/:id/withdraw.
func (h *AccountHandler) Withdraw(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.ledgerSvc.Withdraw(c.Request.Context(), ports.AmountRequest{
		AccountID:  c.Param("id"),
		Credential: req.PIN,
		Amount:     req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondMutation(c, result)
}

// Transfer handles POST /api/v1/accounts/:id/transfer.
func (h *AccountHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		AccountID:   c.Param("id"),
		Credential:  req.PIN,
		RecipientID: req.RecipientID,
		Amount:      req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondMutation(c, result)
}

// Balance handles GET /api/v1/accounts/:id/balance.
func (h *AccountHandler) Balance(c *gin.Context) {
	id := c.Param("id")
	balance, err := h.ledgerSvc.Balance(c.Request.Context(), ports.CredentialRequest{
		AccountID:  id,
		Credential: c.GetHeader(middleware.HeaderAccountPIN),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{AccountID: id, Balance: balance})
}

// History handles GET /api/v1/accounts/:id/history.
func (h *AccountHandler) History(c *gin.Context) {
	id := c.Param("id")
	records, err := h.ledgerSvc.History(c.Request.Context(), ports.CredentialRequest{
		AccountID:  id,
		Credential: c.GetHeader(middleware.HeaderAccountPIN),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	entries := make([]dto.TransactionResponse, 0, len(records))
	for _, tx := range records {
		entries = append(entries, dto.NewTransactionResponse(tx))
	}
	response.OK(c, dto.HistoryResponse{AccountID: id, Entries: entries, Total: len(entries)})
}

// Close handles DELETE /api/v1/accounts/:id.
func (h *AccountHandler) Close(c *gin.Context) {
	id := c.Param("id")
	if err := h.ledgerSvc.CloseAccount(c.Request.Context(), id, c.GetHeader(middleware.HeaderAccountPIN)); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.CloseAccountResponse{AccountID: id, Closed: true})
}

func (h *AccountHandler) respondMutation(c *gin.Context, result *ports.MutationResult) {
	c.Set(middleware.CtxResourceID, result.Transaction.ID.String())
	response.OK(c, dto.MutationResponse{
		Transaction: dto.NewTransactionResponse(result.Transaction),
		Balance:     result.Balance,
	})
}
