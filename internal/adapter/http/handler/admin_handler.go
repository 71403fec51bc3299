package handler

import (
	"pin-ledger/internal/adapter/http/dto"
	"pin-ledger/internal/core/ports"
	"pin-ledger/pkg/apperror"
	"pin-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	adminSvc  ports.AdminService
	ledgerSvc ports.LedgerService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminSvc ports.AdminService, ledgerSvc ports.LedgerService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, ledgerSvc: ledgerSvc}
}

// Login handles POST /api/v1/admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	token, expiry, err := h.adminSvc.Login(c.Request.Context(), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}

// ListAccounts handles GET /api/v1/accounts for operators.
func (h *AdminHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.ledgerSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AccountListResponse{Items: accounts, Total: len(accounts)})
}
