package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"pin-ledger/internal/core/domain"
	"pin-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys handlers set for the audit trail.
const (
	CtxAccountID  = "account_id"
	CtxResourceID = "resource_id"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps the matched route and method to an audit action.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}
		// Replays were audited when first processed.
		if c.Writer.Header().Get(HeaderIdempotentReplay) != "" {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		accountID := c.Param("id")
		if accountID == "" {
			accountID = c.GetString(CtxAccountID)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			AccountID:    accountID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/accounts" && method == http.MethodPost:
		return domain.AuditActionCreateAccount, "account"
	case route == "/api/v1/accounts/:id/deposit" && method == http.MethodPost:
		return domain.AuditActionDeposit, "transaction"
	case route == "/api/v1/accounts/:id/withdraw" && method == http.MethodPost:
		return domain.AuditActionWithdraw, "transaction"
	case route == "/api/v1/accounts/:id/transfer" && method == http.MethodPost:
		return domain.AuditActionTransfer, "transaction"
	case route == "/api/v1/accounts/:id" && method == http.MethodDelete:
		return domain.AuditActionCloseAccount, "account"
	case route == "/api/v1/admin/login" && method == http.MethodPost:
		return domain.AuditActionAdminLogin, "session"
	}
	return "", ""
}
