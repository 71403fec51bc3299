package handler

import (
	"time"

	"pin-ledger/internal/adapter/http/middleware"
	"pin-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20 // 1 MB request body limit

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc        ports.LedgerService
	AdminSvc         ports.AdminService         // nil = operator login disabled
	TokenSvc         ports.TokenService         // nil = operator routes disabled
	AuditSvc         ports.AuditService         // nil = audit logging disabled
	IdempotencyCache ports.IdempotencyCache     // nil = Idempotency-Key ignored
	IdempotencyTTL   time.Duration
	RateLimitStore   middleware.RateLimitStore // nil = rate limiting disabled
	HealthCheckers   []ports.HealthChecker
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	noop := func(c *gin.Context) { c.Next() }

	// rl returns the rate limiter for group, or a noop when the store is absent.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return noop
		}
		rule, ok := rules[group]
		if !ok {
			return noop
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// idem returns the idempotency middleware for operation, or a noop when no cache is configured.
	idem := func(operation string) gin.HandlerFunc {
		if deps.IdempotencyCache == nil {
			return noop
		}
		return middleware.Idempotency(deps.IdempotencyCache, deps.LedgerSvc, operation, deps.IdempotencyTTL, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Account routes (PIN in body or X-Account-Pin) ---
	accountHandler := NewAccountHandler(deps.LedgerSvc)
	accounts := v1.Group("/accounts")
	{
		accounts.POST("", rl("accounts_create"), idem("create"), accountHandler.Create)
		accounts.POST("/:id/deposit", rl("accounts_write"), idem("deposit"), accountHandler.Deposit)
		accounts.POST("/:id/withdraw", rl("accounts_write"), idem("withdraw"), accountHandler.Withdraw)
		accounts.POST("/:id/transfer", rl("accounts_write"), idem("transfer"), accountHandler.Transfer)
		accounts.GET("/:id/balance", rl("accounts_read"), accountHandler.Balance)
		accounts.GET("/:id/history", rl("accounts_read"), accountHandler.History)
		accounts.DELETE("/:id", rl("accounts_write"), accountHandler.Close)
	}

	// --- Operator routes (JWT) ---
	if deps.AdminSvc != nil && deps.TokenSvc != nil {
		adminHandler := NewAdminHandler(deps.AdminSvc, deps.LedgerSvc)
		v1.POST("/admin/login", rl("admin_login"), adminHandler.Login)

		jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
		accounts.GET("", jwtAuth, rl("admin"), adminHandler.ListAccounts)
	}

	return r
}
