package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pin-ledger/config"
	httpHandler "pin-ledger/internal/adapter/http/handler"
	"pin-ledger/internal/adapter/http/middleware"
	pgStorage "pin-ledger/internal/adapter/storage/postgres"
	redisStorage "pin-ledger/internal/adapter/storage/redis"
	"pin-ledger/internal/core/ports"
	"pin-ledger/internal/service"
	"pin-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Bool("database", cfg.Database.Enabled).
		Bool("redis", cfg.Redis.Enabled).
		Msg("Starting PIN ledger")

	ctx := context.Background()

	// Optional backends. Interfaces stay nil when a backend is disabled so
	// that downstream nil checks see a true nil.
	var (
		journal          ports.TransactionJournal
		auditRepo        ports.AuditRepository
		idempotencyCache ports.IdempotencyCache
		attempts         ports.AttemptTracker
		rateLimitStore   middleware.RateLimitStore
		healthCheckers   []ports.HealthChecker
	)

	if cfg.Database.Enabled {
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()

		if err := pgStorage.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply schema")
		}
		log.Info().Msg("PostgreSQL connected")

		journal = pgStorage.NewJournalRepo(pool)
		auditRepo = pgStorage.NewAuditRepo(pool)
		idempotencyCache = pgStorage.NewIdempotencyRepo(pool)
		healthCheckers = append(healthCheckers, pgStorage.NewHealthCheck(pool))
	}

	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		// Redis takes over idempotency from postgres when both are enabled.
		idempotencyCache = redisStorage.NewIdempotencyCache(rdb)
		attempts = redisStorage.NewAttemptStore(rdb)
		if cfg.RateLimit.Enabled {
			rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		}
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	// Initialize core services
	hashSvc := service.NewArgon2HashService(service.DefaultArgon2Params)

	var verifier ports.CredentialVerifier = service.NewPlainCredentialVerifier()
	if cfg.Ledger.HashCredentials {
		verifier = service.NewHashedCredentialVerifier(hashSvc)
	}

	ledgerSvc := service.NewLedgerService(verifier, journal, attempts, service.LedgerOptions{
		OperationTimeout:  cfg.Ledger.OperationTimeout,
		UniformAuthErrors: cfg.Ledger.UniformAuthErrors,
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
		LockoutWindow:     cfg.Auth.LockoutWindow,
	}, log)
	auditSvc := service.NewAuditService(auditRepo, log)

	deps := httpHandler.RouterDeps{
		LedgerSvc:        ledgerSvc,
		AuditSvc:         auditSvc,
		IdempotencyCache: idempotencyCache,
		IdempotencyTTL:   cfg.Idempotency.TTL,
		RateLimitStore:   rateLimitStore,
		HealthCheckers:   healthCheckers,
		Logger:           log,
	}

	if cfg.Admin.PasswordHash != "" {
		tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
		deps.TokenSvc = tokenSvc
		deps.AdminSvc = service.NewAdminService(cfg.Admin.PasswordHash, hashSvc, tokenSvc, log)
	} else {
		log.Info().Msg("admin.password_hash not set, operator endpoints disabled")
	}

	router := httpHandler.SetupRouter(deps)

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
