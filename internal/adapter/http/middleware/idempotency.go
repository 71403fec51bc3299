package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"pin-ledger/internal/core/domain"
	"pin-ledger/internal/core/ports"
	"pin-ledger/pkg/apperror"
	"pin-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	HeaderIdempotencyKey   = "Idempotency-Key"
	HeaderIdempotentReplay = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
	cacheWriteTimeout    = 3 * time.Second
)

// AccountResolver looks up the live account behind a path id.
type AccountResolver interface {
	Find(ctx context.Context, id string) (*domain.Account, error)
}

// Idempotency replays the stored response when a mutating request repeats an
// Idempotency-Key for the same account and operation. Only 2xx responses are
// stored; anything else releases the key so the client can retry. Requests
// without the header pass straight through, and cache errors degrade to
// processing the request normally.
//
// With a resolver, keys are scoped to the account's incarnation, so a key used
// before the account was closed never replays onto a recreated account with the
// same id. Requests for an id the resolver cannot find skip the cache and reach
// the handler, which reports the error.
func Idempotency(cache ports.IdempotencyCache, accounts AccountResolver, operation string, ttl time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := c.GetHeader(HeaderIdempotencyKey)
		if clientKey == "" {
			c.Next()
			return
		}
		if len(clientKey) > maxIdempotencyKeyLen {
			response.Error(c, apperror.Validation("Idempotency-Key is too long"))
			c.Abort()
			return
		}

		body, err := bufferBody(c)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		sum := sha256.Sum256(body)
		fingerprint := hex.EncodeToString(sum[:])

		ctx := c.Request.Context()
		scope := c.Param("id")
		switch {
		case scope == "":
			scope = "-"
		case accounts != nil:
			acc, err := accounts.Find(ctx, scope)
			if err != nil {
				c.Next()
				return
			}
			scope += "@" + acc.Incarnation()
		}
		key := domain.BuildIdempotencyKey(scope, operation, clientKey)
		logger := log.With().Str("idempotency_key", key).Logger()

		cached, err := cache.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Msg("idempotency lookup failed, processing request")
			c.Next()
			return
		}
		if cached != nil {
			replay(c, cached, fingerprint)
			return
		}

		reserved, err := cache.Reserve(ctx, key, ttl)
		if err != nil {
			logger.Warn().Err(err).Msg("idempotency reserve failed, processing request")
			c.Next()
			return
		}
		if !reserved {
			// The holder may have completed between Get and Reserve.
			if cached, err := cache.Get(ctx, key); err == nil && cached != nil {
				replay(c, cached, fingerprint)
				return
			}
			response.Error(c, apperror.ErrRequestInProgress())
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec

		// A panicking handler must not leave the key reserved for the whole TTL.
		panicked := true
		defer func() {
			storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
			defer cancel()

			status := rec.Status()
			if panicked || status < 200 || status >= 300 {
				if err := cache.Release(storeCtx, key); err != nil {
					logger.Warn().Err(err).Msg("idempotency release failed")
				}
				return
			}

			err := cache.Complete(storeCtx, &domain.IdempotentResponse{
				Key:         key,
				Fingerprint: fingerprint,
				StatusCode:  status,
				Body:        rec.body.Bytes(),
				CreatedAt:   time.Now().UTC(),
			}, ttl)
			if err != nil {
				logger.Warn().Err(err).Msg("idempotency store failed")
			}
		}()

		c.Next()
		panicked = false
	}
}

func replay(c *gin.Context, cached *domain.IdempotentResponse, fingerprint string) {
	if cached.Fingerprint != fingerprint {
		response.Error(c, apperror.ErrIdempotencyKeyReused())
		c.Abort()
		return
	}
	c.Header(HeaderIdempotentReplay, "true")
	c.Data(cached.StatusCode, "application/json; charset=utf-8", cached.Body)
	c.Abort()
}

// bodyRecorder tees the response body so it can be stored after the handler runs.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
