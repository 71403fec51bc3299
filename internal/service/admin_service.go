package service

import (
	"context"
	"fmt"
	"time"

	"pin-ledger/internal/core/ports"
	"pin-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// OperatorSubject is the JWT subject issued to the operator.
const OperatorSubject = "operator"

// AdminServiceImpl implements ports.AdminService against a single configured
// argon2id password hash.
type AdminServiceImpl struct {
	passwordHash string
	hashSvc      ports.HashService
	tokenSvc     ports.TokenService
	log          zerolog.Logger
}

// NewAdminService creates a new AdminServiceImpl. An empty passwordHash
// rejects every login.
func NewAdminService(passwordHash string, hashSvc ports.HashService, tokenSvc ports.TokenService, log zerolog.Logger) *AdminServiceImpl {
	return &AdminServiceImpl{
		passwordHash: passwordHash,
		hashSvc:      hashSvc,
		tokenSvc:     tokenSvc,
		log:          log,
	}
}

// Login verifies the operator password and returns a signed JWT.
func (s *AdminServiceImpl) Login(ctx context.Context, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, apperror.ErrNotAuthorized()
	}

	ok, err := s.hashSvc.Verify(password, s.passwordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify admin password: %w", err))
	}
	if !ok {
		s.log.Warn().Msg("operator login rejected")
		return "", time.Time{}, apperror.ErrNotAuthorized()
	}

	token, expiresAt, err := s.tokenSvc.Generate(OperatorSubject)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().Time("expires_at", expiresAt).Msg("operator logged in")
	return token, expiresAt, nil
}
