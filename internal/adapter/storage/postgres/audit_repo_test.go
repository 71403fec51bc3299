package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"pin-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		AccountID:    "A1",
		Action:       domain.AuditActionWithdraw,
		ResourceType: "account",
		ResourceID:   "A1",
		Details:      `{"status":200}`,
		IPAddress:    "10.0.0.1",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, strPtr("A1"), "WITHDRAW", "account", strPtr("A1"), strPtr(`{"status":200}`), "10.0.0.1", entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create_NullsForOperatorEvents(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionAdminLogin,
		ResourceType: "session",
		IPAddress:    "10.0.0.1",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, (*string)(nil), "ADMIN_LOGIN", "session", (*string)(nil), (*string)(nil), "10.0.0.1", entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errors.New("connection reset"))

	err = NewAuditRepo(mock).Create(context.Background(), &domain.AuditLog{ID: uuid.New()})
	assert.ErrorContains(t, err, "insert audit log")
}
