package postgres

import (
	"context"
	"fmt"

	"pin-ledger/internal/core/domain"

	"github.com/google/uuid"
)

const insertEntryQuery = `INSERT INTO ledger_entries (id, account_id, kind, amount, counterparty_id,
	resulting_balance, transfer_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// JournalRepo implements ports.TransactionJournal. It only ever inserts.
type JournalRepo struct {
	pool Pool
}

// NewJournalRepo creates a new JournalRepo.
func NewJournalRepo(pool Pool) *JournalRepo {
	return &JournalRepo{pool: pool}
}

// Record inserts a single deposit or withdrawal record.
func (r *JournalRepo) Record(ctx context.Context, tx domain.Transaction) error {
	if err := insertEntry(ctx, r.pool, tx, nil); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// RecordTransfer inserts both legs of a transfer in one database transaction,
// linked by the sender record's id.
func (r *JournalRepo) RecordTransfer(ctx context.Context, out, in domain.Transaction) error {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	transferID := out.ID
	if err := insertEntry(ctx, dbTx, out, &transferID); err != nil {
		return fmt.Errorf("insert debit leg: %w", err)
	}
	if err := insertEntry(ctx, dbTx, in, &transferID); err != nil {
		return fmt.Errorf("insert credit leg: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertEntry(ctx context.Context, q execer, tx domain.Transaction, transferID *uuid.UUID) error {
	var counterparty *string
	if tx.CounterpartyID != "" {
		counterparty = &tx.CounterpartyID
	}
	_, err := q.Exec(ctx, insertEntryQuery,
		tx.ID, tx.AccountID, string(tx.Kind), tx.Amount, counterparty,
		tx.ResultingBalance, transferID, tx.CreatedAt,
	)
	return err
}
