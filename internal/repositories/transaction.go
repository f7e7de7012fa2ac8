package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/walletcore/wallet-ledger/internal/logger"
	"github.com/walletcore/wallet-ledger/internal/models"
	"github.com/walletcore/wallet-ledger/internal/uow"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

const transactionColumns = `
	transaction_id, code, type, status,
	sender_wallet_id, sender_user_id, sender_previous_balance, sender_new_balance,
	receiver_wallet_id, receiver_user_id, receiver_previous_balance, receiver_new_balance,
	amount, currency, description,
	reversed_transaction_id, reversal_reason,
	completed_at, reversed_at, created_at
`

// TransactionRepository persists the durable ledger of money movements.
// Rows are inserted once with their balance snapshots and only the status
// and its timestamps ever change afterwards.
type TransactionRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db, txGetter: uow.GetTxFromContext}
}

func (r *TransactionRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// Save inserts a new transaction row. The id and created_at are assigned
// here. A duplicate reversed_transaction_id maps to models.ErrNotReversible
// (the partial unique index backs the at-most-one-reversal rule); a
// duplicate code surfaces as-is and fails the unit of work.
func (r *TransactionRepository) Save(ctx context.Context, txn *models.Transaction) error {
	txn.TransactionID = uuid.New()

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
		RETURNING created_at
	`

	err := sqlx.GetContext(ctx, r.executor(ctx), &txn.CreatedAt, query,
		txn.TransactionID, txn.Code, txn.Type, txn.Status,
		txn.SenderWalletID, txn.SenderUserID, txn.SenderPreviousBalance, txn.SenderNewBalance,
		txn.ReceiverWalletID, txn.ReceiverUserID, txn.ReceiverPreviousBalance, txn.ReceiverNewBalance,
		txn.Amount, txn.Currency, txn.Description,
		txn.ReversedTransactionID, txn.ReversalReason,
		txn.CompletedAt, txn.ReversedAt,
	)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{txn.TransactionID, txn.Code, txn.Type, txn.Status},
		"error", err,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation &&
			strings.Contains(pgErr.ConstraintName, "reversed_transaction") {
			return models.ErrNotReversible
		}
		return err
	}
	return nil
}

// GetByID retrieves a transaction by id.
func (r *TransactionRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE transaction_id = $1
	`

	var txn models.Transaction
	err := sqlx.GetContext(ctx, r.executor(ctx), &txn, query, transactionID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{transactionID},
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// UpdateStatus moves txn to the given status, guarded by the current
// status so transitions stay monotonic even under races. completed_at and
// reversed_at are stamped by the database on the matching transitions;
// txn is updated in place with the new status and timestamps.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, txn *models.Transaction, to models.TransactionStatus) error {
	if !txn.Status.CanTransitionTo(to) {
		return fmt.Errorf("illegal status transition %s -> %s", txn.Status, to)
	}

	query := `
		UPDATE transactions
		SET status = $1,
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
		    reversed_at  = CASE WHEN $1 = 'reversed'  THEN NOW() ELSE reversed_at  END
		WHERE transaction_id = $2 AND status = $3
		RETURNING completed_at, reversed_at
	`

	var stamps struct {
		CompletedAt *time.Time `db:"completed_at"`
		ReversedAt  *time.Time `db:"reversed_at"`
	}
	err := sqlx.GetContext(ctx, r.executor(ctx), &stamps, query, to, txn.TransactionID, txn.Status)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{txn.TransactionID, txn.Status, to},
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %s no longer in status %s", txn.TransactionID, txn.Status)
		}
		return err
	}

	txn.Status = to
	txn.CompletedAt = stamps.CompletedAt
	txn.ReversedAt = stamps.ReversedAt
	return nil
}

// HasReversal reports whether any transaction already references the
// given original as its reversed transaction.
func (r *TransactionRepository) HasReversal(ctx context.Context, originalID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM transactions WHERE reversed_transaction_id = $1
		)
	`

	var exists bool
	err := sqlx.GetContext(ctx, r.executor(ctx), &exists, query, originalID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{originalID},
		"result", exists,
		"error", err,
	)

	return exists, err
}
