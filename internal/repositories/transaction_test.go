package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/walletcore/wallet-ledger/internal/models"
)

func depositTransaction() *models.Transaction {
	return &models.Transaction{
		Code:                    "TXN-1234567890-1",
		Type:                    models.TransactionTypeDeposit,
		Status:                  models.TransactionStatusProcessing,
		ReceiverWalletID:        uuid.New(),
		ReceiverUserID:          uuid.New(),
		ReceiverPreviousBalance: decimal.RequireFromString("100.00"),
		ReceiverNewBalance:      decimal.RequireFromString("150.00"),
		Amount:                  decimal.RequireFromString("50.00"),
		Currency:                models.USD,
	}
}

func TestTransactionSave(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectQuery("(?s)INSERT INTO transactions.+RETURNING created_at").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	txn := depositTransaction()
	err := repo.Save(context.Background(), txn)

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, txn.TransactionID)
	assert.False(t, txn.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionSave_DuplicateReversal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectQuery("(?s)INSERT INTO transactions.+RETURNING created_at").
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: "transactions_reversed_transaction_idx",
		})

	originalID := uuid.New()
	txn := depositTransaction()
	txn.Type = models.TransactionTypeReversal
	txn.ReversedTransactionID = &originalID

	err := repo.Save(context.Background(), txn)
	assert.ErrorIs(t, err, models.ErrNotReversible)
}

func TestTransactionGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	id := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"transaction_id", "code", "type", "status",
		"sender_wallet_id", "sender_user_id", "sender_previous_balance", "sender_new_balance",
		"receiver_wallet_id", "receiver_user_id", "receiver_previous_balance", "receiver_new_balance",
		"amount", "currency", "description",
		"reversed_transaction_id", "reversal_reason",
		"completed_at", "reversed_at", "created_at",
	}).AddRow(
		id.String(), "TXN-ABCDEF1234-9", "transfer", "completed",
		uuid.NewString(), uuid.NewString(), "500.00", "300.00",
		uuid.NewString(), uuid.NewString(), "100.00", "300.00",
		"200.00", "USD", nil,
		nil, nil,
		now, nil, now,
	)

	mock.ExpectQuery("(?s)SELECT .+ FROM transactions.+WHERE transaction_id =").WillReturnRows(rows)

	txn, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, id, txn.TransactionID)
	assert.Equal(t, models.TransactionTypeTransfer, txn.Type)
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, "200", txn.Amount.String())
	assert.NotNil(t, txn.SenderWalletID)
	assert.Nil(t, txn.ReversedTransactionID)
}

func TestTransactionGetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectQuery("(?s)SELECT .+ FROM transactions.+WHERE transaction_id =").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrTransactionNotFound)
}

func TestUpdateStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	now := time.Now()
	mock.ExpectQuery("(?s)UPDATE transactions.+RETURNING completed_at, reversed_at").
		WillReturnRows(sqlmock.NewRows([]string{"completed_at", "reversed_at"}).AddRow(now, nil))

	txn := depositTransaction()
	txn.TransactionID = uuid.New()

	err := repo.UpdateStatus(context.Background(), txn, models.TransactionStatusCompleted)
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
	assert.NotNil(t, txn.CompletedAt)
	assert.Nil(t, txn.ReversedAt)
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewTransactionRepository(db)

	txn := depositTransaction()
	txn.Status = models.TransactionStatusReversed

	// Terminal state, no SQL should run.
	err := repo.UpdateStatus(context.Background(), txn, models.TransactionStatusCompleted)
	assert.Error(t, err)
}

func TestUpdateStatus_StatusMoved(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	// Guard clause filtered the row out: someone else moved the status first.
	mock.ExpectQuery("(?s)UPDATE transactions.+RETURNING completed_at, reversed_at").
		WillReturnError(sql.ErrNoRows)

	txn := depositTransaction()
	txn.TransactionID = uuid.New()

	err := repo.UpdateStatus(context.Background(), txn, models.TransactionStatusCompleted)
	assert.Error(t, err)
	assert.Equal(t, models.TransactionStatusProcessing, txn.Status)
}

func TestHasReversal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectQuery("(?s)SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.HasReversal(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("(?s)SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err = repo.HasReversal(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.False(t, exists)
}
