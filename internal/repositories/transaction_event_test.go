package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/walletcore/wallet-ledger/internal/models"
)

func TestEventAppend(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionEventRepository(db)

	mock.ExpectQuery("(?s)INSERT INTO transaction_events.+RETURNING created_at").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	prev := models.TransactionStatusProcessing
	event := &models.TransactionEvent{
		TransactionID:  uuid.New(),
		PreviousStatus: &prev,
		NewStatus:      models.TransactionStatusCompleted,
		EventType:      models.TransactionEventCompleted,
	}

	err := repo.Append(context.Background(), event)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.EventID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventListByTransactionID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionEventRepository(db)

	txnID := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"event_id", "transaction_id", "previous_status", "new_status",
		"event_type", "error_message", "actor_ip", "actor_user_agent", "created_at",
	}).
		AddRow(uuid.NewString(), txnID.String(), nil, "processing", "created", nil, "10.0.0.1", "cli/1.0", now).
		AddRow(uuid.NewString(), txnID.String(), "processing", "completed", "completed", nil, "10.0.0.1", "cli/1.0", now.Add(time.Second))

	mock.ExpectQuery("(?s)SELECT .+ FROM transaction_events.+ORDER BY created_at").WillReturnRows(rows)

	events, err := repo.ListByTransactionID(context.Background(), txnID)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, models.TransactionEventCreated, events[0].EventType)
	assert.Nil(t, events[0].PreviousStatus)
	assert.Equal(t, models.TransactionEventCompleted, events[1].EventType)
	assert.Equal(t, models.TransactionStatusProcessing, *events[1].PreviousStatus)
}
