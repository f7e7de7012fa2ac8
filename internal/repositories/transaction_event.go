package repositories

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/walletcore/wallet-ledger/internal/logger"
	"github.com/walletcore/wallet-ledger/internal/models"
	"github.com/walletcore/wallet-ledger/internal/uow"
)

// TransactionEventRepository appends to the per-transaction audit trail.
// There is deliberately no update or delete path.
type TransactionEventRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewTransactionEventRepository(db *sqlx.DB) *TransactionEventRepository {
	return &TransactionEventRepository{db: db, txGetter: uow.GetTxFromContext}
}

func (r *TransactionEventRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// Append inserts one audit event. The id and created_at are assigned here.
func (r *TransactionEventRepository) Append(ctx context.Context, event *models.TransactionEvent) error {
	event.EventID = uuid.New()

	const query = `
		INSERT INTO transaction_events (
			event_id, transaction_id, previous_status, new_status,
			event_type, error_message, actor_ip, actor_user_agent, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`

	err := sqlx.GetContext(ctx, r.executor(ctx), &event.CreatedAt, query,
		event.EventID, event.TransactionID, event.PreviousStatus, event.NewStatus,
		event.EventType, event.ErrorMessage, event.ActorIP, event.ActorUserAgent,
	)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{event.TransactionID, event.EventType, event.NewStatus},
		"error", err,
	)

	return err
}

// ListByTransactionID returns a transaction's audit trail oldest first.
func (r *TransactionEventRepository) ListByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.TransactionEvent, error) {
	const query = `
		SELECT event_id, transaction_id, previous_status, new_status,
		       event_type, error_message, actor_ip, actor_user_agent, created_at
		FROM transaction_events
		WHERE transaction_id = $1
		ORDER BY created_at
	`

	var events []models.TransactionEvent
	err := sqlx.SelectContext(ctx, r.executor(ctx), &events, query, transactionID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{transactionID},
		"result", len(events),
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return events, nil
}
