// Package uow provides an explicit unit-of-work boundary around a set of
// database writes. A transaction is opened per Do call and carried in the
// context; repositories pick it up via GetTxFromContext so the same
// repository code runs standalone or inside an enclosing unit of work.
package uow

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/walletcore/wallet-ledger/internal/logger"
)

// contextKey is an unexported type for keys in context
type contextKey struct{}

var txKey = contextKey{}

// setTxToContext stores a transaction in the context
func setTxToContext(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// GetTxFromContext retrieves the transaction from the context. Returns nil if not present.
func GetTxFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey).(*sqlx.Tx)
	return tx
}

// Manager begins, commits, and rolls back units of work on a single
// database handle.
type Manager struct {
	db          *sqlx.DB
	lockTimeout time.Duration // 0 disables the per-transaction lock timeout
}

// NewManager creates a Manager. lockTimeout bounds how long statements
// inside a unit of work may wait for a row lock; zero means wait forever.
func NewManager(db *sqlx.DB, lockTimeout time.Duration) *Manager {
	return &Manager{db: db, lockTimeout: lockTimeout}
}

// Do runs fn inside a database transaction. The transaction is stored in
// the context passed to fn. It commits when fn returns nil and rolls back
// when fn returns an error or panics; either way no partial writes remain.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		logger.Log.Errorw("failed to begin transaction", "error", err)
		return err
	}

	if m.lockTimeout > 0 {
		query := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, query); err != nil {
			tx.Rollback()
			logger.Log.Errorw("failed to set lock timeout", "error", err)
			return err
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
			panic(rec)
		}
	}()

	if err := fn(setTxToContext(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Log.Errorw("failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.Log.Errorw("failed to commit transaction", "error", err)
		return err
	}
	return nil
}
