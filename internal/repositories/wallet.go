package repositories

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/walletcore/wallet-ledger/internal/logger"
	"github.com/walletcore/wallet-ledger/internal/models"
	"github.com/walletcore/wallet-ledger/internal/uow"
)

// pgLockNotAvailable is the SQLSTATE raised when lock_timeout expires.
const pgLockNotAvailable = "55P03"

// WalletRepository reads and mutates wallet rows. Balance mutations must
// happen inside a unit of work with the row lock held; the repository
// picks up the enclosing transaction from the context.
type WalletRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db, txGetter: uow.GetTxFromContext}
}

func (r *WalletRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// canonicalOrder dedupes wallet ids and sorts them ascending by byte
// value. Every lock acquisition goes through this single ordering, which
// is what prevents circular waits between operations that touch the same
// wallets in opposite roles.
func canonicalOrder(walletIDs []uuid.UUID) []uuid.UUID {
	ids := slices.Clone(walletIDs)
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return slices.Compact(ids)
}

// LockForUpdate acquires exclusive row locks on the given wallets in
// canonical ascending-id order and returns them, also in that order. The
// locks are held until the enclosing unit of work commits or rolls back.
// Returns models.ErrWalletNotFound if any id has no row and
// models.ErrLockTimeout if the configured lock_timeout expires.
func (r *WalletRepository) LockForUpdate(ctx context.Context, walletIDs []uuid.UUID) ([]models.Wallet, error) {
	ids := canonicalOrder(walletIDs)

	const rawQuery = `
		SELECT wallet_id, user_id, currency, balance, status, created_at, updated_at
		FROM wallets
		WHERE wallet_id IN (?)
		ORDER BY wallet_id
		FOR UPDATE
	`

	query, args, err := sqlx.In(rawQuery, ids)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var wallets []models.Wallet
	err = sqlx.SelectContext(ctx, r.executor(ctx), &wallets, query, args...)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{ids},
		"result", len(wallets),
		"error", err,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
			return nil, models.ErrLockTimeout
		}
		return nil, err
	}
	if len(wallets) != len(ids) {
		return nil, models.ErrWalletNotFound
	}
	return wallets, nil
}

// ApplyDelta adds delta (negative for debits) to a wallet's balance and
// returns the new balance. The update is guarded so the balance can never
// go negative; a guarded-out update maps to models.ErrInsufficientFunds.
// Callers must hold the wallet's row lock via LockForUpdate.
func (r *WalletRepository) ApplyDelta(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	const query = `
		UPDATE wallets
		SET balance = balance + $1, updated_at = NOW()
		WHERE wallet_id = $2 AND balance + $1 >= 0
		RETURNING balance
	`

	var balance decimal.Decimal
	err := sqlx.GetContext(ctx, r.executor(ctx), &balance, query, delta, walletID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{walletID, delta},
		"result", balance,
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Decimal{}, models.ErrInsufficientFunds
		}
		return decimal.Decimal{}, err
	}
	return balance, nil
}

// GetByID retrieves a wallet without locking it.
func (r *WalletRepository) GetByID(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	const query = `
		SELECT wallet_id, user_id, currency, balance, status, created_at, updated_at
		FROM wallets
		WHERE wallet_id = $1
	`

	var wallet models.Wallet
	err := sqlx.GetContext(ctx, r.executor(ctx), &wallet, query, walletID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{walletID},
		"result", wallet,
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}
