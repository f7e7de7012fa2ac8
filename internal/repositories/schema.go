package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Migrations is the ledger schema, applied in order by Migrate. Each
// statement is idempotent.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		wallet_id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		currency CHAR(3) NOT NULL,
		balance NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		status VARCHAR(16) NOT NULL DEFAULT 'active',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS transactions (
		transaction_id UUID PRIMARY KEY,
		code VARCHAR(64) NOT NULL UNIQUE,
		type VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL,
		sender_wallet_id UUID REFERENCES wallets(wallet_id),
		sender_user_id UUID,
		sender_previous_balance NUMERIC(20,2),
		sender_new_balance NUMERIC(20,2),
		receiver_wallet_id UUID NOT NULL REFERENCES wallets(wallet_id),
		receiver_user_id UUID NOT NULL,
		receiver_previous_balance NUMERIC(20,2) NOT NULL,
		receiver_new_balance NUMERIC(20,2) NOT NULL,
		amount NUMERIC(20,2) NOT NULL CHECK (amount > 0),
		currency CHAR(3) NOT NULL,
		description TEXT,
		reversed_transaction_id UUID REFERENCES transactions(transaction_id),
		reversal_reason TEXT,
		completed_at TIMESTAMP,
		reversed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);`,

	// At most one reversal may reference an original transaction.
	`CREATE UNIQUE INDEX IF NOT EXISTS transactions_reversed_transaction_idx
		ON transactions (reversed_transaction_id)
		WHERE reversed_transaction_id IS NOT NULL;`,

	`CREATE TABLE IF NOT EXISTS transaction_events (
		event_id UUID PRIMARY KEY,
		transaction_id UUID NOT NULL REFERENCES transactions(transaction_id),
		previous_status VARCHAR(16),
		new_status VARCHAR(16) NOT NULL,
		event_type VARCHAR(16) NOT NULL,
		error_message TEXT,
		actor_ip VARCHAR(45),
		actor_user_agent TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);`,

	`CREATE INDEX IF NOT EXISTS transaction_events_transaction_id_idx
		ON transaction_events (transaction_id);`,
}

// Migrate applies the ledger schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, m := range Migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
