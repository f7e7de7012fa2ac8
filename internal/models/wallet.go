package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Supported currency codes
const (
	USD = "USD"
	RUB = "RUB"
	EUR = "EUR"
)

// WalletStatus describes whether a wallet may participate in operations.
type WalletStatus string

const (
	WalletStatusActive   WalletStatus = "active"
	WalletStatusInactive WalletStatus = "inactive"
	WalletStatusBlocked  WalletStatus = "blocked"
)

// Wallet represents a wallet row in the database.
// Balance is mutated only by the ledger engine while the row lock is held;
// it never drops below zero and the row is never deleted.
type Wallet struct {
	WalletID  uuid.UUID       `json:"wallet_id" db:"wallet_id"`   // Unique wallet identifier
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`       // Identifier of the wallet's owner
	Currency  string          `json:"currency" db:"currency"`     // Currency code (e.g., USD, RUB, EUR)
	Balance   decimal.Decimal `json:"balance" db:"balance"`       // Current balance in the wallet
	Status    WalletStatus    `json:"status" db:"status"`         // active, inactive or blocked
	CreatedAt time.Time       `json:"created_at" db:"created_at"` // Timestamp when the wallet was created
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"` // Timestamp of the last wallet update
}

// IsActive reports whether the wallet may take part in money movement.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}
