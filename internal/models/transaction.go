package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType describes the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeTransfer TransactionType = "transfer"
	TransactionTypeReversal TransactionType = "reversal"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending" // reserved, not used by the engine
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusReversed   TransactionStatus = "reversed"
)

// CanTransitionTo reports whether moving from s to next is a legal
// forward transition:
//
//	pending → processing
//	processing → completed | failed
//	completed → reversed
//
// failed and reversed are terminal.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		return next == TransactionStatusProcessing
	case TransactionStatusProcessing:
		return next == TransactionStatusCompleted || next == TransactionStatusFailed
	case TransactionStatusCompleted:
		return next == TransactionStatusReversed
	default:
		return false
	}
}

// ReversalType identifies which party requested a reversal.
type ReversalType string

const (
	ReversalTypeSenderRequest   ReversalType = "sender_request"
	ReversalTypeReceiverRefusal ReversalType = "receiver_refusal"
)

// Transaction represents a single money movement between wallets.
// The sender side is nil for deposits. Balance snapshot fields are
// write-once: they are set when the row is inserted and never updated.
type Transaction struct {
	TransactionID uuid.UUID         `json:"transaction_id" db:"transaction_id"` // Unique transaction identifier
	Code          string            `json:"code" db:"code"`                     // Human-facing unique reference code
	Type          TransactionType   `json:"type" db:"type"`                     // deposit, transfer or reversal
	Status        TransactionStatus `json:"status" db:"status"`

	SenderWalletID        *uuid.UUID       `json:"sender_wallet_id,omitempty" db:"sender_wallet_id"`
	SenderUserID          *uuid.UUID       `json:"sender_user_id,omitempty" db:"sender_user_id"`
	SenderPreviousBalance *decimal.Decimal `json:"sender_previous_balance,omitempty" db:"sender_previous_balance"`
	SenderNewBalance      *decimal.Decimal `json:"sender_new_balance,omitempty" db:"sender_new_balance"`

	ReceiverWalletID        uuid.UUID       `json:"receiver_wallet_id" db:"receiver_wallet_id"`
	ReceiverUserID          uuid.UUID       `json:"receiver_user_id" db:"receiver_user_id"`
	ReceiverPreviousBalance decimal.Decimal `json:"receiver_previous_balance" db:"receiver_previous_balance"`
	ReceiverNewBalance      decimal.Decimal `json:"receiver_new_balance" db:"receiver_new_balance"`

	Amount      decimal.Decimal `json:"amount" db:"amount"` // Always > 0
	Currency    string          `json:"currency" db:"currency"`
	Description *string         `json:"description,omitempty" db:"description"`

	ReversedTransactionID *uuid.UUID `json:"reversed_transaction_id,omitempty" db:"reversed_transaction_id"` // Set only on reversals
	ReversalReason        *string    `json:"reversal_reason,omitempty" db:"reversal_reason"`

	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ReversedAt  *time.Time `json:"reversed_at,omitempty" db:"reversed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// CanBeReversed reports whether the transaction is eligible for a
// compensating reversal: only completed transfers that have not been
// reversed yet qualify. The engine additionally checks the store for an
// existing reversal referencing this transaction.
func (t *Transaction) CanBeReversed() bool {
	return t.Type == TransactionTypeTransfer &&
		t.Status == TransactionStatusCompleted &&
		t.ReversedAt == nil
}
