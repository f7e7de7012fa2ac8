package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionEventType labels a state-transition entry in the audit trail.
type TransactionEventType string

const (
	TransactionEventCreated   TransactionEventType = "created"
	TransactionEventCompleted TransactionEventType = "completed"
	TransactionEventFailed    TransactionEventType = "failed"
	TransactionEventReversed  TransactionEventType = "reversed"
)

// Actor carries optional request metadata recorded on audit events.
type Actor struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}

// TransactionEvent is one append-only entry in a transaction's audit
// trail. Rows are inserted at every status transition and never updated
// or deleted.
type TransactionEvent struct {
	EventID        uuid.UUID            `json:"event_id" db:"event_id"`
	TransactionID  uuid.UUID            `json:"transaction_id" db:"transaction_id"`
	PreviousStatus *TransactionStatus   `json:"previous_status,omitempty" db:"previous_status"`
	NewStatus      TransactionStatus    `json:"new_status" db:"new_status"`
	EventType      TransactionEventType `json:"event_type" db:"event_type"`
	ErrorMessage   *string              `json:"error_message,omitempty" db:"error_message"`
	ActorIP        *string              `json:"actor_ip,omitempty" db:"actor_ip"`
	ActorUserAgent *string              `json:"actor_user_agent,omitempty" db:"actor_user_agent"`
	CreatedAt      time.Time            `json:"created_at" db:"created_at"`
}
