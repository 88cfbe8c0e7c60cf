package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxEventStatus string

const (
	OutboxEventStatusPending    OutboxEventStatus = "pending"
	OutboxEventStatusInFlight   OutboxEventStatus = "in_flight"
	OutboxEventStatusDispatched OutboxEventStatus = "dispatched"
	OutboxEventStatusFailed     OutboxEventStatus = "failed"
)

type OutboxEventType string

const (
	OutboxEventTypeWalletCredited OutboxEventType = "wallet.credited"
	OutboxEventTypeWalletDebited  OutboxEventType = "wallet.debited"
	OutboxEventTypeWalletReversed OutboxEventType = "wallet.reversed"
	OutboxEventTypeOrderFulfilled OutboxEventType = "order.fulfilled"
	OutboxEventTypeOrderFailed    OutboxEventType = "order.failed"
)

// OutboxEvent is written in the same transaction as the state change it
// describes and published asynchronously by the relay.
type OutboxEvent struct {
	ID          uuid.UUID
	AggregateID string
	EventType   OutboxEventType
	Payload     json.RawMessage
	Status      OutboxEventStatus
	Attempts    int
	LastAttempt *time.Time
	CreatedAt   time.Time
}
