package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
)

type WalletPayload struct {
	ClientID string          `json:"client_id"`
	Amount   decimal.Decimal `json:"amount"`
	Balance  decimal.Decimal `json:"balance"`
	Version  int64           `json:"version"`
}

type OrderPayload struct {
	OrderID        uuid.UUID          `json:"order_id"`
	ClientID       string             `json:"client_id"`
	Amount         decimal.Decimal    `json:"amount"`
	Status         domain.OrderStatus `json:"status"`
	FulfillmentRef *string            `json:"fulfillment_ref,omitempty"`
	FailureReason  *string            `json:"failure_reason,omitempty"`
}

func NewEvent(aggregateID string, eventType domain.OutboxEventType, payload any) (*domain.OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("NewEvent: marshal %s: %w", eventType, err)
	}
	return &domain.OutboxEvent{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     body,
		Status:      domain.OutboxEventStatusPending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func WalletEvent(eventType domain.OutboxEventType, amount decimal.Decimal, w *domain.Wallet) (*domain.OutboxEvent, error) {
	return NewEvent(w.ClientID, eventType, WalletPayload{
		ClientID: w.ClientID,
		Amount:   amount,
		Balance:  w.Balance,
		Version:  w.Version,
	})
}

// OrderEvent derives the event type from the order's terminal status.
func OrderEvent(o *domain.Order) (*domain.OutboxEvent, error) {
	var eventType domain.OutboxEventType
	switch o.Status {
	case domain.OrderStatusFulfilled:
		eventType = domain.OutboxEventTypeOrderFulfilled
	case domain.OrderStatusFailed:
		eventType = domain.OutboxEventTypeOrderFailed
	default:
		return nil, fmt.Errorf("OrderEvent: order %s is %s: %w", o.ID, o.Status, domain.ErrInvalidTransition)
	}
	return NewEvent(o.ID.String(), eventType, OrderPayload{
		OrderID:        o.ID,
		ClientID:       o.ClientID,
		Amount:         o.Amount,
		Status:         o.Status,
		FulfillmentRef: o.FulfillmentRef,
		FailureReason:  o.FailureReason,
	})
}
