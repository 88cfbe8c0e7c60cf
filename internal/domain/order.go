package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusFailed    OrderStatus = "failed"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusFailed
}

type Order struct {
	ID             uuid.UUID
	ClientID       string
	Amount         decimal.Decimal
	Status         OrderStatus
	FulfillmentRef *string
	FailureReason  *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
