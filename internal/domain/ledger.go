package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryKindCredit EntryKind = "credit"
	EntryKindDebit  EntryKind = "debit"
	EntryKindOrder  EntryKind = "order"
)

// LedgerEntry is immutable once written. OrderID is set only for EntryKindOrder.
type LedgerEntry struct {
	ID        uuid.UUID
	ClientID  string
	Kind      EntryKind
	Amount    decimal.Decimal
	OrderID   *uuid.UUID
	CreatedAt time.Time
}
