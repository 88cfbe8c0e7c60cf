package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits a monetary amount may carry.
const AmountScale = 2

var (
	// MaxAmount bounds a single operation. Amounts must be strictly below it.
	MaxAmount = decimal.New(1, 15)
	// MaxBalance bounds what credits may accumulate. Reversals are exempt and
	// rely on the headroom left below the NUMERIC(20,2) column limit of 10^18.
	MaxBalance = decimal.New(1, 16)
)

type Wallet struct {
	ClientID  string
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThanOrEqual(MaxAmount) {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return ErrInvalidAmount
	}
	return nil
}
