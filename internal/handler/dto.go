package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
)

type walletDTO struct {
	ClientID  string     `json:"client_id"`
	Balance   string     `json:"balance"`
	Version   int64      `json:"version"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func toWalletDTO(w *domain.Wallet) walletDTO {
	dto := walletDTO{
		ClientID: w.ClientID,
		Balance:  w.Balance.StringFixed(domain.AmountScale),
		Version:  w.Version,
	}
	if !w.UpdatedAt.IsZero() {
		t := w.UpdatedAt
		dto.UpdatedAt = &t
	}
	return dto
}

type orderDTO struct {
	ID             uuid.UUID `json:"id"`
	ClientID       string    `json:"client_id"`
	Amount         string    `json:"amount"`
	Status         string    `json:"status"`
	FulfillmentRef *string   `json:"fulfillment_ref"`
	FailureReason  *string   `json:"failure_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toOrderDTO(o *domain.Order) orderDTO {
	return orderDTO{
		ID:             o.ID,
		ClientID:       o.ClientID,
		Amount:         o.Amount.StringFixed(domain.AmountScale),
		Status:         string(o.Status),
		FulfillmentRef: o.FulfillmentRef,
		FailureReason:  o.FailureReason,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}
