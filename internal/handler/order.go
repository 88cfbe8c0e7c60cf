package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-orders/internal/auth"
	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/logging"
)

type orderService interface {
	PlaceOrder(ctx context.Context, clientID string, amount decimal.Decimal) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, clientID string) (*domain.Order, error)
}

type OrderHandler struct {
	orders orderService
}

func NewOrderHandler(orders orderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (r createOrderRequest) Validate() []FieldError {
	return validateAmount(nil, r.Amount)
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	clientID, ok := auth.ClientIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingClientID, nil)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), clientID, req.Amount)
	if err != nil {
		log.Warn("order placement failed", "error", err)
		if errors.Is(err, domain.ErrFulfillmentFailed) && o != nil {
			RespondAppError(w, ErrFulfillmentFailed, toOrderDTO(o))
			return
		}
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/orders/%s", o.ID))
	RespondSuccess(w, http.StatusCreated, toOrderDTO(o))
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	clientID, ok := auth.ClientIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingClientID, nil)
		return
	}

	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	o, err := h.orders.GetOrder(r.Context(), orderID, clientID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("order lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toOrderDTO(o))
}
