package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-orders/internal/auth"
	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/logging"
)

type walletService interface {
	CreditWallet(ctx context.Context, clientID string, amount decimal.Decimal) (*domain.Wallet, error)
	DebitWallet(ctx context.Context, clientID string, amount decimal.Decimal) (*domain.Wallet, error)
	GetBalance(ctx context.Context, clientID string) (*domain.Wallet, error)
}

type WalletHandler struct {
	wallets walletService
}

func NewWalletHandler(wallets walletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type walletAdjustmentRequest struct {
	ClientID string          `json:"client_id" validate:"required,max=64"`
	Amount   decimal.Decimal `json:"amount"`
}

func (r walletAdjustmentRequest) Validate() []FieldError {
	return validateAmount(validateStruct(r), r.Amount)
}

func (h *WalletHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.wallets.CreditWallet, "wallet credit failed")
}

func (h *WalletHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.wallets.DebitWallet, "wallet debit failed")
}

type adjustFunc func(ctx context.Context, clientID string, amount decimal.Decimal) (*domain.Wallet, error)

func (h *WalletHandler) adjust(w http.ResponseWriter, r *http.Request, apply adjustFunc, failMsg string) {
	var req walletAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	wallet, err := apply(r.Context(), req.ClientID, req.Amount)
	if err != nil {
		logging.FromContext(r.Context()).Warn(failMsg, "client_id", req.ClientID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(wallet))
}

func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	clientID, ok := auth.ClientIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingClientID, nil)
		return
	}

	wallet, err := h.wallets.GetBalance(r.Context(), clientID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("balance lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(wallet))
}
