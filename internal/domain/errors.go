package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidTransition    = errors.New("invalid order state transition")
	ErrFulfillmentFailed    = errors.New("fulfillment failed")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrInvalidAmount        = errors.New("amount must be greater than zero, below 10^15, with at most two decimal places")
	ErrBalanceLimitExceeded = errors.New("balance limit exceeded")
	ErrInvalidRequest       = errors.New("invalid request")

	// ErrCompensationPending means the reversal could not be committed yet.
	// The reserved funds stay held until the recovery sweep returns them.
	ErrCompensationPending = errors.New("compensation pending")
)
