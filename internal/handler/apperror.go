package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrMissingClientID  = &AppError{http.StatusBadRequest, "MISSING_CLIENT_ID", "client-id header required"}
	ErrInvalidAmount    = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero, below 10^15, with at most two decimal places"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientFunds  = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrFulfillmentFailed  = &AppError{http.StatusUnprocessableEntity, "FULFILLMENT_FAILED", "Order could not be fulfilled; funds were returned"}
	ErrInvalidTransition  = &AppError{http.StatusConflict, "INVALID_ORDER_TRANSITION", "Order is already finalized"}
	ErrBalanceLimit       = &AppError{http.StatusUnprocessableEntity, "BALANCE_LIMIT_EXCEEDED", "Balance limit exceeded"}
	ErrStorageUnavailable = &AppError{http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage temporarily unavailable, please retry"}

	// not retryable: placing the order again would reserve funds a second time
	ErrCompensationPending = &AppError{http.StatusServiceUnavailable, "COMPENSATION_PENDING", "Order could not be completed; reserved funds are still held and will be returned automatically"}
)
