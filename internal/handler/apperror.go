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
	ErrPaymentNotFound  = &AppError{http.StatusNotFound, "PAYMENT_NOT_FOUND", "Payment not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidPhone      = &AppError{http.StatusBadRequest, "INVALID_PHONE", "Invalid phone number format. Must be 8-15 digits, format: country code + cellphone number"}
	ErrInvalidAmount     = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be between 0.01 and 999999999999.99 with at most 2 decimal places"}
	ErrPaymentTerminal   = &AppError{http.StatusBadRequest, "PAYMENT_TERMINAL", "Payment cannot be cancelled"}
	ErrUnknownProviderID = &AppError{http.StatusBadRequest, "UNKNOWN_PAYMENT_ID", "No payment matches the callback id"}
	ErrMissingProviderID = &AppError{http.StatusBadRequest, "MISSING_PAYMENT_ID", "Callback id is required"}
	ErrSwishUnavailable  = &AppError{http.StatusServiceUnavailable, "SWISH_UNAVAILABLE", "Swish API is not available: certificate configuration is missing"}
	ErrSwishUnreachable  = &AppError{http.StatusBadGateway, "SWISH_UNREACHABLE", "Failed to reach the Swish API"}
	ErrSwishTimeout      = &AppError{http.StatusGatewayTimeout, "SWISH_TIMEOUT", "The Swish API did not respond in time"}
)
