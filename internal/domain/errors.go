package domain

import "errors"

var (
	ErrNotFound            = errors.New("payment not found")
	ErrDuplicateToken      = errors.New("token already exists")
	ErrPaymentTerminal     = errors.New("payment already in terminal state")
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrProviderUnavailable = errors.New("swish client unavailable")
)
