package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	minAmount = decimal.RequireFromString("0.01")
	maxAmount = decimal.RequireFromString("999999999999.99")
)

// ValidateAmount checks a decimal amount string against the Swish limits.
// Amounts stay strings end to end; they are never converted to floats.
func ValidateAmount(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: not a number: %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -2 {
		return fmt.Errorf("%w: at most 2 decimal places allowed, got %q", ErrInvalidAmount, s)
	}
	if d.LessThan(minAmount) {
		return fmt.Errorf("%w: must be at least %s", ErrInvalidAmount, minAmount)
	}
	if d.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: must not exceed %s", ErrInvalidAmount, maxAmount)
	}
	return nil
}
