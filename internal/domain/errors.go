package domain

import (
	"errors"
	"fmt"
)

// Business-rule failures. None of these are transient; they are surfaced
// to the caller as-is and never retried.
var (
	ErrEmptyCart         = errors.New("sale has no items")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyVoid       = errors.New("sale is already void")
	ErrDuplicateCode     = errors.New("code already in use")
	ErrValidation        = errors.New("validation failed")
)

// Validationf wraps ErrValidation with detail so errors.Is still matches.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// InsufficientStockf names the offending product and slot.
func InsufficientStockf(code string, size string, have int, want int) error {
	if size != "" {
		return fmt.Errorf("%w: product %s size %s has %d, need %d", ErrInsufficientStock, code, size, have, want)
	}
	return fmt.Errorf("%w: product %s has %d, need %d", ErrInsufficientStock, code, have, want)
}
