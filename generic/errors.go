/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The billing package wraps these with context; the api package maps them
  to HTTP status codes.

ERROR CATEGORIES:
  1. Data integrity - negative amounts, malformed input that cannot be normalized
  2. Balance - consuming more deposit or advance than exists
  3. Lookup - missing students

All of these are recoverable by the caller (re-fetch corrected data).
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBillingDataInvalid is returned when input violates a data-integrity
	// rule (e.g. a negative amount). Statements are refused rather than clamped.
	ErrBillingDataInvalid = errors.New("billing data invalid")

	// ErrInsufficientBalance is returned when a caller asks to consume more
	// deposit or advance than is available.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidMonth is returned when a month key cannot be parsed.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrInvalidPeriod is returned when a period ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrStudentNotFound is returned when a referenced student doesn't exist.
	ErrStudentNotFound = errors.New("student not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidAmountError reports a negative (or otherwise unusable) amount.
type InvalidAmountError struct {
	Field string
	Month Month // empty when the field is not month-scoped
	Value decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	if e.Month != "" {
		return fmt.Sprintf("billing data invalid: %s for %s is %s", e.Field, e.Month, e.Value)
	}
	return fmt.Sprintf("billing data invalid: %s is %s", e.Field, e.Value)
}

func (e *InvalidAmountError) Unwrap() error {
	return ErrBillingDataInvalid
}

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	Pool      string // "security_deposit" or "advance"
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s: available %s, requested %s, shortfall %s",
		e.Pool, e.Available, e.Requested, e.Requested.Sub(e.Available))
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// CheckNonNegative returns an InvalidAmountError when v < 0.
func CheckNonNegative(field string, month Month, v decimal.Decimal) error {
	if v.IsNegative() {
		return &InvalidAmountError{Field: field, Month: month, Value: v}
	}
	return nil
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrBillingDataInvalid) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound)
}
