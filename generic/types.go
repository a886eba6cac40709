/*
Package generic provides the domain-agnostic building blocks of the billing engine.

PURPOSE:
  This package holds the small value types every billing computation is
  expressed in: money amounts, calendar-month keys and the error vocabulary.
  It knows nothing about students, rent or statements.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money helpers over decimal.Decimal (sum, min, max, clamp)
  - Identifiers: StudentID, RecordID
  - Decimal parsing that never silently turns garbage into zero

DESIGN PRINCIPLES:
  1. Precision: every amount is a decimal.Decimal, never a float64
  2. Type Safety: IDs are distinct string types
  3. Explicit failure: parsing returns an error instead of guessing

SEE ALSO:
  - time.go: Month key (YYYY-MM) parsing and arithmetic, Period
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID string
type RecordID string

// =============================================================================
// MONEY - decimal helpers
// =============================================================================

// Zero is the additive identity for money.
var Zero = decimal.Zero

// Sum adds any number of amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// NonNegative returns max(0, v).
func NonNegative(v decimal.Decimal) decimal.Decimal {
	return Max(v, decimal.Zero)
}

// ParseMoney parses a decimal string. Empty input is zero.
func ParseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// MustMoney parses s and panics on failure. Intended for tests and literals.
func MustMoney(s string) decimal.Decimal {
	d, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FormatMoney renders an amount with two decimal places.
func FormatMoney(v decimal.Decimal) string {
	return v.StringFixed(2)
}
