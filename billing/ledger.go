/*
ledger.go - Ledger normalization and status derivation

PURPOSE:
  Every computation in this package runs over a normalized ledger:
  canonical month keys, ascending order, one entry per month, and
  DueAmount/Status derived from RentAmount and PaidAmount.

RECOMPUTE, DON'T PATCH:
  A month can regress (partial -> unpaid) when a payment is reversed.
  DueAmount and Status are always recomputed from scratch from the
  amounts, never adjusted incrementally, so stored values cannot drift.
  When the stored values disagree with the derived ones the difference
  is reported as a Discrepancy instead of being trusted.

NORMALIZATION RULES:
  - Month keys are canonicalized ("2024-1" and "2024-01-15" -> "2024-01").
    Unparseable keys are kept verbatim and still sorted lexicographically.
  - Order is ascending by key; sorting is stable.
  - A repeated month is resolved last-write-wins.
  - Negative amounts fail with ErrBillingDataInvalid. They are never clamped.
*/
package billing

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/generic"
)

// Discrepancy is a difference between stored and derived state.
type Discrepancy struct {
	Check   string
	Month   generic.Month
	Stored  string
	Derived string
}

const (
	CheckDueAmount          = "due_amount"
	CheckStatus             = "status"
	CheckDuplicateMonth     = "duplicate_month"
	CheckAdvanceExceedsPaid = "advance_applied_exceeds_paid"
	CheckBeforeJoining      = "month_before_joining"
)

// DeriveStatus classifies a month from its amounts.
func DeriveStatus(rent, paid decimal.Decimal) Status {
	due := generic.NonNegative(rent.Sub(paid))
	switch {
	case due.IsZero():
		return StatusPaid
	case paid.IsZero():
		return StatusUnpaid
	default:
		return StatusPartial
	}
}

// Recompute returns e with DueAmount and Status derived from scratch.
func (e Entry) Recompute() Entry {
	e.DueAmount = generic.NonNegative(e.RentAmount.Sub(e.PaidAmount))
	e.Status = DeriveStatus(e.RentAmount, e.PaidAmount)
	switch {
	case len(e.Records) > 0:
		e.RecordsState = RecordsPopulated
	case e.RecordsState == RecordsPopulated:
		e.RecordsState = RecordsEmpty
	}
	return e
}

// Validate rejects negative amounts with ErrBillingDataInvalid.
func (e Entry) Validate() error {
	checks := []struct {
		field string
		v     decimal.Decimal
	}{
		{"rentAmount", e.RentAmount},
		{"paidAmount", e.PaidAmount},
		{"dueAmount", e.DueAmount},
		{"advanceApplied", e.AdvanceApplied},
	}
	for _, c := range checks {
		if err := generic.CheckNonNegative(c.field, e.Month, c.v); err != nil {
			return err
		}
	}
	for _, r := range e.Records {
		if err := generic.CheckNonNegative("records.amount", e.Month, r.Amount); err != nil {
			return err
		}
	}
	return nil
}

// Normalize validates, canonicalizes, de-duplicates, sorts and recomputes
// the ledger. The input slice is not modified.
func Normalize(entries []Entry) (Ledger, []Discrepancy, error) {
	var drift []Discrepancy
	out := make(Ledger, 0, len(entries))
	index := make(map[generic.Month]int, len(entries))

	for _, raw := range entries {
		raw.Month = raw.Month.Canonical()
		if err := raw.Validate(); err != nil {
			return nil, nil, err
		}

		e := raw.Recompute()
		if raw.Status != "" && raw.Status != e.Status {
			drift = append(drift, Discrepancy{Check: CheckStatus, Month: e.Month, Stored: string(raw.Status), Derived: string(e.Status)})
		}
		if (raw.Status != "" || !raw.DueAmount.IsZero()) && !raw.DueAmount.Equal(e.DueAmount) {
			drift = append(drift, Discrepancy{Check: CheckDueAmount, Month: e.Month, Stored: raw.DueAmount.String(), Derived: e.DueAmount.String()})
		}
		if e.AdvanceApplied.GreaterThan(e.PaidAmount) {
			drift = append(drift, Discrepancy{Check: CheckAdvanceExceedsPaid, Month: e.Month, Stored: e.AdvanceApplied.String(), Derived: e.PaidAmount.String()})
		}

		if i, ok := index[e.Month]; ok {
			drift = append(drift, Discrepancy{Check: CheckDuplicateMonth, Month: e.Month, Stored: out[i].PaidAmount.String(), Derived: e.PaidAmount.String()})
			out[i] = e
			continue
		}
		index[e.Month] = len(out)
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, drift, nil
}

// MustNormalize is Normalize for inputs known to be valid. It panics on error.
func MustNormalize(entries []Entry) Ledger {
	l, _, err := Normalize(entries)
	if err != nil {
		panic(err)
	}
	return l
}

// Find returns the entry for month, if any.
func (l Ledger) Find(month generic.Month) (Entry, bool) {
	for _, e := range l {
		if e.Month == month {
			return e, true
		}
	}
	return Entry{}, false
}

// Months returns the month keys in order.
func (l Ledger) Months() []generic.Month {
	months := make([]generic.Month, len(l))
	for i, e := range l {
		months[i] = e.Month
	}
	return months
}
