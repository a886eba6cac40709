/*
projection.go - Advance coverage forecast

PURPOSE:
  Answers "which upcoming months will existing advance credit pay, and by
  how much?" for display. It never mutates the ledger or the advance
  balance; the authoritative application is posted by the payment service
  and comes back to us as Entry.AdvanceApplied.

ALGORITHM (greedy, strictly chronological):
  Starting the month after AsOf, walk forward up to HorizonMonths months:
    - month before the joining month: never billed, skip
    - entry exists with no due: already settled, skip
    - owed = entry.DueAmount if the entry exists, else MonthlyRent
    - covered = min(remaining, owed); remaining -= covered
  Stop as soon as the remaining advance reaches zero. The horizon is
  capped at MaxHorizonMonths.

  The soonest due month is always paid first. No reordering, no skipping
  ahead. This is the same order the payment service applies advance in,
  so forecasts and committed applications agree.

RATE CHANGES:
  Unbilled months use the current MonthlyRent. A rent change scheduled
  inside the horizon is not anticipated.

INVARIANT:
  Total() <= StartingAdvance, with equality iff the advance runs out
  inside the horizon (Exhausted).
*/
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/generic"
)

const (
	// DefaultHorizonMonths is used when ProjectionInput.HorizonMonths is not set.
	DefaultHorizonMonths = 12
	// MaxHorizonMonths bounds any forecast to ten years.
	MaxHorizonMonths = 120
)

// ProjectionInput contains all inputs for a forecast.
type ProjectionInput struct {
	Entries       []Entry
	TotalAdvance  decimal.Decimal
	MonthlyRent   decimal.Decimal
	AsOf          time.Time
	HorizonMonths int

	// JoiningDate bounds the forecast from below. Zero means unbounded.
	JoiningDate time.Time
}

// ProjectedMonth is one month the advance is expected to pay.
type ProjectedMonth struct {
	Month   generic.Month
	Owed    decimal.Decimal
	Covered decimal.Decimal
	Billed  bool // a ledger entry already exists for the month
}

// FullyCovered reports whether the advance pays the whole month.
func (p ProjectedMonth) FullyCovered() bool {
	return p.Covered.Equal(p.Owed)
}

// Projection is the forecast result. Months are in chronological order.
type Projection struct {
	StartingAdvance decimal.Decimal
	Months          []ProjectedMonth
	Remaining       decimal.Decimal
	Exhausted       bool
	From            generic.Month
	To              generic.Month
}

// Covered returns the forecast coverage for month (zero if none).
func (p Projection) Covered(month generic.Month) decimal.Decimal {
	for _, m := range p.Months {
		if m.Month == month {
			return m.Covered
		}
	}
	return decimal.Zero
}

// Total is the sum of all forecast coverage.
func (p Projection) Total() decimal.Decimal {
	total := decimal.Zero
	for _, m := range p.Months {
		total = total.Add(m.Covered)
	}
	return total
}

// AsMap returns month -> covered.
func (p Projection) AsMap() map[generic.Month]decimal.Decimal {
	out := make(map[generic.Month]decimal.Decimal, len(p.Months))
	for _, m := range p.Months {
		out[m.Month] = m.Covered
	}
	return out
}

// Project forecasts advance coverage. See the file comment for the rules.
func Project(input ProjectionInput) (Projection, error) {
	if input.AsOf.IsZero() {
		return Projection{}, fmt.Errorf("%w: projection requires an as-of date", generic.ErrBillingDataInvalid)
	}
	if input.HorizonMonths > MaxHorizonMonths {
		return Projection{}, fmt.Errorf("%w: horizon %d exceeds %d months", generic.ErrBillingDataInvalid, input.HorizonMonths, MaxHorizonMonths)
	}
	if err := generic.CheckNonNegative("totalAdvance", "", input.TotalAdvance); err != nil {
		return Projection{}, err
	}
	if err := generic.CheckNonNegative("monthlyRent", "", input.MonthlyRent); err != nil {
		return Projection{}, err
	}
	ledger, _, err := Normalize(input.Entries)
	if err != nil {
		return Projection{}, err
	}
	return ledger.Project(input.TotalAdvance, input.MonthlyRent, input.AsOf, input.HorizonMonths, input.JoiningDate), nil
}

// Project runs the forecast over an already normalized ledger.
func (l Ledger) Project(totalAdvance, monthlyRent decimal.Decimal, asOf time.Time, horizon int, joining time.Time) Projection {
	if horizon <= 0 {
		horizon = DefaultHorizonMonths
	}
	horizon = min(horizon, MaxHorizonMonths)

	start := generic.MonthOf(asOf).Next()
	result := Projection{
		StartingAdvance: totalAdvance,
		From:            start,
		To:              start.AddMonths(horizon - 1),
	}

	var joinMonth generic.Month
	if !joining.IsZero() {
		joinMonth = generic.MonthOf(joining)
	}

	remaining := totalAdvance
	for i := 0; i < horizon && remaining.IsPositive(); i++ {
		month := start.AddMonths(i)
		if joinMonth != "" && month.Before(joinMonth) {
			continue
		}

		owed := monthlyRent
		entry, billed := l.Find(month)
		if billed {
			if !entry.DueAmount.IsPositive() {
				continue
			}
			owed = entry.DueAmount
		}
		if !owed.IsPositive() {
			continue
		}

		covered := generic.Min(remaining, owed)
		result.Months = append(result.Months, ProjectedMonth{
			Month:   month,
			Owed:    owed,
			Covered: covered,
			Billed:  billed,
		})
		remaining = remaining.Sub(covered)
	}

	result.Remaining = remaining
	result.Exhausted = totalAdvance.IsPositive() && remaining.IsZero()
	return result
}
