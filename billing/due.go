package billing

import (
	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/generic"
)

// =============================================================================
// DUE CLASSIFIER - Consecutive due streak and risk tier
// =============================================================================

type DueStatus string

const (
	DueNone     DueStatus = "no_due"
	DueOneMonth DueStatus = "one_month"
	DueTwoPlus  DueStatus = "two_plus_months"
)

// DueSummary is the result of classifying a ledger.
type DueSummary struct {
	ConsecutiveDueMonths int
	DueStatus            DueStatus
	TotalDue             decimal.Decimal
}

// StatusForStreak maps a consecutive-due count to its tier.
func StatusForStreak(n int) DueStatus {
	switch {
	case n <= 0:
		return DueNone
	case n == 1:
		return DueOneMonth
	default:
		return DueTwoPlus
	}
}

// Classify normalizes entries and classifies the result.
func Classify(entries []Entry) (DueSummary, error) {
	ledger, _, err := Normalize(entries)
	if err != nil {
		return DueSummary{}, err
	}
	return ledger.Classify(), nil
}

// Classify derives the due streak from a normalized ledger.
//
// The streak counts trailing months with a due amount, walking back from the
// most recent entry and stopping at the first settled month. An older due
// month behind a later paid month does not extend it; TotalDue still
// includes it.
func (l Ledger) Classify() DueSummary {
	total := generic.Zero
	for _, e := range l {
		total = total.Add(e.DueAmount)
	}

	streak := 0
	for i := len(l) - 1; i >= 0; i-- {
		if !l[i].DueAmount.IsPositive() {
			break
		}
		streak++
	}

	return DueSummary{
		ConsecutiveDueMonths: streak,
		DueStatus:            StatusForStreak(streak),
		TotalDue:             total,
	}
}
