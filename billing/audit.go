package billing

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/generic"
)

// =============================================================================
// CONSISTENCY CHECKS - stored state vs derived state
// =============================================================================
// The payment service keeps its own due-status payload and advance audit
// trail. Neither is trusted for the numbers we publish; both are compared
// against what we derive from the ledger so drift surfaces early.

const (
	CheckConsecutiveDue   = "consecutive_due_months"
	CheckDueStatus        = "due_status"
	CheckTotalDue         = "total_due"
	CheckAdvanceApplied   = "advance_applied"
	CheckApplicationDelta = "application_due_delta"
	CheckAdvanceBalance   = "advance_balance"
)

// CrossCheckDueStatus compares a server-reported summary with the derived one.
func CrossCheckDueStatus(reported, derived DueSummary) []Discrepancy {
	var out []Discrepancy
	if reported.ConsecutiveDueMonths != derived.ConsecutiveDueMonths {
		out = append(out, Discrepancy{
			Check:   CheckConsecutiveDue,
			Stored:  strconv.Itoa(reported.ConsecutiveDueMonths),
			Derived: strconv.Itoa(derived.ConsecutiveDueMonths),
		})
	}
	if reported.DueStatus != "" && reported.DueStatus != derived.DueStatus {
		out = append(out, Discrepancy{Check: CheckDueStatus, Stored: string(reported.DueStatus), Derived: string(derived.DueStatus)})
	}
	if !reported.TotalDue.Equal(derived.TotalDue) {
		out = append(out, Discrepancy{Check: CheckTotalDue, Stored: reported.TotalDue.String(), Derived: derived.TotalDue.String()})
	}
	return out
}

// CheckJoiningDate reports ledger months that precede the joining month.
func (l Ledger) CheckJoiningDate(joining time.Time) []Discrepancy {
	if joining.IsZero() {
		return nil
	}
	joinMonth := generic.MonthOf(joining)
	var out []Discrepancy
	for _, e := range l {
		if e.Month.Valid() && e.Month.Before(joinMonth) {
			out = append(out, Discrepancy{Check: CheckBeforeJoining, Month: e.Month, Stored: e.Month.String(), Derived: joinMonth.String()})
		}
	}
	return out
}

// CheckAdvanceAudit compares the advance audit trail with the ledger and the
// current advance balance:
//   - per month, applied amounts must sum to Entry.AdvanceApplied
//   - each application must satisfy DueBefore - DueAfter == Amount
//   - sum(sources) - sum(applications) must equal totalAdvance
func (l Ledger) CheckAdvanceAudit(totalAdvance decimal.Decimal, audit AdvanceAudit) []Discrepancy {
	var out []Discrepancy

	applied := map[generic.Month]decimal.Decimal{}
	appliedTotal := decimal.Zero
	for _, app := range audit.Applications {
		month := app.Month.Canonical()
		applied[month] = applied[month].Add(app.Amount)
		appliedTotal = appliedTotal.Add(app.Amount)

		if delta := app.DueBefore.Sub(app.DueAfter); !delta.Equal(app.Amount) {
			out = append(out, Discrepancy{Check: CheckApplicationDelta, Month: month, Stored: app.Amount.String(), Derived: delta.String()})
		}
	}

	ledgerApplied := map[generic.Month]decimal.Decimal{}
	for _, e := range l {
		if e.AdvanceApplied.IsPositive() {
			ledgerApplied[e.Month] = e.AdvanceApplied
		}
	}

	months := make([]generic.Month, 0, len(applied)+len(ledgerApplied))
	seen := map[generic.Month]bool{}
	for m := range applied {
		months = append(months, m)
		seen[m] = true
	}
	for m := range ledgerApplied {
		if !seen[m] {
			months = append(months, m)
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

	for _, m := range months {
		if !applied[m].Equal(ledgerApplied[m]) {
			out = append(out, Discrepancy{Check: CheckAdvanceApplied, Month: m, Stored: applied[m].String(), Derived: ledgerApplied[m].String()})
		}
	}

	sourced := decimal.Zero
	for _, src := range audit.Sources {
		sourced = sourced.Add(src.Amount)
	}
	if balance := sourced.Sub(appliedTotal); !balance.Equal(totalAdvance) {
		out = append(out, Discrepancy{Check: CheckAdvanceBalance, Stored: balance.String(), Derived: totalAdvance.String()})
	}
	return out
}
