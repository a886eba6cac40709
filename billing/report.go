package billing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/generic"
)

// =============================================================================
// COLLECTION REPORT - Cash collected across a population
// =============================================================================
// Same policy as Reconcile, applied to many students: adjustments are
// excluded, refunds are reported separately and subtracted only for the net
// figure. Dated records and extras are filtered by the period; undated
// (legacy) amounts fall into the period of their month.

// StudentActivity is one student's snapshot for a report.
type StudentActivity struct {
	Profile Profile
	Entries []Entry
	Extras  []ExtraTransaction
}

type CollectionInput struct {
	Period   generic.Period
	Students []StudentActivity
}

type CollectionRow struct {
	StudentID           generic.StudentID
	StudentName         string
	Room                string
	CashReceived        decimal.Decimal
	Refunded            decimal.Decimal
	AdjustmentsExcluded decimal.Decimal
	NetCollected        decimal.Decimal
	OutstandingDue      decimal.Decimal
	PrecisionDegraded   bool
}

type CollectionReport struct {
	ID     string
	Period generic.Period
	Rows   []CollectionRow

	TotalCashReceived        decimal.Decimal
	TotalRefunded            decimal.Decimal
	TotalAdjustmentsExcluded decimal.Decimal
	NetCollected             decimal.Decimal
	TotalOutstandingDue      decimal.Decimal
	CashByMethod             map[string]decimal.Decimal

	PrecisionDegraded bool
	DegradedStudents  []generic.StudentID
}

// Collection builds the collection report. Any student with invalid data
// fails the whole report.
func (b *Builder) Collection(in CollectionInput) (*CollectionReport, error) {
	if err := in.Period.Validate(); err != nil {
		return nil, err
	}

	report := &CollectionReport{
		ID:                       b.id(),
		Period:                   in.Period,
		Rows:                     make([]CollectionRow, 0, len(in.Students)),
		TotalCashReceived:        decimal.Zero,
		TotalRefunded:            decimal.Zero,
		TotalAdjustmentsExcluded: decimal.Zero,
		NetCollected:             decimal.Zero,
		TotalOutstandingDue:      decimal.Zero,
		CashByMethod:             map[string]decimal.Decimal{},
	}

	for _, s := range in.Students {
		rec, err := reconcilePeriod(s, in.Period)
		if err != nil {
			return nil, fmt.Errorf("student %s: %w", s.Profile.StudentID, err)
		}

		row := CollectionRow{
			StudentID:           s.Profile.StudentID,
			StudentName:         s.Profile.Name,
			Room:                s.Profile.Room,
			CashReceived:        rec.TotalCashReceived,
			Refunded:            rec.TotalRefunded,
			AdjustmentsExcluded: rec.TotalAdjustmentVolume,
			NetCollected:        rec.NetCashReceived(),
			OutstandingDue:      rec.TotalOutstandingDue,
			PrecisionDegraded:   rec.PrecisionDegraded,
		}
		report.Rows = append(report.Rows, row)

		report.TotalCashReceived = report.TotalCashReceived.Add(row.CashReceived)
		report.TotalRefunded = report.TotalRefunded.Add(row.Refunded)
		report.TotalAdjustmentsExcluded = report.TotalAdjustmentsExcluded.Add(row.AdjustmentsExcluded)
		report.TotalOutstandingDue = report.TotalOutstandingDue.Add(row.OutstandingDue)
		for method, amount := range rec.CashByMethod {
			report.CashByMethod[method] = report.CashByMethod[method].Add(amount)
		}
		if row.PrecisionDegraded {
			report.PrecisionDegraded = true
			report.DegradedStudents = append(report.DegradedStudents, row.StudentID)
		}
	}

	sort.SliceStable(report.Rows, func(i, j int) bool { return report.Rows[i].StudentID < report.Rows[j].StudentID })
	report.NetCollected = report.TotalCashReceived.Sub(report.TotalRefunded)
	return report, nil
}

func reconcilePeriod(s StudentActivity, period generic.Period) (Reconciliation, error) {
	if err := s.Profile.Validate(); err != nil {
		return Reconciliation{}, err
	}
	ledger, _, err := Normalize(s.Entries)
	if err != nil {
		return Reconciliation{}, err
	}
	if err := ValidateExtras(s.Extras); err != nil {
		return Reconciliation{}, err
	}
	t := newTally(period)
	for _, e := range ledger {
		t.addEntry(e)
	}
	for _, x := range s.Extras {
		t.addExtra(x)
	}
	return t.result(), nil
}
