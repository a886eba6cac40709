/*
statement.go - Student ledger statement

PURPOSE:
  Composes classification, projection and reconciliation into the
  documents handed to the rendering layer (PDF/XLSX/JSON). Only numbers
  live here; layout is the renderer's concern.

DOCUMENTS:
  LedgerStatement:    per-month table + summary (this file)
  CheckoutStatement:  deposit/advance settlement at checkout (checkout.go)
  CollectionReport:   cash collected across students for a period (report.go)

TOTAL PAID:
  The ledger summary's TotalPaid is TotalCashReceived from the reconciler,
  never TotalRentPaid + TotalOtherPaid. Internal transfers are excluded.
*/
package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/generic"
)

// =============================================================================
// BUILDER
// =============================================================================

// Builder produces statements. Its only state is configuration.
type Builder struct {
	// NewID returns a document ID. Defaults to a random UUID.
	NewID func() string

	// HorizonMonths bounds the advance forecast on ledger statements.
	HorizonMonths int
}

func NewBuilder() *Builder {
	return &Builder{NewID: uuid.NewString, HorizonMonths: DefaultHorizonMonths}
}

func (b *Builder) id() string {
	if b.NewID == nil {
		return uuid.NewString()
	}
	return b.NewID()
}

// =============================================================================
// LEDGER STATEMENT
// =============================================================================

// StatementInput is the snapshot a ledger statement is built from.
type StatementInput struct {
	Profile Profile
	Entries []Entry
	Extras  []ExtraTransaction
	AsOf    time.Time

	// Audit is optional; when set it is cross-checked against the ledger.
	Audit *AdvanceAudit
}

type LedgerRow struct {
	Month          generic.Month
	Rent           decimal.Decimal
	Paid           decimal.Decimal
	Due            decimal.Decimal
	AdvanceApplied decimal.Decimal
	Status         Status
}

type LedgerSummary struct {
	TotalInvoiced       decimal.Decimal
	TotalRentPaid       decimal.Decimal
	TotalOtherPaid      decimal.Decimal
	TotalRefunded       decimal.Decimal
	TotalPaid           decimal.Decimal // actual cash in
	TotalAdjustments    decimal.Decimal
	TotalOutstandingDue decimal.Decimal
}

// ShowRefunded reports whether the refunded line belongs on the document.
func (s LedgerSummary) ShowRefunded() bool {
	return s.TotalRefunded.IsPositive()
}

type LedgerStatement struct {
	ID          string
	StudentID   generic.StudentID
	StudentName string
	Room        string
	AsOf        time.Time

	Rows           []LedgerRow
	Summary        LedgerSummary
	Due            DueSummary
	Projection     Projection
	Reconciliation Reconciliation

	PrecisionDegraded bool
	Discrepancies     []Discrepancy
}

// Ledger builds the student ledger statement.
func (b *Builder) Ledger(in StatementInput) (*LedgerStatement, error) {
	if err := in.Profile.Validate(); err != nil {
		return nil, err
	}
	ledger, drift, err := Normalize(in.Entries)
	if err != nil {
		return nil, err
	}
	rec, err := ledger.Reconcile(in.Extras)
	if err != nil {
		return nil, err
	}

	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	stmt := &LedgerStatement{
		ID:          b.id(),
		StudentID:   in.Profile.StudentID,
		StudentName: in.Profile.Name,
		Room:        in.Profile.Room,
		AsOf:        asOf,
		Rows:        make([]LedgerRow, 0, len(ledger)),
		Due:         ledger.Classify(),
		Projection: ledger.Project(in.Profile.TotalAdvance, in.Profile.MonthlyRent, asOf,
			b.HorizonMonths, in.Profile.JoiningDate),
		Reconciliation: rec,
		Summary: LedgerSummary{
			TotalInvoiced:       rec.TotalRentInvoiced,
			TotalRentPaid:       rec.TotalRentPaid,
			TotalOtherPaid:      rec.TotalOtherPaid,
			TotalRefunded:       rec.TotalRefunded,
			TotalPaid:           rec.TotalCashReceived,
			TotalAdjustments:    rec.TotalAdjustmentVolume,
			TotalOutstandingDue: rec.TotalOutstandingDue,
		},
		PrecisionDegraded: rec.PrecisionDegraded,
	}

	for _, e := range ledger {
		stmt.Rows = append(stmt.Rows, LedgerRow{
			Month:          e.Month,
			Rent:           e.RentAmount,
			Paid:           e.PaidAmount,
			Due:            e.DueAmount,
			AdvanceApplied: e.AdvanceApplied,
			Status:         e.Status,
		})
	}

	stmt.Discrepancies = append(stmt.Discrepancies, drift...)
	stmt.Discrepancies = append(stmt.Discrepancies, rec.Drift...)
	stmt.Discrepancies = append(stmt.Discrepancies, ledger.CheckJoiningDate(in.Profile.JoiningDate)...)
	if in.Audit != nil {
		stmt.Discrepancies = append(stmt.Discrepancies, ledger.CheckAdvanceAudit(in.Profile.TotalAdvance, *in.Audit)...)
	}
	return stmt, nil
}
