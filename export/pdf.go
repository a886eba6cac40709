/*
pdf.go - PDF rendering of billing documents

PURPOSE:
  Lays out the numbers a billing.Builder produced. Nothing is computed
  here beyond formatting; every amount comes from the statement.

DOCUMENTS:
  LedgerPDF     student ledger: month table + summary block
  CheckoutPDF   checkout settlement

SEE ALSO:
  - xlsx.go: spreadsheet rendering
  - billing/statement.go, billing/checkout.go: the numbers
*/
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
)

// Options control document presentation.
type Options struct {
	// Currency is printed next to amount headings.
	Currency string
}

const degradedCaveat = "Some payments have no itemized records; cash totals include them as received."

// LedgerPDF renders a student ledger statement.
func LedgerPDF(stmt *billing.LedgerStatement, opts Options) ([]byte, error) {
	pdf := newDocument("Student Ledger Statement")

	header(pdf, stmt.StudentName, stmt.Room, "As of", stmt.AsOf)
	pdf.Cell(0, 6, fmt.Sprintf("Statement: %s", stmt.ID))
	pdf.Ln(8)

	// Month table
	widths := []float64{25, 30, 30, 30, 30, 25}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range []string{"Month", "Rent", "Paid", "Due", "Advance", "Status"} {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range stmt.Rows {
		pdf.CellFormat(widths[0], 6, row.Month.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, generic.FormatMoney(row.Rent), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, generic.FormatMoney(row.Paid), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, generic.FormatMoney(row.Due), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, generic.FormatMoney(row.AdvanceApplied), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 6, string(row.Status), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	s := stmt.Summary
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Summary (%s)", opts.currency()))
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	line(pdf, "Total Invoiced", s.TotalInvoiced)
	line(pdf, "Rent Paid", s.TotalRentPaid)
	line(pdf, "Other Paid", s.TotalOtherPaid)
	if s.ShowRefunded() {
		line(pdf, "Refunded", s.TotalRefunded)
	}
	pdf.SetFont("Arial", "B", 10)
	line(pdf, "TOTAL PAID (actual cash in)", s.TotalPaid)
	line(pdf, "TOTAL OUTSTANDING DUE", s.TotalOutstandingDue)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Due status: %s (%d consecutive months)", stmt.Due.DueStatus, stmt.Due.ConsecutiveDueMonths))
	pdf.Ln(8)

	if len(stmt.Projection.Months) > 0 {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 6, "Upcoming months covered by advance")
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 10)
		for _, m := range stmt.Projection.Months {
			label := m.Month.String()
			if m.FullyCovered() {
				label += " (auto-paid)"
			}
			line(pdf, label, m.Covered)
		}
		line(pdf, "Advance left after horizon", stmt.Projection.Remaining)
		pdf.Ln(4)
	}

	if stmt.PrecisionDegraded {
		caveat(pdf)
	}
	return output(pdf)
}

// CheckoutPDF renders a checkout settlement statement.
func CheckoutPDF(stmt *billing.CheckoutStatement, opts Options) ([]byte, error) {
	pdf := newDocument("Checkout Statement")

	header(pdf, stmt.StudentName, stmt.Room, "Checkout date", stmt.CheckoutDate)
	pdf.Cell(0, 6, fmt.Sprintf("Statement: %s", stmt.ID))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Settlement (%s)", opts.currency()))
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	line(pdf, "Security Deposit", stmt.SecurityDeposit)
	line(pdf, "Advance Balance", stmt.TotalAdvance)
	line(pdf, "Outstanding Due", stmt.TotalOutstandingDue)
	pdf.Ln(3)
	line(pdf, "Security Deposit Used for Dues", stmt.SecurityDepositUsedForDues)
	line(pdf, "Advance Used for Dues", stmt.AdvanceUsedForDues)
	line(pdf, "Security Deposit Returned", stmt.SecurityDepositReturned)
	line(pdf, "Advance Returned", stmt.AdvanceReturned)
	pdf.SetFont("Arial", "B", 10)
	line(pdf, "TOTAL REFUND AMOUNT", stmt.TotalRefundAmount)
	if stmt.RemainingDueOwed.IsPositive() {
		line(pdf, "DUE STILL OWED", stmt.RemainingDueOwed)
	}
	pdf.SetFont("Arial", "", 10)
	pdf.Ln(4)
	line(pdf, "Total cash received", stmt.Reconciliation.TotalCashReceived)

	if stmt.PrecisionDegraded {
		pdf.Ln(4)
		caveat(pdf)
	}
	return output(pdf)
}

// =============================================================================
// HELPERS
// =============================================================================

func (o Options) currency() string {
	if o.Currency == "" {
		return "INR"
	}
	return o.Currency
}

func newDocument(title string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, title)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	return pdf
}

func header(pdf *gofpdf.Fpdf, name, room, dateLabel string, date time.Time) {
	pdf.Cell(0, 6, fmt.Sprintf("Student: %s", name))
	pdf.Ln(5)
	if room != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Room: %s", room))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("%s: %s", dateLabel, date.Format("2006-01-02")))
	pdf.Ln(5)
}

func line(pdf *gofpdf.Fpdf, label string, amount decimal.Decimal) {
	pdf.CellFormat(90, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, generic.FormatMoney(amount), "", 0, "R", false, 0, "")
	pdf.Ln(-1)
}

func caveat(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "I", 9)
	pdf.MultiCell(0, 5, "Note: "+degradedCaveat, "", "L", false)
	pdf.SetFont("Arial", "", 10)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
