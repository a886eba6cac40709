package export

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/billing"
	"github.com/xuri/excelize/v2"
)

// LedgerXLSX renders a ledger statement as a workbook with a summary sheet
// and a months sheet.
func LedgerXLSX(stmt *billing.LedgerStatement, opts Options) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summary := "summary"
	months := "months"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(months); err != nil {
		return nil, err
	}

	rows := [][]any{
		{"Student Ledger Statement"},
		{},
		{"Statement", stmt.ID},
		{"Student", stmt.StudentName},
		{"Room", stmt.Room},
		{"As of", stmt.AsOf.Format("2006-01-02")},
		{"Currency", opts.currency()},
		{},
		{"Total Invoiced", money(stmt.Summary.TotalInvoiced)},
		{"Rent Paid", money(stmt.Summary.TotalRentPaid)},
		{"Other Paid", money(stmt.Summary.TotalOtherPaid)},
	}
	if stmt.Summary.ShowRefunded() {
		rows = append(rows, []any{"Refunded", money(stmt.Summary.TotalRefunded)})
	}
	rows = append(rows,
		[]any{"TOTAL PAID (actual cash in)", money(stmt.Summary.TotalPaid)},
		[]any{"TOTAL OUTSTANDING DUE", money(stmt.Summary.TotalOutstandingDue)},
		[]any{"Due status", string(stmt.Due.DueStatus)},
		[]any{"Consecutive due months", stmt.Due.ConsecutiveDueMonths},
		[]any{"Precision degraded", stmt.PrecisionDegraded},
	)
	if err := writeRows(f, summary, rows); err != nil {
		return nil, err
	}

	table := [][]any{{"Month", "Rent", "Paid", "Due", "Advance Applied", "Status", "Advance Projected"}}
	for _, r := range stmt.Rows {
		table = append(table, []any{
			r.Month.String(), money(r.Rent), money(r.Paid), money(r.Due), money(r.AdvanceApplied), string(r.Status), nil,
		})
	}
	for _, m := range stmt.Projection.Months {
		table = append(table, []any{m.Month.String(), nil, nil, nil, nil, "projected", money(m.Covered)})
	}
	if err := writeRows(f, months, table); err != nil {
		return nil, err
	}
	return write(f)
}

// CollectionXLSX renders a collection report, one row per student plus a
// payment method breakdown.
func CollectionXLSX(report *billing.CollectionReport, opts Options) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	students := "students"
	methods := "methods"
	if err := f.SetSheetName("Sheet1", students); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(methods); err != nil {
		return nil, err
	}

	table := [][]any{{
		"Student", "Name", "Room", "Cash Received", "Refunded", "Adjustments Excluded",
		"Net Collected", "Outstanding Due", "Precision Degraded",
	}}
	for _, r := range report.Rows {
		table = append(table, []any{
			string(r.StudentID), r.StudentName, r.Room, money(r.CashReceived), money(r.Refunded),
			money(r.AdjustmentsExcluded), money(r.NetCollected), money(r.OutstandingDue), r.PrecisionDegraded,
		})
	}
	table = append(table, []any{
		"TOTAL", "", "", money(report.TotalCashReceived), money(report.TotalRefunded),
		money(report.TotalAdjustmentsExcluded), money(report.NetCollected), money(report.TotalOutstandingDue),
		report.PrecisionDegraded,
	})
	if err := writeRows(f, students, table); err != nil {
		return nil, err
	}

	breakdown := [][]any{
		{"Period", report.Period.From.Format("2006-01-02") + " - " + report.Period.To.Format("2006-01-02")},
		{"Currency", opts.currency()},
		{},
		{"Method", "Cash Received"},
	}
	for _, method := range slices.Sorted(maps.Keys(report.CashByMethod)) {
		breakdown = append(breakdown, []any{method, money(report.CashByMethod[method])})
	}
	if err := writeRows(f, methods, breakdown); err != nil {
		return nil, err
	}
	return write(f)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// money converts to a float cell rounded to two places.
func money(v decimal.Decimal) float64 {
	return v.Round(2).InexactFloat64()
}

func write(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
