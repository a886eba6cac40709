/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the billing API. Money is a decimal string ("5000.00"
  and 5000 are both accepted on input). Dates are YYYY-MM-DD, months
  YYYY-MM, timestamps RFC 3339.

NAMING CONVENTION:
  - *DTO: Response types returned to clients (some double as request bodies)
  - *Request: Request body types from clients
  - *Response: Composite response wrappers

RECORDS:
  A ledger entry's "records" field is tri-state on input:
    absent or null   legacy entry, payments were never itemized
    []               itemized, no payment events
    [ ... ]          itemized payment events

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: Domain types
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
)

const dateLayout = "2006-01-02"

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// STUDENTS
// =============================================================================

// StudentDTO is a student billing profile. Also the POST /api/students body.
type StudentDTO struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Room            string          `json:"room,omitempty"`
	MonthlyRent     decimal.Decimal `json:"monthly_rent"`
	TotalAdvance    decimal.Decimal `json:"total_advance"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`
	JoiningDate     string          `json:"joining_date,omitempty"`
}

func (d StudentDTO) toProfile() (billing.Profile, error) {
	p := billing.Profile{
		StudentID:       generic.StudentID(d.ID),
		Name:            d.Name,
		Room:            d.Room,
		MonthlyRent:     d.MonthlyRent,
		TotalAdvance:    d.TotalAdvance,
		SecurityDeposit: d.SecurityDeposit,
	}
	if d.JoiningDate != "" {
		t, err := time.Parse(dateLayout, d.JoiningDate)
		if err != nil {
			return p, fmt.Errorf("invalid joining_date (use YYYY-MM-DD): %w", err)
		}
		p.JoiningDate = t
	}
	return p, nil
}

func toStudentDTO(p billing.Profile) StudentDTO {
	return StudentDTO{
		ID:              string(p.StudentID),
		Name:            p.Name,
		Room:            p.Room,
		MonthlyRent:     p.MonthlyRent,
		TotalAdvance:    p.TotalAdvance,
		SecurityDeposit: p.SecurityDeposit,
		JoiningDate:     formatDate(p.JoiningDate),
	}
}

// =============================================================================
// LEDGER
// =============================================================================

type PaymentRecordDTO struct {
	ID     string          `json:"id,omitempty"`
	Date   string          `json:"date,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method,omitempty"`
	Type   string          `json:"type,omitempty"`
	Notes  string          `json:"notes,omitempty"`
}

// LedgerEntryDTO is one month in API responses.
type LedgerEntryDTO struct {
	Month          string             `json:"month"`
	RentAmount     decimal.Decimal    `json:"rent_amount"`
	PaidAmount     decimal.Decimal    `json:"paid_amount"`
	DueAmount      decimal.Decimal    `json:"due_amount"`
	AdvanceApplied decimal.Decimal    `json:"advance_applied"`
	Status         string             `json:"status"`
	RecordsState   string             `json:"records_state"`
	Records        []PaymentRecordDTO `json:"records,omitempty"`
}

// PutEntryRequest is the PUT /api/students/{id}/ledger/{month} body. Due and
// status are always derived from rent and paid.
type PutEntryRequest struct {
	RentAmount     decimal.Decimal     `json:"rent_amount"`
	PaidAmount     decimal.Decimal     `json:"paid_amount"`
	AdvanceApplied decimal.Decimal     `json:"advance_applied"`
	Records        *[]PaymentRecordDTO `json:"records"`
}

func (r PutEntryRequest) toEntry(month generic.Month) (billing.Entry, error) {
	e := billing.Entry{
		Month:          month,
		RentAmount:     r.RentAmount,
		PaidAmount:     r.PaidAmount,
		AdvanceApplied: r.AdvanceApplied,
		RecordsState:   billing.RecordsUnknown,
	}
	if r.Records != nil {
		e.RecordsState = billing.RecordsEmpty
		for _, rec := range *r.Records {
			pr := billing.PaymentRecord{
				ID:     generic.RecordID(rec.ID),
				Amount: rec.Amount,
				Method: rec.Method,
				Type:   rec.Type,
				Notes:  rec.Notes,
			}
			if rec.Date != "" {
				t, err := parseDateOrTime(rec.Date)
				if err != nil {
					return e, fmt.Errorf("records.date: %w", err)
				}
				pr.Date = t
			}
			e.Records = append(e.Records, pr)
		}
	}
	return e.Recompute(), nil
}

func toLedgerEntryDTO(e billing.Entry) LedgerEntryDTO {
	dto := LedgerEntryDTO{
		Month:          e.Month.String(),
		RentAmount:     e.RentAmount,
		PaidAmount:     e.PaidAmount,
		DueAmount:      e.DueAmount,
		AdvanceApplied: e.AdvanceApplied,
		Status:         string(e.Status),
		RecordsState:   e.RecordsState.String(),
	}
	for _, r := range e.Records {
		dto.Records = append(dto.Records, PaymentRecordDTO{
			ID:     string(r.ID),
			Date:   formatDate(r.Date),
			Amount: r.Amount,
			Method: r.Method,
			Type:   r.Type,
			Notes:  r.Notes,
		})
	}
	return dto
}

// =============================================================================
// EXTRAS AND ADVANCE AUDIT
// =============================================================================

// ExtraDTO is an extra transaction. Also the POST .../extras body.
type ExtraDTO struct {
	ID            string          `json:"id,omitempty"`
	Type          string          `json:"type"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Date          string          `json:"date,omitempty"`
}

func (d ExtraDTO) toExtra() (billing.ExtraTransaction, error) {
	x := billing.ExtraTransaction{
		ID:            generic.RecordID(d.ID),
		Type:          billing.ExtraType(d.Type),
		PaidAmount:    d.PaidAmount,
		PaymentMethod: d.PaymentMethod,
		Notes:         d.Notes,
	}
	if d.Type == "" {
		return x, fmt.Errorf("%w: extra transaction type required", generic.ErrBillingDataInvalid)
	}
	if d.Date != "" {
		t, err := parseDateOrTime(d.Date)
		if err != nil {
			return x, fmt.Errorf("date: %w", err)
		}
		x.Date = t
	}
	return x, billing.ValidateExtras([]billing.ExtraTransaction{x})
}

func toExtraDTO(x billing.ExtraTransaction) ExtraDTO {
	return ExtraDTO{
		ID:            string(x.ID),
		Type:          string(x.Type),
		PaidAmount:    x.PaidAmount,
		PaymentMethod: x.PaymentMethod,
		Notes:         x.Notes,
		Date:          formatDate(x.Date),
	}
}

type AdvanceSourceDTO struct {
	ID          string          `json:"id,omitempty"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	FromMonth   string          `json:"from_month,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (d AdvanceSourceDTO) toSource() (billing.AdvanceSource, error) {
	src := billing.AdvanceSource{
		ID:          d.ID,
		Kind:        billing.AdvanceSourceKind(d.Kind),
		Amount:      d.Amount,
		Description: d.Description,
	}
	switch src.Kind {
	case billing.SourcePrepayment, billing.SourceOverpayment:
	default:
		return src, fmt.Errorf("%w: unknown advance source kind %q", generic.ErrBillingDataInvalid, d.Kind)
	}
	if err := generic.CheckNonNegative("amount", "", d.Amount); err != nil {
		return src, err
	}
	if d.FromMonth != "" {
		m, err := generic.ParseMonth(d.FromMonth)
		if err != nil {
			return src, err
		}
		src.FromMonth = m
	}
	created, err := parseOptionalTime(d.CreatedAt)
	if err != nil {
		return src, fmt.Errorf("created_at: %w", err)
	}
	src.CreatedAt = created
	return src, nil
}

type AdvanceApplicationDTO struct {
	ID        string          `json:"id,omitempty"`
	Month     string          `json:"month"`
	Amount    decimal.Decimal `json:"amount"`
	DueBefore decimal.Decimal `json:"due_before"`
	DueAfter  decimal.Decimal `json:"due_after"`
	AppliedAt string          `json:"applied_at,omitempty"`
}

func (d AdvanceApplicationDTO) toApplication() (billing.AdvanceApplication, error) {
	app := billing.AdvanceApplication{
		ID:        d.ID,
		Amount:    d.Amount,
		DueBefore: d.DueBefore,
		DueAfter:  d.DueAfter,
	}
	m, err := generic.ParseMonth(d.Month)
	if err != nil {
		return app, err
	}
	app.Month = m
	for _, c := range []struct {
		field string
		v     decimal.Decimal
	}{{"amount", d.Amount}, {"due_before", d.DueBefore}, {"due_after", d.DueAfter}} {
		if err := generic.CheckNonNegative(c.field, m, c.v); err != nil {
			return app, err
		}
	}
	applied, err := parseOptionalTime(d.AppliedAt)
	if err != nil {
		return app, fmt.Errorf("applied_at: %w", err)
	}
	app.AppliedAt = applied
	return app, nil
}

// AdvanceAuditResponse is the advance audit trail plus the result of
// checking it against the ledger.
type AdvanceAuditResponse struct {
	Sources       []AdvanceSourceDTO      `json:"sources"`
	Applications  []AdvanceApplicationDTO `json:"applications"`
	Discrepancies []DiscrepancyDTO        `json:"discrepancies"`
}

func toAdvanceAuditResponse(a billing.AdvanceAudit, drift []billing.Discrepancy) AdvanceAuditResponse {
	resp := AdvanceAuditResponse{
		Sources:       make([]AdvanceSourceDTO, 0, len(a.Sources)),
		Applications:  make([]AdvanceApplicationDTO, 0, len(a.Applications)),
		Discrepancies: toDiscrepancyDTOs(drift),
	}
	for _, s := range a.Sources {
		resp.Sources = append(resp.Sources, toAdvanceSourceDTO(s))
	}
	for _, app := range a.Applications {
		resp.Applications = append(resp.Applications, toAdvanceApplicationDTO(app))
	}
	return resp
}

func toAdvanceSourceDTO(s billing.AdvanceSource) AdvanceSourceDTO {
	return AdvanceSourceDTO{
		ID:          s.ID,
		Kind:        string(s.Kind),
		Amount:      s.Amount,
		FromMonth:   s.FromMonth.String(),
		CreatedAt:   formatTimestamp(s.CreatedAt),
		Description: s.Description,
	}
}

func toAdvanceApplicationDTO(app billing.AdvanceApplication) AdvanceApplicationDTO {
	return AdvanceApplicationDTO{
		ID:        app.ID,
		Month:     app.Month.String(),
		Amount:    app.Amount,
		DueBefore: app.DueBefore,
		DueAfter:  app.DueAfter,
		AppliedAt: formatTimestamp(app.AppliedAt),
	}
}

// =============================================================================
// DUE STATUS AND PROJECTION
// =============================================================================

type DiscrepancyDTO struct {
	Check   string `json:"check"`
	Month   string `json:"month,omitempty"`
	Stored  string `json:"stored"`
	Derived string `json:"derived"`
}

func toDiscrepancyDTOs(ds []billing.Discrepancy) []DiscrepancyDTO {
	out := make([]DiscrepancyDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, DiscrepancyDTO{Check: d.Check, Month: d.Month.String(), Stored: d.Stored, Derived: d.Derived})
	}
	return out
}

// DueStatusResponse is GET /api/students/{id}/due-status.
type DueStatusResponse struct {
	Student              StudentDTO       `json:"student"`
	Payments             []LedgerEntryDTO `json:"payments"`
	TotalAdvance         decimal.Decimal  `json:"total_advance"`
	ConsecutiveDueMonths int              `json:"consecutive_due_months"`
	DueStatus            string           `json:"due_status"`
	TotalDue             decimal.Decimal  `json:"total_due"`
	Discrepancies        []DiscrepancyDTO `json:"discrepancies"`
}

// DueStatusCheckRequest is a due-status payload produced elsewhere. The
// reported figures are compared with ones recomputed from the payments.
type DueStatusCheckRequest struct {
	Payments             []LedgerEntryDTO `json:"payments"`
	ConsecutiveDueMonths int              `json:"consecutive_due_months"`
	DueStatus            string           `json:"due_status"`
	TotalDue             decimal.Decimal  `json:"total_due"`
}

// DueStatusCheckResponse carries the recomputed summary and every
// disagreement with the reported one.
type DueStatusCheckResponse struct {
	ConsecutiveDueMonths int              `json:"consecutive_due_months"`
	DueStatus            string           `json:"due_status"`
	TotalDue             decimal.Decimal  `json:"total_due"`
	Discrepancies        []DiscrepancyDTO `json:"discrepancies"`
}

// toEntries converts payload entries as reported, keeping their stored due
// and status so drift against the derived values can be detected.
func toEntries(dtos []LedgerEntryDTO) ([]billing.Entry, error) {
	out := make([]billing.Entry, 0, len(dtos))
	for _, d := range dtos {
		e := billing.Entry{
			Month:          generic.Month(d.Month),
			RentAmount:     d.RentAmount,
			PaidAmount:     d.PaidAmount,
			DueAmount:      d.DueAmount,
			AdvanceApplied: d.AdvanceApplied,
			Status:         billing.Status(d.Status),
		}
		for _, r := range d.Records {
			pr := billing.PaymentRecord{Amount: r.Amount, Method: r.Method, Type: r.Type}
			if r.Date != "" {
				t, err := parseDateOrTime(r.Date)
				if err != nil {
					return nil, err
				}
				pr.Date = t
			}
			e.Records = append(e.Records, pr)
		}
		if len(e.Records) > 0 {
			e.RecordsState = billing.RecordsPopulated
		}
		out = append(out, e)
	}
	return out, nil
}

type ProjectedMonthDTO struct {
	Month        string          `json:"month"`
	Owed         decimal.Decimal `json:"owed"`
	Covered      decimal.Decimal `json:"covered"`
	Billed       bool            `json:"billed"`
	FullyCovered bool            `json:"fully_covered"`
}

// ProjectionResponse is GET /api/students/{id}/projection.
type ProjectionResponse struct {
	AsOf            string              `json:"as_of"`
	From            string              `json:"from"`
	To              string              `json:"to"`
	StartingAdvance decimal.Decimal     `json:"starting_advance"`
	Months          []ProjectedMonthDTO `json:"months"`
	TotalCovered    decimal.Decimal     `json:"total_covered"`
	Remaining       decimal.Decimal     `json:"remaining"`
	Exhausted       bool                `json:"exhausted"`
}

func toProjectionResponse(p billing.Projection, asOf time.Time) ProjectionResponse {
	resp := ProjectionResponse{
		AsOf:            formatDate(asOf),
		From:            p.From.String(),
		To:              p.To.String(),
		StartingAdvance: p.StartingAdvance,
		Months:          make([]ProjectedMonthDTO, 0, len(p.Months)),
		TotalCovered:    p.Total(),
		Remaining:       p.Remaining,
		Exhausted:       p.Exhausted,
	}
	for _, m := range p.Months {
		resp.Months = append(resp.Months, ProjectedMonthDTO{
			Month:        m.Month.String(),
			Owed:         m.Owed,
			Covered:      m.Covered,
			Billed:       m.Billed,
			FullyCovered: m.FullyCovered(),
		})
	}
	return resp
}

// =============================================================================
// STATEMENTS
// =============================================================================

type ReconciliationDTO struct {
	TotalRentInvoiced     decimal.Decimal            `json:"total_rent_invoiced"`
	TotalRentPaid         decimal.Decimal            `json:"total_rent_paid"`
	TotalOtherPaid        decimal.Decimal            `json:"total_other_paid"`
	TotalRefunded         decimal.Decimal            `json:"total_refunded"`
	TotalCashReceived     decimal.Decimal            `json:"total_cash_received"`
	TotalAdjustmentVolume decimal.Decimal            `json:"total_adjustment_volume"`
	TotalOutstandingDue   decimal.Decimal            `json:"total_outstanding_due"`
	UnitemizedCash        decimal.Decimal            `json:"unitemized_cash"`
	CashByMethod          map[string]decimal.Decimal `json:"cash_by_method"`
	PrecisionDegraded     bool                       `json:"precision_degraded"`
	DegradedMonths        []string                   `json:"degraded_months,omitempty"`
}

func toReconciliationDTO(r billing.Reconciliation) ReconciliationDTO {
	dto := ReconciliationDTO{
		TotalRentInvoiced:     r.TotalRentInvoiced,
		TotalRentPaid:         r.TotalRentPaid,
		TotalOtherPaid:        r.TotalOtherPaid,
		TotalRefunded:         r.TotalRefunded,
		TotalCashReceived:     r.TotalCashReceived,
		TotalAdjustmentVolume: r.TotalAdjustmentVolume,
		TotalOutstandingDue:   r.TotalOutstandingDue,
		UnitemizedCash:        r.UnitemizedCash,
		CashByMethod:          r.CashByMethod,
		PrecisionDegraded:     r.PrecisionDegraded,
	}
	for _, m := range r.DegradedMonths {
		dto.DegradedMonths = append(dto.DegradedMonths, m.String())
	}
	return dto
}

type LedgerRowDTO struct {
	Month          string          `json:"month"`
	Rent           decimal.Decimal `json:"rent"`
	Paid           decimal.Decimal `json:"paid"`
	Due            decimal.Decimal `json:"due"`
	AdvanceApplied decimal.Decimal `json:"advance_applied"`
	Status         string          `json:"status"`
}

type LedgerSummaryDTO struct {
	TotalInvoiced       decimal.Decimal  `json:"total_invoiced"`
	TotalRentPaid       decimal.Decimal  `json:"total_rent_paid"`
	TotalOtherPaid      decimal.Decimal  `json:"total_other_paid"`
	TotalRefunded       *decimal.Decimal `json:"total_refunded,omitempty"`
	TotalPaid           decimal.Decimal  `json:"total_paid"`
	TotalAdjustments    decimal.Decimal  `json:"total_adjustments"`
	TotalOutstandingDue decimal.Decimal  `json:"total_outstanding_due"`
}

// LedgerStatementDTO is GET /api/students/{id}/statement.
type LedgerStatementDTO struct {
	ID                   string             `json:"id"`
	StudentID            string             `json:"student_id"`
	StudentName          string             `json:"student_name"`
	Room                 string             `json:"room,omitempty"`
	AsOf                 string             `json:"as_of"`
	Rows                 []LedgerRowDTO     `json:"rows"`
	Summary              LedgerSummaryDTO   `json:"summary"`
	ConsecutiveDueMonths int                `json:"consecutive_due_months"`
	DueStatus            string             `json:"due_status"`
	Projection           ProjectionResponse `json:"projection"`
	Reconciliation       ReconciliationDTO  `json:"reconciliation"`
	PrecisionDegraded    bool               `json:"precision_degraded"`
	Discrepancies        []DiscrepancyDTO   `json:"discrepancies"`
}

func toLedgerStatementDTO(s *billing.LedgerStatement) LedgerStatementDTO {
	dto := LedgerStatementDTO{
		ID:          s.ID,
		StudentID:   string(s.StudentID),
		StudentName: s.StudentName,
		Room:        s.Room,
		AsOf:        formatDate(s.AsOf),
		Rows:        make([]LedgerRowDTO, 0, len(s.Rows)),
		Summary: LedgerSummaryDTO{
			TotalInvoiced:       s.Summary.TotalInvoiced,
			TotalRentPaid:       s.Summary.TotalRentPaid,
			TotalOtherPaid:      s.Summary.TotalOtherPaid,
			TotalPaid:           s.Summary.TotalPaid,
			TotalAdjustments:    s.Summary.TotalAdjustments,
			TotalOutstandingDue: s.Summary.TotalOutstandingDue,
		},
		ConsecutiveDueMonths: s.Due.ConsecutiveDueMonths,
		DueStatus:            string(s.Due.DueStatus),
		Projection:           toProjectionResponse(s.Projection, s.AsOf),
		Reconciliation:       toReconciliationDTO(s.Reconciliation),
		PrecisionDegraded:    s.PrecisionDegraded,
		Discrepancies:        toDiscrepancyDTOs(s.Discrepancies),
	}
	if s.Summary.ShowRefunded() {
		refunded := s.Summary.TotalRefunded
		dto.Summary.TotalRefunded = &refunded
	}
	for _, r := range s.Rows {
		dto.Rows = append(dto.Rows, LedgerRowDTO{
			Month:          r.Month.String(),
			Rent:           r.Rent,
			Paid:           r.Paid,
			Due:            r.Due,
			AdvanceApplied: r.AdvanceApplied,
			Status:         string(r.Status),
		})
	}
	return dto
}

// CheckoutRequest is the optional POST .../checkout body.
type CheckoutRequest struct {
	CheckoutDate   string           `json:"checkout_date,omitempty"`
	DepositForDues *decimal.Decimal `json:"security_deposit_used_for_dues,omitempty"`
}

// CheckoutStatementDTO is POST /api/students/{id}/checkout.
type CheckoutStatementDTO struct {
	ID                         string            `json:"id"`
	StudentID                  string            `json:"student_id"`
	StudentName                string            `json:"student_name"`
	Room                       string            `json:"room,omitempty"`
	CheckoutDate               string            `json:"checkout_date"`
	SecurityDeposit            decimal.Decimal   `json:"security_deposit"`
	TotalAdvance               decimal.Decimal   `json:"total_advance"`
	TotalOutstandingDue        decimal.Decimal   `json:"total_outstanding_due"`
	SecurityDepositUsedForDues decimal.Decimal   `json:"security_deposit_used_for_dues"`
	SecurityDepositReturned    decimal.Decimal   `json:"security_deposit_returned"`
	AdvanceUsedForDues         decimal.Decimal   `json:"advance_used_for_dues"`
	AdvanceReturned            decimal.Decimal   `json:"advance_returned"`
	TotalRefundAmount          decimal.Decimal   `json:"total_refund_amount"`
	RemainingDueOwed           decimal.Decimal   `json:"remaining_due_owed"`
	Reconciliation             ReconciliationDTO `json:"reconciliation"`
	PrecisionDegraded          bool              `json:"precision_degraded"`
	Discrepancies              []DiscrepancyDTO  `json:"discrepancies"`
}

func toCheckoutStatementDTO(s *billing.CheckoutStatement) CheckoutStatementDTO {
	return CheckoutStatementDTO{
		ID:                         s.ID,
		StudentID:                  string(s.StudentID),
		StudentName:                s.StudentName,
		Room:                       s.Room,
		CheckoutDate:               formatDate(s.CheckoutDate),
		SecurityDeposit:            s.SecurityDeposit,
		TotalAdvance:               s.TotalAdvance,
		TotalOutstandingDue:        s.TotalOutstandingDue,
		SecurityDepositUsedForDues: s.SecurityDepositUsedForDues,
		SecurityDepositReturned:    s.SecurityDepositReturned,
		AdvanceUsedForDues:         s.AdvanceUsedForDues,
		AdvanceReturned:            s.AdvanceReturned,
		TotalRefundAmount:          s.TotalRefundAmount,
		RemainingDueOwed:           s.RemainingDueOwed,
		Reconciliation:             toReconciliationDTO(s.Reconciliation),
		PrecisionDegraded:          s.PrecisionDegraded,
		Discrepancies:              toDiscrepancyDTOs(s.Discrepancies),
	}
}

type CollectionRowDTO struct {
	StudentID           string          `json:"student_id"`
	StudentName         string          `json:"student_name"`
	Room                string          `json:"room,omitempty"`
	CashReceived        decimal.Decimal `json:"cash_received"`
	Refunded            decimal.Decimal `json:"refunded"`
	AdjustmentsExcluded decimal.Decimal `json:"adjustments_excluded"`
	NetCollected        decimal.Decimal `json:"net_collected"`
	OutstandingDue      decimal.Decimal `json:"outstanding_due"`
	PrecisionDegraded   bool            `json:"precision_degraded"`
}

// CollectionReportDTO is GET /api/reports/collection.
type CollectionReportDTO struct {
	ID                       string                     `json:"id"`
	From                     string                     `json:"from"`
	To                       string                     `json:"to"`
	Rows                     []CollectionRowDTO         `json:"rows"`
	TotalCashReceived        decimal.Decimal            `json:"total_cash_received"`
	TotalRefunded            decimal.Decimal            `json:"total_refunded"`
	TotalAdjustmentsExcluded decimal.Decimal            `json:"total_adjustments_excluded"`
	NetCollected             decimal.Decimal            `json:"net_collected"`
	TotalOutstandingDue      decimal.Decimal            `json:"total_outstanding_due"`
	CashByMethod             map[string]decimal.Decimal `json:"cash_by_method"`
	PrecisionDegraded        bool                       `json:"precision_degraded"`
	DegradedStudents         []string                   `json:"degraded_students,omitempty"`
}

func toCollectionReportDTO(r *billing.CollectionReport) CollectionReportDTO {
	dto := CollectionReportDTO{
		ID:                       r.ID,
		From:                     formatDate(r.Period.From),
		To:                       formatDate(r.Period.To),
		Rows:                     make([]CollectionRowDTO, 0, len(r.Rows)),
		TotalCashReceived:        r.TotalCashReceived,
		TotalRefunded:            r.TotalRefunded,
		TotalAdjustmentsExcluded: r.TotalAdjustmentsExcluded,
		NetCollected:             r.NetCollected,
		TotalOutstandingDue:      r.TotalOutstandingDue,
		CashByMethod:             r.CashByMethod,
		PrecisionDegraded:        r.PrecisionDegraded,
	}
	for _, row := range r.Rows {
		dto.Rows = append(dto.Rows, CollectionRowDTO{
			StudentID:           string(row.StudentID),
			StudentName:         row.StudentName,
			Room:                row.Room,
			CashReceived:        row.CashReceived,
			Refunded:            row.Refunded,
			AdjustmentsExcluded: row.AdjustmentsExcluded,
			NetCollected:        row.NetCollected,
			OutstandingDue:      row.OutstandingDue,
			PrecisionDegraded:   row.PrecisionDegraded,
		})
	}
	for _, id := range r.DegradedStudents {
		dto.DegradedStudents = append(dto.DegradedStudents, string(id))
	}
	return dto
}

// =============================================================================
// HELPERS
// =============================================================================

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// parseDateOrTime accepts YYYY-MM-DD or RFC 3339. Anything else is bad
// client data.
func parseDateOrTime(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD or RFC 3339", generic.ErrBillingDataInvalid, s)
	}
	return t, nil
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseDateOrTime(s)
}
