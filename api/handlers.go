/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the billing package. Every figure
  is recomputed from the stored snapshot on each request; nothing derived
  is cached.

ENDPOINTS:
  Students:
    GET    /api/students                          List students
    POST   /api/students                          Create or update a student
    GET    /api/students/{id}                     Get a student
    GET    /api/students/{id}/due-status          Ledger + recomputed due streak
    GET    /api/students/{id}/projection          Advance forecast (?as_of=&horizon=)

  Ledger and payments:
    GET    /api/students/{id}/ledger              Ledger months
    PUT    /api/students/{id}/ledger/{month}      Create or replace a month
    POST   /api/students/{id}/extras              Append an extra transaction

  Advance audit:
    GET    /api/students/{id}/advance-applications  Audit trail + consistency check
    POST   /api/students/{id}/advance-sources       Append a source
    POST   /api/students/{id}/advance-applications  Append an application

  Statements:
    GET    /api/students/{id}/statement           Ledger statement (?format=json|pdf|xlsx)
    POST   /api/students/{id}/checkout            Checkout statement (?format=json|pdf)
    GET    /api/reports/collection                Collection report (?from=&to=&format=json|xlsx)
    POST   /api/due-status/check                  Cross-check a reported due status

  Scenarios:
    GET    /api/scenarios                         List demo scenarios
    POST   /api/scenarios/load                    Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input or billing data that fails integrity checks
  - 404: Student not found
  - 409: Requested more deposit or advance than exists
  - 500: Internal errors

EVENTS:
  Ledger statements publish statement.issued, checkouts checkout.settled.
  A failed publish is logged and counted; the response is still served.
  Nothing is published when a requested PDF or XLSX fails to render.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - scheduler.go: Periodic drift audit
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/events"
	"github.com/warp/rent-billing/export"
	"github.com/warp/rent-billing/generic"
	"github.com/warp/rent-billing/metrics"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// DocumentRenderer turns built statements into downloadable files.
type DocumentRenderer interface {
	LedgerPDF(*billing.LedgerStatement) ([]byte, error)
	LedgerXLSX(*billing.LedgerStatement) ([]byte, error)
	CheckoutPDF(*billing.CheckoutStatement) ([]byte, error)
	CollectionXLSX(*billing.CollectionReport) ([]byte, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     billing.Store
	Builder   *billing.Builder
	Publisher events.Publisher
	Logger    *zap.Logger
	Documents DocumentRenderer

	// Now supplies the default as-of date.
	Now func() time.Time
}

// NewHandler creates a handler with a default builder and a log publisher.
func NewHandler(store billing.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:     store,
		Builder:   billing.NewBuilder(),
		Publisher: &events.LogPublisher{Logger: logger},
		Logger:    logger,
		Documents: export.Renderer{},
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns all student profiles.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Store.ListProfiles(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list students", err)
		return
	}
	dtos := make([]StudentDTO, 0, len(profiles))
	for _, p := range profiles {
		dtos = append(dtos, toStudentDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStudent creates or replaces a student profile.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}
	profile, err := req.toProfile()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student", err)
		return
	}
	if err := profile.Validate(); err != nil {
		h.fail(w, r, "Invalid student", err)
		return
	}
	if err := h.Store.SaveProfile(r.Context(), profile); err != nil {
		h.fail(w, r, "Failed to save student", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(profile))
}

// GetStudent returns a single student profile.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Store.GetProfile(r.Context(), studentID(r))
	if err != nil {
		h.fail(w, r, "Failed to get student", err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(profile))
}

// GetDueStatus returns the ledger with the due streak recomputed from it.
// GET /api/students/{id}/due-status
func (h *Handler) GetDueStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context(), studentID(r))
	if err != nil {
		h.fail(w, r, "Failed to load student", err)
		return
	}
	ledger, drift, err := billing.Normalize(snap.Entries)
	if err != nil {
		h.fail(w, r, "Ledger failed integrity checks", err)
		return
	}
	due := ledger.Classify()

	resp := DueStatusResponse{
		Student:              toStudentDTO(snap.Profile),
		Payments:             make([]LedgerEntryDTO, 0, len(ledger)),
		TotalAdvance:         snap.Profile.TotalAdvance,
		ConsecutiveDueMonths: due.ConsecutiveDueMonths,
		DueStatus:            string(due.DueStatus),
		TotalDue:             due.TotalDue,
		Discrepancies:        toDiscrepancyDTOs(drift),
	}
	for _, e := range ledger {
		resp.Payments = append(resp.Payments, toLedgerEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckDueStatus recomputes a due-status payload produced elsewhere and
// reports where the reported figures disagree.
// POST /api/due-status/check
func (h *Handler) CheckDueStatus(w http.ResponseWriter, r *http.Request) {
	var req DueStatusCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	entries, err := toEntries(req.Payments)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payments", err)
		return
	}
	ledger, drift, err := billing.Normalize(entries)
	if err != nil {
		h.fail(w, r, "Payments failed integrity checks", err)
		return
	}
	derived := ledger.Classify()
	reported := billing.DueSummary{
		ConsecutiveDueMonths: req.ConsecutiveDueMonths,
		DueStatus:            billing.DueStatus(req.DueStatus),
		TotalDue:             req.TotalDue,
	}
	drift = append(drift, billing.CrossCheckDueStatus(reported, derived)...)

	writeJSON(w, http.StatusOK, DueStatusCheckResponse{
		ConsecutiveDueMonths: derived.ConsecutiveDueMonths,
		DueStatus:            string(derived.DueStatus),
		TotalDue:             derived.TotalDue,
		Discrepancies:        toDiscrepancyDTOs(drift),
	})
}

// GetProjection forecasts which future months the advance will pay.
// GET /api/students/{id}/projection?as_of=YYYY-MM-DD&horizon=12
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return
	}
	horizon := h.Builder.HorizonMonths
	if v := r.URL.Query().Get("horizon"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > billing.MaxHorizonMonths {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("horizon must be an integer between 1 and %d", billing.MaxHorizonMonths), err)
			return
		}
		horizon = n
	}

	snap, err := h.Store.Snapshot(r.Context(), studentID(r))
	if err != nil {
		h.fail(w, r, "Failed to load student", err)
		return
	}
	projection, err := billing.Project(billing.ProjectionInput{
		Entries:       snap.Entries,
		TotalAdvance:  snap.Profile.TotalAdvance,
		MonthlyRent:   snap.Profile.MonthlyRent,
		AsOf:          asOf,
		HorizonMonths: horizon,
		JoiningDate:   snap.Profile.JoiningDate,
	})
	if err != nil {
		h.fail(w, r, "Failed to project advance", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectionResponse(projection, asOf))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// GetLedger returns the stored ledger months in order.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context(), studentID(r))
	if err != nil {
		h.fail(w, r, "Failed to load student", err)
		return
	}
	dtos := make([]LedgerEntryDTO, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		dtos = append(dtos, toLedgerEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PutLedgerEntry creates or replaces one month. Due and status are derived.
// PUT /api/students/{id}/ledger/{month}
func (h *Handler) PutLedgerEntry(w http.ResponseWriter, r *http.Request) {
	month, err := generic.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}
	var req PutEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	entry, err := req.toEntry(month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ledger entry", err)
		return
	}
	if err := entry.Validate(); err != nil {
		h.fail(w, r, "Invalid ledger entry", err)
		return
	}
	if err := h.Store.PutEntry(r.Context(), studentID(r), entry); err != nil {
		h.fail(w, r, "Failed to save ledger entry", err)
		return
	}
	snap, err := h.Store.Snapshot(r.Context(), studentID(r))
	if err != nil {
		h.fail(w, r, "Failed to load student", err)
		return
	}
	stored, ok := billing.Ledger(snap.Entries).Find(month)
	if !ok {
		h.fail(w, r, "Failed to load ledger entry", fmt.Errorf("month %s missing after write", month))
		return
	}
	writeJSON(w, http.StatusOK, toLedgerEntryDTO(stored))
}

// CreateExtra appends an extra transaction.
// POST /api/students/{id}/extras
func (h *Handler) CreateExtra(w http.ResponseWriter, r *http.Request) {
	var req ExtraDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	extra, err := req.toExtra()
	if err != nil {
		h.fail(w, r, "Invalid extra transaction", err)
		return
	}
	if extra.ID == "" {
		extra.ID = generic.RecordID(uuid.NewString())
	}
	if err := h.Store.AppendExtra(r.Context(), studentID(r), extra); err != nil {
		h.fail(w, r, "Failed to save extra transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExtraDTO(extra))
}

// =============================================================================
// ADVANCE AUDIT HANDLERS
// =============================================================================

// GetAdvanceApplications returns the advance audit trail and checks it
// against the ledger and the profile balance.
// GET /api/students/{id}/advance-applications
func (h *Handler) GetAdvanceApplications(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context(), studentID(r))
	if err != nil {
		h.fail(w, r, "Failed to load student", err)
		return
	}
	ledger, _, err := billing.Normalize(snap.Entries)
	if err != nil {
		h.fail(w, r, "Ledger failed integrity checks", err)
		return
	}
	drift := ledger.CheckAdvanceAudit(snap.Profile.TotalAdvance, snap.Audit)
	writeJSON(w, http.StatusOK, toAdvanceAuditResponse(snap.Audit, drift))
}

// CreateAdvanceSource appends an advance source.
// POST /api/students/{id}/advance-sources
func (h *Handler) CreateAdvanceSource(w http.ResponseWriter, r *http.Request) {
	var req AdvanceSourceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	src, err := req.toSource()
	if err != nil {
		h.fail(w, r, "Invalid advance source", err)
		return
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = h.Now()
	}
	if err := h.Store.AppendAdvanceSource(r.Context(), studentID(r), src); err != nil {
		h.fail(w, r, "Failed to save advance source", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdvanceSourceDTO(src))
}

// CreateAdvanceApplication appends an advance application.
// POST /api/students/{id}/advance-applications
func (h *Handler) CreateAdvanceApplication(w http.ResponseWriter, r *http.Request) {
	var req AdvanceApplicationDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	app, err := req.toApplication()
	if err != nil {
		h.fail(w, r, "Invalid advance application", err)
		return
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.AppliedAt.IsZero() {
		app.AppliedAt = h.Now()
	}
	if err := h.Store.AppendAdvanceApplication(r.Context(), studentID(r), app); err != nil {
		h.fail(w, r, "Failed to save advance application", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdvanceApplicationDTO(app))
}

// =============================================================================
// STATEMENT HANDLERS
// =============================================================================

// GetStatement builds the student ledger statement.
// GET /api/students/{id}/statement?as_of=YYYY-MM-DD&format=json|pdf|xlsx
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	format, ok := requireFormat(w, r, "json", "pdf", "xlsx")
	if !ok {
		return
	}
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return
	}
	snap, err := h.Store.Snapshot(r.Context(), studentID(r))
	if err != nil {
		h.fail(w, r, "Failed to load student", err)
		return
	}

	start := time.Now()
	stmt, err := h.Builder.Ledger(billing.StatementInput{
		Profile: snap.Profile,
		Entries: snap.Entries,
		Extras:  snap.Extras,
		AsOf:    asOf,
		Audit:   &snap.Audit,
	})
	h.observe(metrics.KindLedger, start, err, stmt != nil && stmt.PrecisionDegraded)
	if err != nil {
		h.fail(w, r, "Failed to build statement", err)
		return
	}

	// Events are published only after the document rendered.
	var doc []byte
	switch format {
	case "pdf":
		doc, ok = h.renderDocument(w, r, format, func() ([]byte, error) { return h.Documents.LedgerPDF(stmt) })
	case "xlsx":
		doc, ok = h.renderDocument(w, r, format, func() ([]byte, error) { return h.Documents.LedgerXLSX(stmt) })
	}
	if !ok {
		return
	}

	h.publish(r.Context(), events.TopicStatementIssued, string(stmt.StudentID), events.StatementIssued{
		StatementID:       stmt.ID,
		Kind:              metrics.KindLedger,
		StudentID:         string(stmt.StudentID),
		TotalCashReceived: generic.FormatMoney(stmt.Summary.TotalPaid),
		OutstandingDue:    generic.FormatMoney(stmt.Summary.TotalOutstandingDue),
		PrecisionDegraded: stmt.PrecisionDegraded,
		IssuedAt:          h.Now(),
	})

	if doc != nil {
		writeDocument(w, format, fmt.Sprintf("statement-%s-%s", stmt.StudentID, stmt.AsOf.Format(dateLayout)), doc)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerStatementDTO(stmt))
}

// Checkout builds the checkout settlement statement. The body is optional.
// POST /api/students/{id}/checkout?format=json|pdf
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	format, ok := requireFormat(w, r, "json", "pdf")
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	checkoutDate := h.Now()
	if req.CheckoutDate != "" {
		t, err := time.Parse(dateLayout, req.CheckoutDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid checkout_date (use YYYY-MM-DD)", err)
			return
		}
		checkoutDate = t
	}

	snap, err := h.Store.Snapshot(r.Context(), studentID(r))
	if err != nil {
		h.fail(w, r, "Failed to load student", err)
		return
	}

	start := time.Now()
	stmt, err := h.Builder.Checkout(billing.CheckoutInput{
		Profile:        snap.Profile,
		Entries:        snap.Entries,
		Extras:         snap.Extras,
		CheckoutDate:   checkoutDate,
		DepositForDues: req.DepositForDues,
	})
	h.observe(metrics.KindCheckout, start, err, stmt != nil && stmt.PrecisionDegraded)
	if err != nil {
		h.fail(w, r, "Failed to settle checkout", err)
		return
	}

	var doc []byte
	if format == "pdf" {
		if doc, ok = h.renderDocument(w, r, format, func() ([]byte, error) { return h.Documents.CheckoutPDF(stmt) }); !ok {
			return
		}
	}

	h.publish(r.Context(), events.TopicCheckoutSettled, string(stmt.StudentID), events.CheckoutSettled{
		StatementID:       stmt.ID,
		StudentID:         string(stmt.StudentID),
		TotalRefundAmount: generic.FormatMoney(stmt.TotalRefundAmount),
		RemainingDueOwed:  generic.FormatMoney(stmt.RemainingDueOwed),
		SettledAt:         h.Now(),
	})

	if doc != nil {
		writeDocument(w, format, fmt.Sprintf("checkout-%s-%s", stmt.StudentID, stmt.CheckoutDate.Format(dateLayout)), doc)
		return
	}
	writeJSON(w, http.StatusOK, toCheckoutStatementDTO(stmt))
}

// CollectionReport aggregates cash collected across all students.
// GET /api/reports/collection?from=YYYY-MM-DD&to=YYYY-MM-DD&format=json|xlsx
func (h *Handler) CollectionReport(w http.ResponseWriter, r *http.Request) {
	format, ok := requireFormat(w, r, "json", "xlsx")
	if !ok {
		return
	}
	var period generic.Period
	for _, p := range []struct {
		param string
		dst   *time.Time
	}{{"from", &period.From}, {"to", &period.To}} {
		v := r.URL.Query().Get(p.param)
		if v == "" {
			continue
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s (use YYYY-MM-DD)", p.param), err)
			return
		}
		*p.dst = t
	}

	ctx := r.Context()
	profiles, err := h.Store.ListProfiles(ctx)
	if err != nil {
		h.fail(w, r, "Failed to list students", err)
		return
	}
	students := make([]billing.StudentActivity, 0, len(profiles))
	for _, p := range profiles {
		snap, err := h.Store.Snapshot(ctx, p.StudentID)
		if err != nil {
			h.fail(w, r, "Failed to load student", err)
			return
		}
		students = append(students, billing.StudentActivity{Profile: snap.Profile, Entries: snap.Entries, Extras: snap.Extras})
	}

	start := time.Now()
	report, err := h.Builder.Collection(billing.CollectionInput{Period: period, Students: students})
	h.observe(metrics.KindCollection, start, err, report != nil && report.PrecisionDegraded)
	if err != nil {
		h.fail(w, r, "Failed to build collection report", err)
		return
	}

	var doc []byte
	if format == "xlsx" {
		if doc, ok = h.renderDocument(w, r, format, func() ([]byte, error) { return h.Documents.CollectionXLSX(report) }); !ok {
			return
		}
	}

	h.publish(ctx, events.TopicStatementIssued, report.ID, events.StatementIssued{
		StatementID:       report.ID,
		Kind:              metrics.KindCollection,
		TotalCashReceived: generic.FormatMoney(report.TotalCashReceived),
		OutstandingDue:    generic.FormatMoney(report.TotalOutstandingDue),
		PrecisionDegraded: report.PrecisionDegraded,
		IssuedAt:          h.Now(),
	})

	if doc != nil {
		writeDocument(w, format, "collection-"+report.ID, doc)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionReportDTO(report))
}

// =============================================================================
// HELPERS
// =============================================================================

func studentID(r *http.Request) generic.StudentID {
	return generic.StudentID(chi.URLParam(r, "id"))
}

func (h *Handler) asOf(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("as_of")
	if v == "" {
		return h.Now(), nil
	}
	return time.Parse(dateLayout, v)
}

func requireFormat(w http.ResponseWriter, r *http.Request, allowed ...string) (string, bool) {
	format := r.URL.Query().Get("format")
	if format == "" {
		return "json", true
	}
	for _, a := range allowed {
		if format == a {
			return format, true
		}
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported format %q", format), nil)
	return "", false
}

func (h *Handler) observe(kind string, start time.Time, err error, degraded bool) {
	metrics.ObserveStatement(kind, time.Since(start), err)
	if degraded {
		metrics.IncPrecisionDegraded(kind)
	}
}

// publish is best effort: a failure is logged and counted, never returned.
func (h *Handler) publish(ctx context.Context, topic, key string, event any) {
	if h.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := h.Publisher.Publish(ctx, topic, key, event); err != nil {
		metrics.IncPublishFailure(topic)
		h.Logger.Warn("event publish failed", zap.String("topic", topic), zap.String("key", key), zap.Error(err))
	}
}

var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// renderDocument writes the error response itself when rendering fails.
func (h *Handler) renderDocument(w http.ResponseWriter, r *http.Request, format string, render func() ([]byte, error)) ([]byte, bool) {
	data, err := render()
	metrics.ObserveExport(format, err)
	if err != nil {
		h.fail(w, r, "Failed to render document", err)
		return nil, false
	}
	return data, true
}

func writeDocument(w http.ResponseWriter, format, name string, data []byte) {
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// fail maps domain errors to HTTP status codes. Server errors are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case generic.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, generic.ErrInsufficientBalance):
		status = http.StatusConflict
	case generic.IsClientError(err):
		status = http.StatusBadRequest
	default:
		h.Logger.Error(message,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
