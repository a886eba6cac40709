/*
handlers_test.go - HTTP tests for the billing API

Tests run the chi router against the in-memory store with a fixed clock
and a recording publisher.
*/
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/events"
	"github.com/warp/rent-billing/store/memory"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

type testServer struct {
	handler   *Handler
	router    http.Handler
	publisher *recordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	h := NewHandler(memory.New(), zap.NewNop())
	h.Now = func() time.Time { return time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC) }
	pub := &recordingPublisher{}
	h.Publisher = pub
	return &testServer{handler: h, router: NewRouter(h), publisher: pub}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	msg := fmt.Sprintf("want %s, got %s", want, got)
	if len(msgAndArgs) > 0 {
		msg += ": " + fmt.Sprint(msgAndArgs...)
	}
	assert.True(t, decimal.RequireFromString(want).Equal(got), msg)
}

func (s *testServer) createStudent(t *testing.T, body string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/students", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) putMonth(t *testing.T, id, month, body string) {
	t.Helper()
	rec := s.do(t, http.MethodPut, "/api/students/"+id+"/ledger/"+month, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (s *testServer) loadScenario(t *testing.T, id string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// DUE STATUS
// =============================================================================

func TestDueStatus_TwoTrailingUnpaidMonths(t *testing.T) {
	// GIVEN: January paid, February and March unpaid
	s := newTestServer(t)
	s.createStudent(t, `{"id":"s1","name":"Ravi","monthly_rent":"5000","total_advance":"0","security_deposit":"0"}`)
	s.putMonth(t, "s1", "2024-01", `{"rent_amount":"5000","paid_amount":"5000","records":[{"amount":"5000","method":"cash"}]}`)
	s.putMonth(t, "s1", "2024-02", `{"rent_amount":"5000","paid_amount":"0","records":[]}`)
	s.putMonth(t, "s1", "2024-03", `{"rent_amount":"5000","paid_amount":"0","records":[]}`)

	// WHEN
	rec := s.do(t, http.MethodGet, "/api/students/s1/due-status", nil)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[DueStatusResponse](t, rec)
	assert.Equal(t, 2, resp.ConsecutiveDueMonths)
	assert.Equal(t, "two_plus_months", resp.DueStatus)
	assertMoney(t, "10000", resp.TotalDue)
	require.Len(t, resp.Payments, 3)
	assert.Equal(t, "paid", resp.Payments[0].Status)
	assert.Equal(t, "populated", resp.Payments[0].RecordsState)
	assert.Equal(t, "empty", resp.Payments[1].RecordsState)
}

func TestDueStatus_TrailingPaidMonthResetsStreak(t *testing.T) {
	// GIVEN: the March month is replaced with a paid one
	s := newTestServer(t)
	s.loadScenario(t, "arrears")
	s.putMonth(t, "demo-arrears", "2024-03", `{"rent_amount":"5000","paid_amount":"5000"}`)

	// WHEN
	resp := decode[DueStatusResponse](t, s.do(t, http.MethodGet, "/api/students/demo-arrears/due-status", nil))

	// THEN: February is still due but no longer trailing
	assert.Equal(t, 0, resp.ConsecutiveDueMonths)
	assert.Equal(t, "no_due", resp.DueStatus)
	assertMoney(t, "5000", resp.TotalDue)
}

func TestDueStatus_UnknownStudent(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/students/nobody/due-status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckDueStatus_ReportsDisagreement(t *testing.T) {
	// GIVEN: a payload claiming one due month where the payments show two
	s := newTestServer(t)
	body := `{
		"payments": [
			{"month":"2024-01","rent_amount":"5000","paid_amount":"5000","due_amount":"0","status":"paid"},
			{"month":"2024-02","rent_amount":"5000","paid_amount":"0","due_amount":"5000","status":"unpaid"},
			{"month":"2024-03","rent_amount":"5000","paid_amount":"0","due_amount":"4000","status":"unpaid"}
		],
		"consecutive_due_months": 1,
		"due_status": "one_month",
		"total_due": "9000"
	}`

	// WHEN
	rec := s.do(t, http.MethodPost, "/api/due-status/check", body)

	// THEN: the recomputed figures win and every disagreement is listed
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[DueStatusCheckResponse](t, rec)
	assert.Equal(t, 2, resp.ConsecutiveDueMonths)
	assert.Equal(t, "two_plus_months", resp.DueStatus)
	assertMoney(t, "10000", resp.TotalDue)

	checks := map[string]bool{}
	for _, d := range resp.Discrepancies {
		checks[d.Check] = true
	}
	assert.True(t, checks["due_amount"], "stored March due differs from rent - paid")
	assert.True(t, checks["consecutive_due_months"])
	assert.True(t, checks["due_status"])
	assert.True(t, checks["total_due"])
}

// =============================================================================
// LEDGER WRITES
// =============================================================================

func TestPutLedgerEntry_RejectsNegativeAmount(t *testing.T) {
	s := newTestServer(t)
	s.createStudent(t, `{"id":"s1","name":"Ravi","monthly_rent":"5000","total_advance":"0","security_deposit":"0"}`)

	rec := s.do(t, http.MethodPut, "/api/students/s1/ledger/2024-01", `{"rent_amount":"5000","paid_amount":"-10"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "billing data invalid")
}

func TestPutLedgerEntry_BadMonth(t *testing.T) {
	s := newTestServer(t)
	s.createStudent(t, `{"id":"s1","name":"Ravi","monthly_rent":"5000","total_advance":"0","security_deposit":"0"}`)

	rec := s.do(t, http.MethodPut, "/api/students/s1/ledger/january", `{"rent_amount":"5000","paid_amount":"0"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutLedgerEntry_UnknownStudent(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPut, "/api/students/nobody/ledger/2024-01", `{"rent_amount":"5000","paid_amount":"0"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutLedgerEntry_CanonicalizesMonthAndDerivesStatus(t *testing.T) {
	s := newTestServer(t)
	s.createStudent(t, `{"id":"s1","name":"Ravi","monthly_rent":"5000","total_advance":"0","security_deposit":"0"}`)

	rec := s.do(t, http.MethodPut, "/api/students/s1/ledger/2024-2", `{"rent_amount":"5000","paid_amount":"2000"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entry := decode[LedgerEntryDTO](t, rec)
	assert.Equal(t, "2024-02", entry.Month)
	assert.Equal(t, "partial", entry.Status)
	assert.Equal(t, "unknown", entry.RecordsState)
	assertMoney(t, "3000", entry.DueAmount)
}

func TestPutLedgerEntry_ReturnsStoredRecordIDs(t *testing.T) {
	s := newTestServer(t)
	s.createStudent(t, `{"id":"s1","name":"Ravi","monthly_rent":"5000","total_advance":"0","security_deposit":"0"}`)

	rec := s.do(t, http.MethodPut, "/api/students/s1/ledger/2024-01",
		`{"rent_amount":"5000","paid_amount":"5000","records":[{"date":"2024-01-03","amount":"5000","method":"cash"}]}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entry := decode[LedgerEntryDTO](t, rec)
	require.Len(t, entry.Records, 1)
	assert.NotEmpty(t, entry.Records[0].ID)

	stored := decode[[]LedgerEntryDTO](t, s.do(t, http.MethodGet, "/api/students/s1/ledger", nil))
	require.Len(t, stored, 1)
	assert.Equal(t, stored[0].Records[0].ID, entry.Records[0].ID)
}

func TestCreateEndpoints_RejectMalformedDates(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"extra date", "/api/students/demo-advance/extras", `{"type":"union_fee","paid_amount":"100","date":"15/01/2024"}`},
		{"ledger record date", "/api/students/demo-advance/ledger/2024-01", `{"rent_amount":"5000","paid_amount":"0","records":[{"date":"soon","amount":"0"}]}`},
		{"advance source created_at", "/api/students/demo-advance/advance-sources", `{"kind":"prepayment","amount":"100","created_at":"last week"}`},
		{"advance application applied_at", "/api/students/demo-advance/advance-applications", `{"month":"2024-02","amount":"100","due_before":"5000","due_after":"4900","applied_at":"yesterday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.loadScenario(t, "advance-prepaid")

			method := http.MethodPost
			if strings.Contains(tt.path, "/ledger/") {
				method = http.MethodPut
			}
			rec := s.do(t, method, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateExtra_ReturnsStoredTransaction(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "advance-prepaid")

	rec := s.do(t, http.MethodPost, "/api/students/demo-advance/extras",
		`{"type":"union_fee","paid_amount":"100","payment_method":"cash","date":"2024-01-10"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ExtraDTO](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "2024-01-10", created.Date)

	snap, err := s.handler.Store.Snapshot(context.Background(), "demo-advance")
	require.NoError(t, err)
	require.NotEmpty(t, snap.Extras)
	assert.Equal(t, created.ID, string(snap.Extras[len(snap.Extras)-1].ID))
}

func TestCreateStudent_RejectsNegativeDeposit(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/students",
		`{"id":"s1","name":"Ravi","monthly_rent":"5000","total_advance":"0","security_deposit":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PROJECTION
// =============================================================================

func TestProjection_AdvanceCoversNextMonthsGreedily(t *testing.T) {
	// GIVEN: 7000 advance, 5000 rent, nothing billed after January
	s := newTestServer(t)
	s.loadScenario(t, "advance-prepaid")

	// WHEN
	rec := s.do(t, http.MethodGet, "/api/students/demo-advance/projection?as_of=2024-01-15", nil)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ProjectionResponse](t, rec)
	require.Len(t, resp.Months, 2)
	assert.Equal(t, "2024-02", resp.Months[0].Month)
	assertMoney(t, "5000", resp.Months[0].Covered)
	assert.True(t, resp.Months[0].FullyCovered)
	assert.Equal(t, "2024-03", resp.Months[1].Month)
	assertMoney(t, "2000", resp.Months[1].Covered)
	assert.False(t, resp.Months[1].FullyCovered)
	assertMoney(t, "7000", resp.TotalCovered)
	assertMoney(t, "0", resp.Remaining)
	assert.True(t, resp.Exhausted)
}

func TestProjection_BadHorizon(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "advance-prepaid")

	for _, horizon := range []string{"0", "-1", "121", "2000000", "ten"} {
		t.Run(horizon, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/students/demo-advance/projection?horizon="+horizon, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	rec := s.do(t, http.MethodGet, "/api/students/demo-advance/projection?horizon=120", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// STATEMENTS
// =============================================================================

func TestStatement_AdjustmentExcludedFromCash(t *testing.T) {
	// GIVEN: 8000 paid as 5000 cash and a 3000 adjustment
	s := newTestServer(t)
	s.loadScenario(t, "adjusted-payments")

	// WHEN
	rec := s.do(t, http.MethodGet, "/api/students/demo-adjusted/statement?as_of=2024-01-31", nil)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stmt := decode[LedgerStatementDTO](t, rec)
	assertMoney(t, "8000", stmt.Summary.TotalRentPaid)
	assertMoney(t, "5000", stmt.Summary.TotalPaid)
	assertMoney(t, "3000", stmt.Summary.TotalAdjustments)
	assert.Nil(t, stmt.Summary.TotalRefunded, "refunded line hidden when zero")
	assert.False(t, stmt.PrecisionDegraded)
	assert.Empty(t, stmt.Discrepancies)
	assert.Equal(t, []string{events.TopicStatementIssued}, s.publisher.published())
}

func TestStatement_LegacyMonthsDegradePrecision(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "legacy-records")

	stmt := decode[LedgerStatementDTO](t, s.do(t, http.MethodGet, "/api/students/demo-legacy/statement", nil))

	assert.True(t, stmt.PrecisionDegraded)
	assert.Equal(t, []string{"2023-11", "2023-12"}, stmt.Reconciliation.DegradedMonths)
	assertMoney(t, "7500", stmt.Summary.TotalPaid)
}

func TestStatement_RefundShownWhenPositive(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "arrears")
	rec := s.do(t, http.MethodPost, "/api/students/demo-arrears/extras",
		`{"type":"refund","paid_amount":"500","payment_method":"cash","date":"2024-01-20"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	stmt := decode[LedgerStatementDTO](t, s.do(t, http.MethodGet, "/api/students/demo-arrears/statement", nil))

	require.NotNil(t, stmt.Summary.TotalRefunded)
	assertMoney(t, "500", *stmt.Summary.TotalRefunded)
	assertMoney(t, "5000", stmt.Summary.TotalPaid, "refunds are never netted into cash received")
}

func TestStatement_Formats(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "arrears")

	pdf := s.do(t, http.MethodGet, "/api/students/demo-arrears/statement?format=pdf", nil)
	require.Equal(t, http.StatusOK, pdf.Code, pdf.Body.String())
	assert.Equal(t, "application/pdf", pdf.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(pdf.Body.String(), "%PDF"))

	xlsx := s.do(t, http.MethodGet, "/api/students/demo-arrears/statement?format=xlsx", nil)
	require.Equal(t, http.StatusOK, xlsx.Code, xlsx.Body.String())
	assert.Contains(t, xlsx.Header().Get("Content-Disposition"), ".xlsx")

	bad := s.do(t, http.MethodGet, "/api/students/demo-arrears/statement?format=csv", nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestStatement_PublishFailureDoesNotFailRequest(t *testing.T) {
	s := newTestServer(t)
	s.publisher.err = errors.New("broker down")
	s.loadScenario(t, "arrears")

	rec := s.do(t, http.MethodGet, "/api/students/demo-arrears/statement", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.publisher.published(), 1)
}

type failingRenderer struct{}

var errRender = errors.New("font table missing")

func (failingRenderer) LedgerPDF(*billing.LedgerStatement) ([]byte, error) { return nil, errRender }
func (failingRenderer) LedgerXLSX(*billing.LedgerStatement) ([]byte, error) { return nil, errRender }
func (failingRenderer) CheckoutPDF(*billing.CheckoutStatement) ([]byte, error) { return nil, errRender }
func (failingRenderer) CollectionXLSX(*billing.CollectionReport) ([]byte, error) { return nil, errRender }

func TestDocuments_RenderFailurePublishesNothing(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"ledger pdf", http.MethodGet, "/api/students/demo-advance/statement?format=pdf"},
		{"ledger xlsx", http.MethodGet, "/api/students/demo-advance/statement?format=xlsx"},
		{"checkout pdf", http.MethodPost, "/api/students/demo-advance/checkout?format=pdf"},
		{"collection xlsx", http.MethodGet, "/api/reports/collection?format=xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: a renderer that always fails
			s := newTestServer(t)
			s.loadScenario(t, "advance-prepaid")
			s.handler.Documents = failingRenderer{}

			// WHEN
			rec := s.do(t, tt.method, tt.path, nil)

			// THEN: the client sees the failure and no event went out
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Empty(t, s.publisher.published())
		})
	}
}

// =============================================================================
// CHECKOUT
// =============================================================================

func TestCheckout_DepositOffsetsDueFirst(t *testing.T) {
	// GIVEN: deposit 3000, advance 1000, due 2000
	s := newTestServer(t)
	s.loadScenario(t, "checkout-with-dues")

	// WHEN
	rec := s.do(t, http.MethodPost, "/api/students/demo-checkout/checkout", `{"checkout_date":"2024-02-28"}`)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stmt := decode[CheckoutStatementDTO](t, rec)
	assert.Equal(t, "2024-02-28", stmt.CheckoutDate)
	assertMoney(t, "2000", stmt.SecurityDepositUsedForDues)
	assertMoney(t, "1000", stmt.SecurityDepositReturned)
	assertMoney(t, "1000", stmt.AdvanceReturned)
	assertMoney(t, "0", stmt.AdvanceUsedForDues)
	assertMoney(t, "2000", stmt.TotalRefundAmount)
	assertMoney(t, "0", stmt.RemainingDueOwed)
	assert.Equal(t, []string{events.TopicCheckoutSettled}, s.publisher.published())
}

func TestCheckout_EmptyBodyUsesToday(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "checkout-with-dues")

	rec := s.do(t, http.MethodPost, "/api/students/demo-checkout/checkout", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-01-15", decode[CheckoutStatementDTO](t, rec).CheckoutDate)
}

func TestCheckout_RequestedDepositAboveBalance(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "checkout-with-dues")

	rec := s.do(t, http.MethodPost, "/api/students/demo-checkout/checkout", `{"security_deposit_used_for_dues":"5000"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckout_PDF(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "checkout-with-dues")

	rec := s.do(t, http.MethodPost, "/api/students/demo-checkout/checkout?format=pdf", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

// =============================================================================
// COLLECTION REPORT
// =============================================================================

func TestCollectionReport_PeriodFilter(t *testing.T) {
	// GIVEN: two students with payments in January and February
	s := newTestServer(t)
	s.loadScenario(t, "arrears")
	s.loadScenario(t, "checkout-with-dues")

	// WHEN: reporting February only
	rec := s.do(t, http.MethodGet, "/api/reports/collection?from=2024-02-01&to=2024-02-29", nil)

	// THEN: only the February cash payment counts
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[CollectionReportDTO](t, rec)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "demo-arrears", report.Rows[0].StudentID)
	assertMoney(t, "0", report.Rows[0].CashReceived)
	assertMoney(t, "3000", report.Rows[1].CashReceived)
	assertMoney(t, "3000", report.TotalCashReceived)
	assertMoney(t, "3000", report.CashByMethod["cash"])
}

func TestCollectionReport_InvalidPeriod(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/reports/collection?from=2024-03-01&to=2024-02-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCollectionReport_XLSX(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "arrears")

	rec := s.do(t, http.MethodGet, "/api/reports/collection?format=xlsx", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypes["xlsx"], rec.Header().Get("Content-Type"))
}

// =============================================================================
// ADVANCE AUDIT
// =============================================================================

func TestAdvanceApplications_ConsistentTrail(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "adjusted-payments")

	rec := s.do(t, http.MethodGet, "/api/students/demo-adjusted/advance-applications", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[AdvanceAuditResponse](t, rec)
	assert.Len(t, resp.Sources, 1)
	assert.Len(t, resp.Applications, 1)
	assert.Empty(t, resp.Discrepancies)
}

func TestAdvanceApplications_DriftDetected(t *testing.T) {
	// GIVEN: an application whose due delta does not match its amount
	s := newTestServer(t)
	s.loadScenario(t, "advance-prepaid")
	rec := s.do(t, http.MethodPost, "/api/students/demo-advance/advance-applications",
		`{"month":"2024-02","amount":"5000","due_before":"5000","due_after":"1000"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN
	resp := decode[AdvanceAuditResponse](t, s.do(t, http.MethodGet, "/api/students/demo-advance/advance-applications", nil))

	// THEN
	checks := map[string]bool{}
	for _, d := range resp.Discrepancies {
		checks[d.Check] = true
	}
	assert.True(t, checks[billing.CheckApplicationDelta])
	assert.True(t, checks[billing.CheckAdvanceBalance])
	assert.True(t, checks[billing.CheckAdvanceApplied], "no ledger month records the application")
}

func TestAdvanceSource_RejectsUnknownKind(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "advance-prepaid")

	rec := s.do(t, http.MethodPost, "/api/students/demo-advance/advance-sources", `{"kind":"gift","amount":"100"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAdvanceEntries_ReturnAssignedIDAndTimestamp(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "advance-prepaid")

	// WHEN: neither body carries an id or a timestamp
	srcRec := s.do(t, http.MethodPost, "/api/students/demo-advance/advance-sources", `{"kind":"prepayment","amount":"100"}`)
	appRec := s.do(t, http.MethodPost, "/api/students/demo-advance/advance-applications",
		`{"month":"2024-02","amount":"100","due_before":"5000","due_after":"4900"}`)

	// THEN: the response shows what the server stored
	require.Equal(t, http.StatusCreated, srcRec.Code, srcRec.Body.String())
	src := decode[AdvanceSourceDTO](t, srcRec)
	assert.NotEmpty(t, src.ID)
	assert.Equal(t, "2024-01-15T00:00:00Z", src.CreatedAt)

	require.Equal(t, http.StatusCreated, appRec.Code, appRec.Body.String())
	app := decode[AdvanceApplicationDTO](t, appRec)
	assert.NotEmpty(t, app.ID)
	assert.Equal(t, "2024-01-15T00:00:00Z", app.AppliedAt)

	audit := decode[AdvanceAuditResponse](t, s.do(t, http.MethodGet, "/api/students/demo-advance/advance-applications", nil))
	require.NotEmpty(t, audit.Sources)
	require.NotEmpty(t, audit.Applications)
	assert.Equal(t, src.ID, audit.Sources[len(audit.Sources)-1].ID)
	assert.Equal(t, app.ID, audit.Applications[len(audit.Applications)-1].ID)
}

// =============================================================================
// SCENARIOS AND DRIFT AUDIT
// =============================================================================

func TestLoadScenario_Twice(t *testing.T) {
	s := newTestServer(t)
	s.loadScenario(t, "arrears")

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "arrears"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDriftScheduler_RunNow(t *testing.T) {
	// GIVEN: one consistent student and one with a broken advance trail
	s := newTestServer(t)
	s.loadScenario(t, "adjusted-payments")
	s.loadScenario(t, "advance-prepaid")
	rec := s.do(t, http.MethodPost, "/api/students/demo-advance/advance-applications",
		`{"month":"2024-02","amount":"5000","due_before":"5000","due_after":"0"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN
	report := NewDriftScheduler(s.handler.Store, zap.NewNop()).RunNow(context.Background())

	// THEN
	assert.Equal(t, 2, report.StudentsChecked)
	assert.Empty(t, report.StudentsFailed)
	assert.NotContains(t, report.Discrepancies, "demo-adjusted")
	assert.NotEmpty(t, report.Discrepancies["demo-advance"])
}
