/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Populates the store with small, realistic students that exercise one
	billing behavior each. Useful for demos of the statement endpoints and
	as fixtures in handler tests.

AVAILABLE SCENARIOS:
	arrears:            two trailing unpaid months behind a paid one
	advance-prepaid:    advance large enough to cover the next month and part of another
	adjusted-payments:  a month paid partly by an internal adjustment
	checkout-with-dues: outstanding due offset by deposit at checkout
	legacy-records:     months with no itemized payments (precision degraded)

HOW SCENARIOS WORK:
 1. Refuse if the scenario's student already exists
 2. Save the student profile
 3. Put each ledger month
 4. Append extras and advance audit rows

USAGE VIA API:
	GET  /api/scenarios
	POST /api/scenarios/load
	{"scenario_id": "arrears"}
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
)

// ErrScenarioLoaded is returned when a scenario's student already exists.
var ErrScenarioLoaded = errors.New("scenario already loaded")

// Scenario is a named set of seed data.
type Scenario struct {
	ID          string
	Name        string
	Description string

	Profile billing.Profile
	Entries []billing.Entry
	Extras  []billing.ExtraTransaction
	Audit   billing.AdvanceAudit
}

// ScenarioDTO describes a scenario in API responses.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StudentID   string `json:"student_id"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func paid(rent, amount string, records ...billing.PaymentRecord) billing.Entry {
	e := billing.Entry{
		RentAmount: generic.MustMoney(rent),
		PaidAmount: generic.MustMoney(amount),
		Records:    records,
	}
	if records != nil {
		e.RecordsState = billing.RecordsPopulated
	}
	return e
}

func record(day time.Time, amount, method string) billing.PaymentRecord {
	return billing.PaymentRecord{Date: day, Amount: generic.MustMoney(amount), Method: method, Type: "payment"}
}

func inMonth(month generic.Month, e billing.Entry) billing.Entry {
	e.Month = month
	return e.Recompute()
}

// Scenarios returns all demo scenarios keyed by ID.
func Scenarios() map[string]Scenario {
	rent := generic.MustMoney("5000")
	joined := date(2024, time.January, 1)

	list := []Scenario{
		{
			ID:          "arrears",
			Name:        "Two months in arrears",
			Description: "January paid in cash, February and March unpaid.",
			Profile: billing.Profile{
				StudentID: "demo-arrears", Name: "Ravi Kumar", Room: "101",
				MonthlyRent: rent, JoiningDate: joined,
			},
			Entries: []billing.Entry{
				inMonth("2024-01", paid("5000", "5000", record(date(2024, 1, 3), "5000", "cash"))),
				inMonth("2024-02", paid("5000", "0", []billing.PaymentRecord{}...)),
				inMonth("2024-03", paid("5000", "0", []billing.PaymentRecord{}...)),
			},
		},
		{
			ID:          "advance-prepaid",
			Name:        "Prepaid advance",
			Description: "7000 paid ahead; the next month is fully covered and 2000 goes to the one after.",
			Profile: billing.Profile{
				StudentID: "demo-advance", Name: "Meera Iyer", Room: "102",
				MonthlyRent: rent, TotalAdvance: generic.MustMoney("7000"), JoiningDate: joined,
			},
			Entries: []billing.Entry{
				inMonth("2024-01", paid("5000", "5000", record(date(2024, 1, 2), "5000", "upi"))),
			},
			Audit: billing.AdvanceAudit{
				Sources: []billing.AdvanceSource{{
					ID: "demo-advance-src-1", Kind: billing.SourcePrepayment, Amount: generic.MustMoney("7000"),
					CreatedAt: date(2024, 1, 2), Description: "paid ahead at joining",
				}},
			},
		},
		{
			ID:          "adjusted-payments",
			Name:        "Adjustment inside a month",
			Description: "8000 rent settled by 5000 cash and a 3000 transfer from advance.",
			Profile: billing.Profile{
				StudentID: "demo-adjusted", Name: "Arjun Das", Room: "103",
				MonthlyRent: generic.MustMoney("8000"), JoiningDate: joined,
			},
			Entries: []billing.Entry{
				func() billing.Entry {
					e := inMonth("2024-01", paid("8000", "8000",
						record(date(2024, 1, 5), "5000", "cash"),
						billing.PaymentRecord{Date: date(2024, 1, 5), Amount: generic.MustMoney("3000"),
							Method: billing.MethodAdjustment, Type: billing.MethodAdjustment, Notes: "advance applied"},
					))
					e.AdvanceApplied = generic.MustMoney("3000")
					return e
				}(),
			},
			Audit: billing.AdvanceAudit{
				Sources: []billing.AdvanceSource{{
					ID: "demo-adjusted-src-1", Kind: billing.SourcePrepayment, Amount: generic.MustMoney("3000"),
					CreatedAt: date(2023, 12, 20),
				}},
				Applications: []billing.AdvanceApplication{{
					ID: "demo-adjusted-app-1", Month: "2024-01", Amount: generic.MustMoney("3000"),
					DueBefore: generic.MustMoney("3000"), DueAfter: generic.Zero, AppliedAt: date(2024, 1, 5),
				}},
			},
		},
		{
			ID:          "checkout-with-dues",
			Name:        "Checkout with outstanding due",
			Description: "Deposit 3000, advance 1000, 2000 due. Deposit covers the due.",
			Profile: billing.Profile{
				StudentID: "demo-checkout", Name: "Sana Khan", Room: "104",
				MonthlyRent: rent, TotalAdvance: generic.MustMoney("1000"),
				SecurityDeposit: generic.MustMoney("3000"), JoiningDate: joined,
			},
			Entries: []billing.Entry{
				inMonth("2024-01", paid("5000", "5000", record(date(2024, 1, 4), "5000", "bank"))),
				inMonth("2024-02", paid("5000", "3000", record(date(2024, 2, 6), "3000", "cash"))),
			},
			Extras: []billing.ExtraTransaction{{
				ID: "demo-checkout-fee", Type: billing.ExtraUnionFee, PaidAmount: generic.MustMoney("200"),
				PaymentMethod: "cash", Date: date(2024, 1, 4),
			}},
		},
		{
			ID:          "legacy-records",
			Name:        "Legacy months",
			Description: "Imported months with only aggregate paid amounts.",
			Profile: billing.Profile{
				StudentID: "demo-legacy", Name: "Kiran Rao", Room: "105",
				MonthlyRent: rent, JoiningDate: date(2023, time.November, 1),
			},
			Entries: []billing.Entry{
				inMonth("2023-11", paid("5000", "5000")),
				inMonth("2023-12", paid("5000", "2500")),
			},
		},
	}

	out := make(map[string]Scenario, len(list))
	for _, s := range list {
		out[s.ID] = s
	}
	return out
}

// LoadScenario writes a scenario into the store.
func LoadScenario(ctx context.Context, store billing.Store, s Scenario) error {
	_, err := store.GetProfile(ctx, s.Profile.StudentID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrScenarioLoaded, s.ID)
	case !generic.IsNotFound(err):
		return err
	}

	if err := store.SaveProfile(ctx, s.Profile); err != nil {
		return err
	}
	id := s.Profile.StudentID
	for _, e := range s.Entries {
		if err := store.PutEntry(ctx, id, e); err != nil {
			return fmt.Errorf("entry %s: %w", e.Month, err)
		}
	}
	for _, x := range s.Extras {
		if err := store.AppendExtra(ctx, id, x); err != nil {
			return err
		}
	}
	for _, src := range s.Audit.Sources {
		if err := store.AppendAdvanceSource(ctx, id, src); err != nil {
			return err
		}
	}
	for _, app := range s.Audit.Applications {
		if err := store.AppendAdvanceApplication(ctx, id, app); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios := Scenarios()
	dtos := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		dtos = append(dtos, ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description, StudentID: string(s.Profile.StudentID)})
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].ID < dtos[j].ID })
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenarioHandler loads a scenario into the store.
// POST /api/scenarios/load
func (h *Handler) LoadScenarioHandler(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s, ok := Scenarios()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusNotFound, "Scenario not found", nil)
		return
	}
	if err := LoadScenario(r.Context(), h.Store, s); err != nil {
		if errors.Is(err, ErrScenarioLoaded) {
			writeError(w, http.StatusConflict, "Scenario already loaded", err)
			return
		}
		h.fail(w, r, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusCreated, ScenarioDTO{
		ID: s.ID, Name: s.Name, Description: s.Description, StudentID: string(s.Profile.StudentID),
	})
}
