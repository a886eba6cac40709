/*
reconcile.go - Cash received vs internal adjustments

PURPOSE:
  Summing PaidAmount double counts money. Advance applied to rent and a
  security deposit offset against dues both show up as "paid", but that
  money was already counted as cash when it first entered the system.
  The reconciler separates what was physically received from what was
  moved between internal buckets.

TOTALS:
  TotalRentInvoiced     = sum(entry.RentAmount)
  TotalRentPaid         = sum(entry.PaidAmount)          accounting paid
  TotalOtherPaid        = sum(extra.PaidAmount), type != refund
  TotalRefunded         = sum(extra.PaidAmount), type == refund
  TotalCashReceived     = every record and non-refund extra whose type or
                          method is not "adjustment" (case-insensitive)
  TotalAdjustmentVolume = the excluded adjustment items
  TotalOutstandingDue   = sum(entry.DueAmount)

  Refunds are outflows of money received earlier. They are reported on
  their own and never netted into TotalCashReceived.

ITEMIZATION:
  RecordsUnknown:   legacy entry, the whole PaidAmount counts as cash and
                    the result is flagged PrecisionDegraded.
  RecordsEmpty:     no events. A positive PaidAmount is reported as drift
                    and, like legacy data, counted as cash.
  RecordsPopulated: records drive the split. If they sum below PaidAmount
                    the gap counts as cash and is flagged; if they sum
                    above it the excess is reported as drift.

INVARIANT (consistent itemization):
  TotalCashReceived + TotalAdjustmentVolume == TotalRentPaid + TotalOtherPaid
*/
package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/generic"
)

const (
	CheckUnitemizedPaid    = "paid_without_records"
	CheckRecordsBelowPaid  = "records_below_paid"
	CheckRecordsExceedPaid = "records_exceed_paid"
)

// MethodUnspecified is the CashByMethod key for records without a method.
const MethodUnspecified = "unspecified"

// Reconciliation is the cash-vs-adjustment breakdown for a ledger.
type Reconciliation struct {
	TotalRentInvoiced     decimal.Decimal
	TotalRentPaid         decimal.Decimal
	TotalOtherPaid        decimal.Decimal
	TotalRefunded         decimal.Decimal
	TotalCashReceived     decimal.Decimal
	TotalAdjustmentVolume decimal.Decimal
	TotalOutstandingDue   decimal.Decimal

	// UnitemizedCash is the part of TotalCashReceived that could not be
	// backed by itemized records.
	UnitemizedCash decimal.Decimal

	CashByMethod      map[string]decimal.Decimal
	PrecisionDegraded bool
	DegradedMonths    []generic.Month
	Drift             []Discrepancy
}

// NetCashReceived is cash received minus refunds paid out.
func (r Reconciliation) NetCashReceived() decimal.Decimal {
	return r.TotalCashReceived.Sub(r.TotalRefunded)
}

// Reconcile normalizes entries and reconciles them with the extras.
func Reconcile(entries []Entry, extras []ExtraTransaction) (Reconciliation, error) {
	ledger, _, err := Normalize(entries)
	if err != nil {
		return Reconciliation{}, err
	}
	return ledger.Reconcile(extras)
}

// Reconcile computes totals over a normalized ledger.
func (l Ledger) Reconcile(extras []ExtraTransaction) (Reconciliation, error) {
	if err := ValidateExtras(extras); err != nil {
		return Reconciliation{}, err
	}
	t := newTally(generic.Period{})
	for _, e := range l {
		t.addEntry(e)
	}
	for _, x := range extras {
		t.addExtra(x)
	}
	return t.result(), nil
}

// ValidateExtras rejects negative extra amounts.
func ValidateExtras(extras []ExtraTransaction) error {
	for _, x := range extras {
		if err := generic.CheckNonNegative("extras."+string(x.Type), "", x.PaidAmount); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// TALLY - shared accumulator for single-student and population totals
// =============================================================================

type tally struct {
	period  generic.Period
	r       Reconciliation
	touched map[generic.Month]bool
}

func newTally(period generic.Period) *tally {
	return &tally{
		period: period,
		r: Reconciliation{
			TotalRentInvoiced:     decimal.Zero,
			TotalRentPaid:         decimal.Zero,
			TotalOtherPaid:        decimal.Zero,
			TotalRefunded:         decimal.Zero,
			TotalCashReceived:     decimal.Zero,
			TotalAdjustmentVolume: decimal.Zero,
			TotalOutstandingDue:   decimal.Zero,
			UnitemizedCash:        decimal.Zero,
			CashByMethod:          map[string]decimal.Decimal{},
		},
		touched: map[generic.Month]bool{},
	}
}

func (t *tally) bounded() bool {
	return !t.period.From.IsZero() || !t.period.To.IsZero()
}

// inPeriod decides whether a dated item counts. Undated items fall back
// to their month.
func (t *tally) inPeriod(at time.Time, month generic.Month) bool {
	if !t.bounded() {
		return true
	}
	if !at.IsZero() {
		return t.period.Contains(at)
	}
	if month == "" {
		return true
	}
	return t.period.ContainsMonth(month)
}

func (t *tally) addEntry(e Entry) {
	if t.inPeriod(time.Time{}, e.Month) {
		t.r.TotalRentInvoiced = t.r.TotalRentInvoiced.Add(e.RentAmount)
		t.r.TotalRentPaid = t.r.TotalRentPaid.Add(e.PaidAmount)
		t.r.TotalOutstandingDue = t.r.TotalOutstandingDue.Add(e.DueAmount)
	}

	switch e.RecordsState {
	case RecordsPopulated:
		t.addRecords(e)
	case RecordsEmpty:
		if e.PaidAmount.IsPositive() {
			t.drift(CheckUnitemizedPaid, e.Month, e.PaidAmount, decimal.Zero)
			t.unitemized(e, e.PaidAmount)
		}
	default:
		if e.PaidAmount.IsPositive() {
			t.unitemized(e, e.PaidAmount)
		}
	}
}

func (t *tally) addRecords(e Entry) {
	itemized := decimal.Zero
	for _, rec := range e.Records {
		itemized = itemized.Add(rec.Amount)
		if !t.inPeriod(rec.Date, e.Month) {
			continue
		}
		if rec.IsAdjustment() {
			t.r.TotalAdjustmentVolume = t.r.TotalAdjustmentVolume.Add(rec.Amount)
			continue
		}
		t.cash(rec.Method, rec.Amount)
	}

	switch itemized.Cmp(e.PaidAmount) {
	case -1:
		t.drift(CheckRecordsBelowPaid, e.Month, itemized, e.PaidAmount)
		t.unitemized(e, e.PaidAmount.Sub(itemized))
	case 1:
		t.drift(CheckRecordsExceedPaid, e.Month, itemized, e.PaidAmount)
	}
}

// unitemized counts money that cannot be excluded as an adjustment.
func (t *tally) unitemized(e Entry, amount decimal.Decimal) {
	if !t.inPeriod(time.Time{}, e.Month) {
		return
	}
	t.cash("", amount)
	t.r.UnitemizedCash = t.r.UnitemizedCash.Add(amount)
	t.r.PrecisionDegraded = true
	if !t.touched[e.Month] {
		t.touched[e.Month] = true
		t.r.DegradedMonths = append(t.r.DegradedMonths, e.Month)
	}
}

func (t *tally) addExtra(x ExtraTransaction) {
	if !t.inPeriod(x.Date, "") {
		return
	}
	if x.IsRefund() {
		t.r.TotalRefunded = t.r.TotalRefunded.Add(x.PaidAmount)
		return
	}
	t.r.TotalOtherPaid = t.r.TotalOtherPaid.Add(x.PaidAmount)
	if x.IsAdjustment() {
		t.r.TotalAdjustmentVolume = t.r.TotalAdjustmentVolume.Add(x.PaidAmount)
		return
	}
	t.cash(x.PaymentMethod, x.PaidAmount)
}

func (t *tally) cash(method string, amount decimal.Decimal) {
	t.r.TotalCashReceived = t.r.TotalCashReceived.Add(amount)
	key := strings.ToLower(strings.TrimSpace(method))
	if key == "" {
		key = MethodUnspecified
	}
	t.r.CashByMethod[key] = t.r.CashByMethod[key].Add(amount)
}

func (t *tally) drift(check string, month generic.Month, stored, derived decimal.Decimal) {
	t.r.Drift = append(t.r.Drift, Discrepancy{Check: check, Month: month, Stored: stored.String(), Derived: derived.String()})
}

func (t *tally) result() Reconciliation {
	return t.r
}
