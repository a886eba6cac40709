package billing_test

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(s string) decimal.Decimal {
	return generic.MustMoney(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// entry builds a month with no itemized records (legacy).
func entry(month, rent, paid string) billing.Entry {
	return billing.Entry{
		Month:      generic.Month(month),
		RentAmount: money(rent),
		PaidAmount: money(paid),
	}
}

// itemized builds a month whose records are known. No records means Empty.
func itemized(month, rent, paid string, records ...billing.PaymentRecord) billing.Entry {
	e := entry(month, rent, paid)
	e.RecordsState = billing.RecordsEmpty
	e.Records = records
	return e.Recompute()
}

func cash(at time.Time, amount, method string) billing.PaymentRecord {
	return billing.PaymentRecord{Date: at, Amount: money(amount), Method: method, Type: "payment"}
}

func adjustment(at time.Time, amount string) billing.PaymentRecord {
	return billing.PaymentRecord{Date: at, Amount: money(amount), Method: billing.MethodAdjustment, Type: billing.MethodAdjustment}
}

func fixedBuilder() *billing.Builder {
	b := billing.NewBuilder()
	b.NewID = func() string { return "doc-1" }
	return b
}

func checks(ds []billing.Discrepancy) map[string]int {
	out := map[string]int{}
	for _, d := range ds {
		out[d.Check]++
	}
	return out
}
