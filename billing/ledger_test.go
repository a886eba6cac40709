package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		rent, paid string
		want       billing.Status
	}{
		{"5000", "5000", billing.StatusPaid},
		{"5000", "6000", billing.StatusPaid},
		{"5000", "0", billing.StatusUnpaid},
		{"5000", "4999.99", billing.StatusPartial},
		{"0", "0", billing.StatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.rent+"/"+tt.paid, func(t *testing.T) {
			assert.Equal(t, tt.want, billing.DeriveStatus(money(tt.rent), money(tt.paid)))
		})
	}
}

func TestRecompute_OverpaymentHasNoNegativeDue(t *testing.T) {
	e := entry("2024-01", "5000", "6500").Recompute()

	assert.True(t, e.DueAmount.IsZero())
	assert.Equal(t, billing.StatusPaid, e.Status)
}

func TestRecompute_RegressionAfterReversal(t *testing.T) {
	// GIVEN: a partial month whose payment is reversed
	e := entry("2024-01", "5000", "2000").Recompute()
	require.Equal(t, billing.StatusPartial, e.Status)

	// WHEN
	e.PaidAmount = generic.Zero
	e = e.Recompute()

	// THEN: due and status are rebuilt from scratch
	assert.Equal(t, billing.StatusUnpaid, e.Status)
	assert.True(t, money("5000").Equal(e.DueAmount))
}

func TestRecompute_RecordsState(t *testing.T) {
	legacy := entry("2024-01", "5000", "5000").Recompute()
	assert.Equal(t, billing.RecordsUnknown, legacy.RecordsState)

	empty := itemized("2024-01", "5000", "0")
	assert.Equal(t, billing.RecordsEmpty, empty.RecordsState)

	populated := itemized("2024-01", "5000", "5000", cash(day(2024, 1, 2), "5000", "cash"))
	assert.Equal(t, billing.RecordsPopulated, populated.RecordsState)

	// Dropping every record keeps the entry itemized.
	populated.Records = nil
	assert.Equal(t, billing.RecordsEmpty, populated.Recompute().RecordsState)
}

func TestNormalize_SortsAndCanonicalizes(t *testing.T) {
	ledger, drift, err := billing.Normalize([]billing.Entry{
		entry("2024-3", "5000", "0"),
		entry("2024-01-15", "5000", "5000"),
		entry("2024-02", "5000", "1000"),
	})

	require.NoError(t, err)
	assert.Empty(t, drift)
	assert.Equal(t, []generic.Month{"2024-01", "2024-02", "2024-03"}, ledger.Months())
	assert.Equal(t, billing.StatusPartial, ledger[1].Status)
}

func TestNormalize_DuplicateMonthLastWriteWins(t *testing.T) {
	ledger, drift, err := billing.Normalize([]billing.Entry{
		entry("2024-01", "5000", "1000"),
		entry("2024-1", "5000", "5000"),
	})

	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.True(t, money("5000").Equal(ledger[0].PaidAmount))
	assert.Equal(t, 1, checks(drift)[billing.CheckDuplicateMonth])
}

func TestNormalize_ReportsStoredDrift(t *testing.T) {
	// GIVEN: stored due and status that disagree with rent - paid
	raw := entry("2024-01", "5000", "2000")
	raw.DueAmount = money("2500")
	raw.Status = billing.StatusUnpaid

	// WHEN
	ledger, drift, err := billing.Normalize([]billing.Entry{raw})

	// THEN: derived values win and both disagreements are reported
	require.NoError(t, err)
	assert.True(t, money("3000").Equal(ledger[0].DueAmount))
	assert.Equal(t, billing.StatusPartial, ledger[0].Status)
	c := checks(drift)
	assert.Equal(t, 1, c[billing.CheckDueAmount])
	assert.Equal(t, 1, c[billing.CheckStatus])
}

func TestNormalize_AdvanceAppliedAbovePaid(t *testing.T) {
	e := entry("2024-01", "5000", "1000")
	e.AdvanceApplied = money("2000")

	_, drift, err := billing.Normalize([]billing.Entry{e})

	require.NoError(t, err)
	assert.Equal(t, 1, checks(drift)[billing.CheckAdvanceExceedsPaid])
}

func TestNormalize_RejectsNegativeAmounts(t *testing.T) {
	tests := []struct {
		name  string
		entry billing.Entry
	}{
		{"rent", entry("2024-01", "-1", "0")},
		{"paid", entry("2024-01", "5000", "-0.01")},
		{"advance applied", func() billing.Entry {
			e := entry("2024-01", "5000", "0")
			e.AdvanceApplied = money("-5")
			return e
		}()},
		{"record", itemized("2024-01", "5000", "0", cash(day(2024, 1, 1), "-100", "cash"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := billing.Normalize([]billing.Entry{tt.entry})

			require.ErrorIs(t, err, generic.ErrBillingDataInvalid)
			var amountErr *generic.InvalidAmountError
			assert.ErrorAs(t, err, &amountErr)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	first, _, err := billing.Normalize([]billing.Entry{
		entry("2024-02", "5000", "0"),
		entry("2024-1", "5000", "5000"),
	})
	require.NoError(t, err)

	second, drift, err := billing.Normalize(first)

	require.NoError(t, err)
	assert.Empty(t, drift)
	assert.Equal(t, first, second)
}

func TestNormalize_DoesNotModifyInput(t *testing.T) {
	input := []billing.Entry{entry("2024-2", "5000", "0"), entry("2024-01", "5000", "5000")}

	_, _, err := billing.Normalize(input)

	require.NoError(t, err)
	assert.Equal(t, generic.Month("2024-2"), input[0].Month)
	assert.Equal(t, billing.Status(""), input[0].Status)
}
