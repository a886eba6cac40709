package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
)

// =============================================================================
// DUE CLASSIFIER
// =============================================================================

func TestClassify_TwoTrailingUnpaidMonths(t *testing.T) {
	// GIVEN: January paid, February and March unpaid
	entries := []billing.Entry{
		itemized("2024-01", "5000", "5000", cash(day(2024, 1, 3), "5000", "cash")),
		itemized("2024-02", "5000", "0"),
		itemized("2024-03", "5000", "0"),
	}

	// WHEN
	due, err := billing.Classify(entries)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 2, due.ConsecutiveDueMonths)
	assert.Equal(t, billing.DueTwoPlus, due.DueStatus)
	assert.True(t, money("10000").Equal(due.TotalDue))
}

func TestClassify_StreakStopsAtSettledMonth(t *testing.T) {
	// GIVEN: an old unpaid month behind a paid one, then one partial month
	entries := []billing.Entry{
		entry("2024-01", "5000", "0"),
		entry("2024-02", "5000", "5000"),
		entry("2024-03", "5000", "4000"),
	}

	due, err := billing.Classify(entries)

	require.NoError(t, err)
	assert.Equal(t, 1, due.ConsecutiveDueMonths)
	assert.Equal(t, billing.DueOneMonth, due.DueStatus)
	assert.True(t, money("6000").Equal(due.TotalDue), "older due still counts toward the total")
}

func TestClassify_OrderIndependent(t *testing.T) {
	sorted := []billing.Entry{entry("2024-01", "5000", "5000"), entry("2024-02", "5000", "0"), entry("2024-03", "5000", "0")}
	shuffled := []billing.Entry{sorted[2], sorted[0], sorted[1]}

	a, err := billing.Classify(sorted)
	require.NoError(t, err)
	b, err := billing.Classify(shuffled)
	require.NoError(t, err)

	assert.Equal(t, a.ConsecutiveDueMonths, b.ConsecutiveDueMonths)
	assert.True(t, a.TotalDue.Equal(b.TotalDue))
}

func TestClassify_EmptyLedger(t *testing.T) {
	due, err := billing.Classify(nil)

	require.NoError(t, err)
	assert.Equal(t, 0, due.ConsecutiveDueMonths)
	assert.Equal(t, billing.DueNone, due.DueStatus)
	assert.True(t, due.TotalDue.IsZero())
}

func TestClassify_PaymentNeverIncreasesStreak(t *testing.T) {
	// GIVEN: three unpaid months
	ledger := []billing.Entry{
		entry("2024-01", "5000", "0"),
		entry("2024-02", "5000", "0"),
		entry("2024-03", "5000", "0"),
	}
	before, err := billing.Classify(ledger)
	require.NoError(t, err)

	// WHEN: paying into any single month
	for i := range ledger {
		paid := append([]billing.Entry(nil), ledger...)
		paid[i].PaidAmount = money("2500")

		after, err := billing.Classify(paid)
		require.NoError(t, err)

		// THEN
		assert.LessOrEqual(t, after.ConsecutiveDueMonths, before.ConsecutiveDueMonths)
		assert.True(t, after.TotalDue.LessThan(before.TotalDue))
	}
}

func TestClassify_RejectsNegativeAmount(t *testing.T) {
	_, err := billing.Classify([]billing.Entry{entry("2024-01", "5000", "-1")})
	assert.ErrorIs(t, err, generic.ErrBillingDataInvalid)
}

func TestStatusForStreak(t *testing.T) {
	assert.Equal(t, billing.DueNone, billing.StatusForStreak(0))
	assert.Equal(t, billing.DueOneMonth, billing.StatusForStreak(1))
	assert.Equal(t, billing.DueTwoPlus, billing.StatusForStreak(2))
	assert.Equal(t, billing.DueTwoPlus, billing.StatusForStreak(7))
}
