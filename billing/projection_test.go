package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
)

// =============================================================================
// ADVANCE PROJECTOR
// =============================================================================

func TestProject_GreedyChronological(t *testing.T) {
	// GIVEN: 7000 advance, 5000 rent, nothing billed after the as-of month
	in := billing.ProjectionInput{
		Entries:       []billing.Entry{entry("2024-01", "5000", "5000")},
		TotalAdvance:  money("7000"),
		MonthlyRent:   money("5000"),
		AsOf:          day(2024, time.January, 15),
		HorizonMonths: 12,
	}

	// WHEN
	p, err := billing.Project(in)

	// THEN: February fully covered, March gets the rest
	require.NoError(t, err)
	require.Len(t, p.Months, 2)
	assert.Equal(t, generic.Month("2024-02"), p.Months[0].Month)
	assert.True(t, money("5000").Equal(p.Months[0].Covered))
	assert.True(t, p.Months[0].FullyCovered())
	assert.Equal(t, generic.Month("2024-03"), p.Months[1].Month)
	assert.True(t, money("2000").Equal(p.Months[1].Covered))
	assert.False(t, p.Months[1].FullyCovered())
	assert.True(t, p.Remaining.IsZero())
	assert.True(t, p.Exhausted)
	assert.True(t, money("2000").Equal(p.AsMap()["2024-03"]))
}

func TestProject_BilledMonthsUseTheirDue(t *testing.T) {
	// GIVEN: February already billed and partly paid, March settled in advance
	in := billing.ProjectionInput{
		Entries: []billing.Entry{
			entry("2024-02", "5000", "3500"),
			entry("2024-03", "5000", "5000"),
		},
		TotalAdvance: money("4000"),
		MonthlyRent:  money("5000"),
		AsOf:         day(2024, time.January, 31),
	}

	p, err := billing.Project(in)

	require.NoError(t, err)
	require.Len(t, p.Months, 2)
	assert.True(t, p.Months[0].Billed)
	assert.True(t, money("1500").Equal(p.Months[0].Owed))
	assert.Equal(t, generic.Month("2024-04"), p.Months[1].Month, "settled March is skipped")
	assert.True(t, money("2500").Equal(p.Months[1].Covered))
}

func TestProject_HorizonBoundsTheForecast(t *testing.T) {
	in := billing.ProjectionInput{
		TotalAdvance:  money("100000"),
		MonthlyRent:   money("5000"),
		AsOf:          day(2024, time.June, 1),
		HorizonMonths: 3,
	}

	p, err := billing.Project(in)

	require.NoError(t, err)
	assert.Len(t, p.Months, 3)
	assert.Equal(t, generic.Month("2024-07"), p.From)
	assert.Equal(t, generic.Month("2024-09"), p.To)
	assert.False(t, p.Exhausted)
	assert.True(t, money("85000").Equal(p.Remaining))
}

func TestProject_HorizonIsCapped(t *testing.T) {
	// GIVEN: a tiny rent and an advance that would outlast any horizon
	in := billing.ProjectionInput{
		TotalAdvance:  money("100000000"),
		MonthlyRent:   money("1"),
		AsOf:          day(2024, time.January, 15),
		HorizonMonths: billing.MaxHorizonMonths + 1,
	}

	// WHEN / THEN: an explicit horizon above the cap is refused
	_, err := billing.Project(in)
	assert.ErrorIs(t, err, generic.ErrBillingDataInvalid)

	// AND: the ledger-level forecast clamps instead
	p := billing.MustNormalize(nil).Project(in.TotalAdvance, in.MonthlyRent, in.AsOf, 2000000, time.Time{})
	assert.Len(t, p.Months, billing.MaxHorizonMonths)
	assert.Equal(t, generic.Month("2034-01"), p.To)
}

func TestProject_SkipsMonthsBeforeJoining(t *testing.T) {
	in := billing.ProjectionInput{
		TotalAdvance: money("5000"),
		MonthlyRent:  money("5000"),
		AsOf:         day(2024, time.January, 10),
		JoiningDate:  day(2024, time.April, 1),
	}

	p, err := billing.Project(in)

	require.NoError(t, err)
	require.Len(t, p.Months, 1)
	assert.Equal(t, generic.Month("2024-04"), p.Months[0].Month)
}

func TestProject_ZeroAdvance(t *testing.T) {
	p, err := billing.Project(billing.ProjectionInput{
		MonthlyRent: money("5000"),
		AsOf:        day(2024, time.January, 10),
	})

	require.NoError(t, err)
	assert.Empty(t, p.Months)
	assert.False(t, p.Exhausted)
}

func TestProject_Conservation(t *testing.T) {
	// Coverage never exceeds the advance, and equals it once exhausted.
	for _, adv := range []string{"0", "1", "4999.50", "5000", "12345.67", "90000"} {
		t.Run(adv, func(t *testing.T) {
			p, err := billing.Project(billing.ProjectionInput{
				Entries:      []billing.Entry{entry("2024-03", "5000", "1000")},
				TotalAdvance: money(adv),
				MonthlyRent:  money("5000"),
				AsOf:         day(2024, time.January, 1),
			})
			require.NoError(t, err)

			assert.True(t, p.Total().LessThanOrEqual(p.StartingAdvance))
			assert.True(t, p.Total().Add(p.Remaining).Equal(p.StartingAdvance))
			if p.Exhausted {
				assert.True(t, p.Total().Equal(p.StartingAdvance))
			}
		})
	}
}

func TestProject_RequiresAsOf(t *testing.T) {
	_, err := billing.Project(billing.ProjectionInput{TotalAdvance: money("100"), MonthlyRent: money("5000")})
	assert.ErrorIs(t, err, generic.ErrBillingDataInvalid)
}

func TestProject_RejectsNegativeAdvance(t *testing.T) {
	_, err := billing.Project(billing.ProjectionInput{
		TotalAdvance: money("-100"),
		MonthlyRent:  money("5000"),
		AsOf:         day(2024, time.January, 1),
	})
	assert.ErrorIs(t, err, generic.ErrBillingDataInvalid)
}
