package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-billing/generic"
)

// =============================================================================
// MONTH KEYS
// =============================================================================

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in   string
		want generic.Month
	}{
		{"2024-01", "2024-01"},
		{"2024-1", "2024-01"},
		{" 2024-12 ", "2024-12"},
		{"2024-01-15", "2024-01"},
		{"2024-02-29T10:00:00Z", "2024-02"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := generic.ParseMonth(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMonth_Invalid(t *testing.T) {
	for _, in := range []string{"", "2024", "2024-13", "2024-00", "24-01", "january", "2024-1-1-1"} {
		t.Run(in, func(t *testing.T) {
			_, err := generic.ParseMonth(in)
			assert.ErrorIs(t, err, generic.ErrInvalidMonth)
		})
	}
}

func TestMonth_CanonicalKeepsUnparseable(t *testing.T) {
	assert.Equal(t, generic.Month("2024-03"), generic.Month("2024-3").Canonical())
	assert.Equal(t, generic.Month("legacy"), generic.Month("legacy").Canonical())
	assert.False(t, generic.Month("2024-3").Valid())
	assert.True(t, generic.Month("2024-03").Valid())
}

func TestMonth_Arithmetic(t *testing.T) {
	m := generic.Month("2024-11")

	assert.Equal(t, generic.Month("2024-12"), m.Next())
	assert.Equal(t, generic.Month("2025-02"), m.AddMonths(3))
	assert.Equal(t, generic.Month("2023-11"), m.AddMonths(-12))
	assert.Equal(t, generic.Month("bogus"), generic.Month("bogus").AddMonths(1))
	assert.True(t, generic.Month("2024-02").Before("2024-10"))
	assert.True(t, generic.Month("2025-01").After("2024-12"))
}

func TestMonth_Bounds(t *testing.T) {
	m := generic.Month("2024-02")

	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), m.Start())
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), m.End())
	assert.True(t, m.Contains(time.Date(2024, time.February, 29, 23, 0, 0, 0, time.UTC)))
	assert.False(t, m.Contains(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

// =============================================================================
// PERIODS
// =============================================================================

func TestPeriod_Contains(t *testing.T) {
	p := generic.Period{
		From: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, p.Contains(time.Date(2024, time.February, 29, 18, 30, 0, 0, time.UTC)), "To is inclusive for the whole day")
	assert.True(t, p.Contains(p.From))
	assert.False(t, p.Contains(time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPeriod_OpenBounds(t *testing.T) {
	var open generic.Period
	assert.True(t, open.Contains(time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.NoError(t, open.Validate())

	from := generic.Period{From: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)}
	assert.False(t, from.ContainsMonth("2024-02"))
	assert.True(t, from.ContainsMonth("2024-03"))
	assert.True(t, from.ContainsMonth("2030-01"))
}

func TestPeriod_ContainsMonthOverlap(t *testing.T) {
	p := generic.Period{
		From: time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, p.ContainsMonth("2024-01"))
	assert.True(t, p.ContainsMonth("2024-02"))
	assert.False(t, p.ContainsMonth("2024-03"))
	assert.False(t, p.ContainsMonth("garbage"))
}

func TestPeriod_Validate(t *testing.T) {
	p := generic.Period{
		From: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.ErrorIs(t, p.Validate(), generic.ErrInvalidPeriod)

	same := generic.Period{From: p.From, To: p.From.Add(3 * time.Hour)}
	assert.NoError(t, same.Validate())
}
