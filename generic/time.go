package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// MONTH - Calendar month key (YYYY-MM)
// =============================================================================

// Month is a calendar month key in canonical "YYYY-MM" form. Canonical keys
// sort lexicographically in chronological order.
type Month string

const monthLayout = "2006-01"

// NewMonth builds a canonical key.
func NewMonth(year int, month time.Month) Month {
	return Month(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// MonthOf returns the month containing t (in t's location).
func MonthOf(t time.Time) Month {
	return NewMonth(t.Year(), t.Month())
}

// ParseMonth accepts "YYYY-MM", "YYYY-M" and "YYYY-MM-DD" and returns the
// canonical key.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return MonthOf(t), nil
		}
	}
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return NewMonth(year, time.Month(m)), nil
}

// Canonical returns the canonical form of m, or m unchanged when it cannot be parsed.
func (m Month) Canonical() Month {
	c, err := ParseMonth(string(m))
	if err != nil {
		return m
	}
	return c
}

// Valid reports whether m is a canonical, parseable key.
func (m Month) Valid() bool {
	c, err := ParseMonth(string(m))
	return err == nil && c == m
}

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

// End returns the last day of the month at 00:00 UTC.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, -1)
}

// AddMonths shifts the key by n months. Invalid keys are returned unchanged.
func (m Month) AddMonths(n int) Month {
	start := m.Start()
	if start.IsZero() {
		return m
	}
	return MonthOf(start.AddDate(0, n, 0))
}

func (m Month) Next() Month { return m.AddMonths(1) }
func (m Month) Before(other Month) bool { return m < other }
func (m Month) After(other Month) bool { return m > other }
func (m Month) String() string { return string(m) }

// Contains reports whether t falls inside the month.
func (m Month) Contains(t time.Time) bool {
	return MonthOf(t.UTC()) == m
}

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [From, To] date range compared at day granularity.
// A zero bound is open.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) Validate() error {
	if !p.From.IsZero() && !p.To.IsZero() && truncateDay(p.To).Before(truncateDay(p.From)) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	d := truncateDay(t)
	if !p.From.IsZero() && d.Before(truncateDay(p.From)) {
		return false
	}
	if !p.To.IsZero() && d.After(truncateDay(p.To)) {
		return false
	}
	return true
}

// ContainsMonth reports whether any day of m falls inside the period.
func (p Period) ContainsMonth(m Month) bool {
	start := m.Start()
	if start.IsZero() {
		return false
	}
	if !p.To.IsZero() && start.After(truncateDay(p.To)) {
		return false
	}
	if !p.From.IsZero() && m.End().Before(truncateDay(p.From)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
