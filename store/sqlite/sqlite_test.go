package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
	"github.com/warp/rent-billing/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) billing.Store { return newTestStore(t) })
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billing.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveProfile(ctx, billing.Profile{StudentID: "s1", MonthlyRent: generic.MustMoney("5000")}))
	require.NoError(t, s.PutEntry(ctx, "s1", billing.Entry{Month: "2024-01", RentAmount: generic.MustMoney("5000")}))
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	snap, err := reopened.Snapshot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, billing.StatusUnpaid, snap.Entries[0].Status)
}

func TestCorruptAmountIsAnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProfile(ctx, billing.Profile{StudentID: "s1"}))

	_, err := s.DB().Exec("UPDATE students SET monthly_rent = 'five thousand' WHERE id = 's1'")
	require.NoError(t, err)

	_, err = s.GetProfile(ctx, "s1")
	assert.ErrorContains(t, err, "corrupt monthly_rent")
}

func TestCorruptTimestampIsAnError(t *testing.T) {
	tests := []struct {
		column string
		update string
	}{
		{"joining_date", "UPDATE students SET joining_date = 'someday'"},
		{"extra_transactions.tx_date", "UPDATE extra_transactions SET tx_date = '15/01/2024'"},
		{"advance_sources.created_at", "UPDATE advance_sources SET created_at = 'yesterday'"},
		{"advance_applications.applied_at", "UPDATE advance_applications SET applied_at = 'noon'"},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			// GIVEN: one dated row of every kind
			s := newTestStore(t)
			ctx := context.Background()
			jan := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
			require.NoError(t, s.SaveProfile(ctx, billing.Profile{StudentID: "s1", JoiningDate: jan}))
			require.NoError(t, s.AppendExtra(ctx, "s1", billing.ExtraTransaction{
				Type: billing.ExtraUnionFee, PaidAmount: generic.MustMoney("100"), Date: jan,
			}))
			require.NoError(t, s.AppendAdvanceSource(ctx, "s1", billing.AdvanceSource{
				Kind: billing.SourcePrepayment, Amount: generic.MustMoney("100"), CreatedAt: jan,
			}))
			require.NoError(t, s.AppendAdvanceApplication(ctx, "s1", billing.AdvanceApplication{
				Month: "2024-01", Amount: generic.MustMoney("100"), DueBefore: generic.MustMoney("100"), AppliedAt: jan,
			}))

			_, err := s.DB().Exec(tt.update)
			require.NoError(t, err)

			// WHEN
			_, err = s.Snapshot(ctx, "s1")

			// THEN: the timestamp is reported, never read as undated
			assert.ErrorContains(t, err, "corrupt "+tt.column)
		})
	}
}

func TestSnapshotIsPointInTime(t *testing.T) {
	// GIVEN: a writer that adds a month and then its matching extra
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProfile(ctx, billing.Profile{StudentID: "s1"}))

	const months = 24
	done := make(chan struct{})
	go func() {
		defer close(done)
		start := generic.Month("2024-01")
		for i := 0; i < months; i++ {
			m := start.AddMonths(i)
			assert.NoError(t, s.PutEntry(ctx, "s1", billing.Entry{Month: m, RentAmount: generic.MustMoney("5000")}))
			assert.NoError(t, s.AppendExtra(ctx, "s1", billing.ExtraTransaction{
				Type: billing.ExtraUnionFee, PaidAmount: generic.MustMoney("10"), Notes: fmt.Sprint(m),
			}))
		}
	}()

	// WHEN / THEN: every snapshot sees at most one unmatched month
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		snap, err := s.Snapshot(ctx, "s1")
		require.NoError(t, err)
		entries, extras := len(snap.Entries), len(snap.Extras)
		assert.True(t, extras == entries || extras == entries-1, "entries=%d extras=%d", entries, extras)
	}
}

func TestConcurrentPutsSameStudent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProfile(ctx, billing.Profile{StudentID: "s1"}))

	var wg sync.WaitGroup
	for _, m := range []generic.Month{"2024-01", "2024-02", "2024-03", "2024-04"} {
		wg.Add(1)
		go func(m generic.Month) {
			defer wg.Done()
			assert.NoError(t, s.PutEntry(ctx, "s1", billing.Entry{
				Month:      m,
				RentAmount: generic.MustMoney("5000"),
				Records:    []billing.PaymentRecord{{Amount: generic.MustMoney("100"), Method: "cash"}},
			}))
		}(m)
	}
	wg.Wait()

	snap, err := s.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 4)
	for _, e := range snap.Entries {
		assert.Len(t, e.Records, 1)
	}
}
