// Package storetest holds the behavior every billing.Store must share.
// Each implementation runs the suite from its own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
)

// Run executes the suite. newStore must return an empty store each call.
func Run(t *testing.T, newStore func(t *testing.T) billing.Store) {
	t.Run("profile round trip", func(t *testing.T) { profileRoundTrip(t, newStore(t)) })
	t.Run("unknown student", func(t *testing.T) { unknownStudent(t, newStore(t)) })
	t.Run("entry is recomputed and canonicalized", func(t *testing.T) { entryRecomputed(t, newStore(t)) })
	t.Run("records tri-state survives", func(t *testing.T) { recordsTriState(t, newStore(t)) })
	t.Run("put replaces month", func(t *testing.T) { putReplaces(t, newStore(t)) })
	t.Run("append-only rows", func(t *testing.T) { appendOnly(t, newStore(t)) })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, s billing.Store, id generic.StudentID) {
	t.Helper()
	require.NoError(t, s.SaveProfile(context.Background(), billing.Profile{
		StudentID:       id,
		Name:            "Ravi Kumar",
		Room:            "101",
		MonthlyRent:     generic.MustMoney("5000"),
		TotalAdvance:    generic.MustMoney("7000.50"),
		SecurityDeposit: generic.MustMoney("3000"),
		JoiningDate:     day(2024, time.January, 1),
	}))
}

func profileRoundTrip(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s, "b")
	seed(t, s, "a")

	p, err := s.GetProfile(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", p.Name)
	assert.True(t, generic.MustMoney("7000.5").Equal(p.TotalAdvance))
	assert.True(t, day(2024, time.January, 1).Equal(p.JoiningDate))

	// Saving again updates in place.
	p.Room = "202"
	require.NoError(t, s.SaveProfile(ctx, p))

	all, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, generic.StudentID("a"), all[0].StudentID)
	assert.Equal(t, "202", all[1].Room)
}

func unknownStudent(t *testing.T, s billing.Store) {
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "nobody")
	assert.ErrorIs(t, err, generic.ErrStudentNotFound)
	_, err = s.Snapshot(ctx, "nobody")
	assert.ErrorIs(t, err, generic.ErrStudentNotFound)
	err = s.PutEntry(ctx, "nobody", billing.Entry{Month: "2024-01"})
	assert.ErrorIs(t, err, generic.ErrStudentNotFound)
	err = s.AppendExtra(ctx, "nobody", billing.ExtraTransaction{Type: billing.ExtraRefund})
	assert.ErrorIs(t, err, generic.ErrStudentNotFound)
	err = s.AppendAdvanceSource(ctx, "nobody", billing.AdvanceSource{Kind: billing.SourcePrepayment})
	assert.ErrorIs(t, err, generic.ErrStudentNotFound)
	err = s.AppendAdvanceApplication(ctx, "nobody", billing.AdvanceApplication{Month: "2024-01"})
	assert.ErrorIs(t, err, generic.ErrStudentNotFound)
}

func entryRecomputed(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s, "s1")

	// GIVEN: an entry with a stale due and status under a short month key
	err := s.PutEntry(ctx, "s1", billing.Entry{
		Month:      "2024-2",
		RentAmount: generic.MustMoney("5000"),
		PaidAmount: generic.MustMoney("1500"),
		DueAmount:  generic.MustMoney("9999"),
		Status:     billing.StatusPaid,
	})
	require.NoError(t, err)

	// WHEN
	snap, err := s.Snapshot(ctx, "s1")
	require.NoError(t, err)

	// THEN
	require.Len(t, snap.Entries, 1)
	e := snap.Entries[0]
	assert.Equal(t, generic.Month("2024-02"), e.Month)
	assert.True(t, generic.MustMoney("3500").Equal(e.DueAmount))
	assert.Equal(t, billing.StatusPartial, e.Status)
}

func recordsTriState(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s, "s1")

	put := func(e billing.Entry) {
		t.Helper()
		require.NoError(t, s.PutEntry(ctx, "s1", e))
	}
	put(billing.Entry{Month: "2024-01", RentAmount: generic.MustMoney("5000"), PaidAmount: generic.MustMoney("5000")})
	put(billing.Entry{Month: "2024-02", RentAmount: generic.MustMoney("5000"), RecordsState: billing.RecordsEmpty})
	put(billing.Entry{
		Month: "2024-03", RentAmount: generic.MustMoney("5000"), PaidAmount: generic.MustMoney("5000"),
		Records: []billing.PaymentRecord{
			{Date: day(2024, time.March, 2), Amount: generic.MustMoney("3000"), Method: "cash", Type: "payment"},
			{Date: day(2024, time.March, 2), Amount: generic.MustMoney("2000"), Method: billing.MethodAdjustment, Type: billing.MethodAdjustment, Notes: "advance"},
		},
	})

	snap, err := s.Snapshot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snap.Entries, 3)

	assert.Equal(t, billing.RecordsUnknown, snap.Entries[0].RecordsState)
	assert.Equal(t, billing.RecordsEmpty, snap.Entries[1].RecordsState)
	assert.Empty(t, snap.Entries[1].Records)
	assert.Equal(t, billing.RecordsPopulated, snap.Entries[2].RecordsState)

	recs := snap.Entries[2].Records
	require.Len(t, recs, 2)
	assert.NotEmpty(t, recs[0].ID, "record IDs are assigned on write")
	assert.Equal(t, "cash", recs[0].Method)
	assert.True(t, recs[1].IsAdjustment())
	assert.Equal(t, "advance", recs[1].Notes)
	assert.True(t, day(2024, time.March, 2).Equal(recs[1].Date))
}

func putReplaces(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s, "s1")

	first := billing.Entry{
		Month: "2024-01", RentAmount: generic.MustMoney("5000"), PaidAmount: generic.MustMoney("5000"),
		Records: []billing.PaymentRecord{{Amount: generic.MustMoney("5000"), Method: "cash"}},
	}
	require.NoError(t, s.PutEntry(ctx, "s1", first))

	// A reversed payment regresses the month.
	require.NoError(t, s.PutEntry(ctx, "s1", billing.Entry{
		Month: "2024-01", RentAmount: generic.MustMoney("5000"), RecordsState: billing.RecordsEmpty,
	}))

	snap, err := s.Snapshot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, billing.StatusUnpaid, snap.Entries[0].Status)
	assert.Empty(t, snap.Entries[0].Records)
	assert.Equal(t, billing.RecordsEmpty, snap.Entries[0].RecordsState)
}

func appendOnly(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s, "s1")

	require.NoError(t, s.AppendExtra(ctx, "s1", billing.ExtraTransaction{
		Type: billing.ExtraUnionFee, PaidAmount: generic.MustMoney("200"), PaymentMethod: "cash", Date: day(2024, time.January, 4),
	}))
	require.NoError(t, s.AppendExtra(ctx, "s1", billing.ExtraTransaction{
		Type: billing.ExtraRefund, PaidAmount: generic.MustMoney("50"), Date: day(2024, time.February, 4),
	}))
	require.NoError(t, s.AppendAdvanceSource(ctx, "s1", billing.AdvanceSource{
		Kind: billing.SourceOverpayment, Amount: generic.MustMoney("700"), FromMonth: "2024-1", CreatedAt: day(2024, time.January, 31),
	}))
	require.NoError(t, s.AppendAdvanceApplication(ctx, "s1", billing.AdvanceApplication{
		Month: "2024-02", Amount: generic.MustMoney("700"), DueBefore: generic.MustMoney("5000"),
		DueAfter: generic.MustMoney("4300"), AppliedAt: day(2024, time.February, 1),
	}))

	snap, err := s.Snapshot(ctx, "s1")
	require.NoError(t, err)

	require.Len(t, snap.Extras, 2)
	assert.Equal(t, billing.ExtraUnionFee, snap.Extras[0].Type)
	assert.NotEmpty(t, snap.Extras[0].ID)
	assert.True(t, snap.Extras[1].IsRefund())

	require.Len(t, snap.Audit.Sources, 1)
	assert.Equal(t, billing.SourceOverpayment, snap.Audit.Sources[0].Kind)
	require.Len(t, snap.Audit.Applications, 1)
	assert.True(t, generic.MustMoney("4300").Equal(snap.Audit.Applications[0].DueAfter))
	assert.Equal(t, generic.Month("2024-02"), snap.Audit.Applications[0].Month)
}
