/*
store.go - Persistence interface for billing snapshots

PURPOSE:
  The engine computes over snapshots; the Store is where they come from.
  Writes model the payment-posting side: a month is created lazily and
  mutated as payments post, extras and advance audit rows are appended.
  Ledger months are never deleted.

COMMIT SERIALIZATION:
  Two concurrent "pay this month" requests for the same student could each
  compute advance coverage from the same stale balance. Implementations
  must serialize writes per student; StudentLocks provides that.

IMPLEMENTATIONS:
  - store/memory: in-memory, for tests and dev
  - store/sqlite: SQLite
*/
package billing

import (
	"context"
	"sync"

	"github.com/warp/rent-billing/generic"
)

// Snapshot is everything known about one student at one point in time.
type Snapshot struct {
	Profile Profile
	Entries []Entry
	Extras  []ExtraTransaction
	Audit   AdvanceAudit
}

// Store persists billing data. Read methods return ErrStudentNotFound for
// unknown students.
type Store interface {
	SaveProfile(ctx context.Context, p Profile) error
	GetProfile(ctx context.Context, id generic.StudentID) (Profile, error)
	ListProfiles(ctx context.Context) ([]Profile, error)

	// PutEntry creates or replaces the entry for e.Month.
	PutEntry(ctx context.Context, id generic.StudentID, e Entry) error
	AppendExtra(ctx context.Context, id generic.StudentID, x ExtraTransaction) error
	AppendAdvanceSource(ctx context.Context, id generic.StudentID, src AdvanceSource) error
	AppendAdvanceApplication(ctx context.Context, id generic.StudentID, app AdvanceApplication) error

	Snapshot(ctx context.Context, id generic.StudentID) (Snapshot, error)
}

// =============================================================================
// STUDENT LOCKS - at most one commit per student at a time
// =============================================================================

type StudentLocks struct {
	mu    sync.Mutex
	locks map[generic.StudentID]*sync.Mutex
}

func (s *StudentLocks) get(id generic.StudentID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = make(map[generic.StudentID]*sync.Mutex)
	}
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// With runs fn while holding the student's lock.
func (s *StudentLocks) With(id generic.StudentID, fn func() error) error {
	l := s.get(id)
	l.Lock()
	defer l.Unlock()
	return fn()
}
