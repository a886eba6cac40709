// Package memory provides an in-memory billing.Store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	locks    billing.StudentLocks
	students map[generic.StudentID]*student
}

type student struct {
	profile billing.Profile
	entries map[generic.Month]billing.Entry
	extras  []billing.ExtraTransaction
	audit   billing.AdvanceAudit
}

func New() *Memory {
	return &Memory{students: make(map[generic.StudentID]*student)}
}

func (m *Memory) SaveProfile(_ context.Context, p billing.Profile) error {
	return m.locks.With(p.StudentID, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if s, ok := m.students[p.StudentID]; ok {
			s.profile = p
			return nil
		}
		m.students[p.StudentID] = &student{profile: p, entries: map[generic.Month]billing.Entry{}}
		return nil
	})
}

func (m *Memory) GetProfile(_ context.Context, id generic.StudentID) (billing.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return billing.Profile{}, generic.ErrStudentNotFound
	}
	return s.profile, nil
}

func (m *Memory) ListProfiles(_ context.Context) ([]billing.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Profile, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s.profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

// write runs fn on the student's record while holding the per-student lock
// and the map lock.
func (m *Memory) write(id generic.StudentID, fn func(s *student)) error {
	return m.locks.With(id, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		s, ok := m.students[id]
		if !ok {
			return generic.ErrStudentNotFound
		}
		fn(s)
		return nil
	})
}

func (m *Memory) PutEntry(_ context.Context, id generic.StudentID, e billing.Entry) error {
	e.Month = e.Month.Canonical()
	e = e.Recompute()
	e.Records = append([]billing.PaymentRecord(nil), e.Records...)
	for i := range e.Records {
		if e.Records[i].ID == "" {
			e.Records[i].ID = generic.RecordID(uuid.NewString())
		}
	}
	return m.write(id, func(s *student) { s.entries[e.Month] = e })
}

func (m *Memory) AppendExtra(_ context.Context, id generic.StudentID, x billing.ExtraTransaction) error {
	if x.ID == "" {
		x.ID = generic.RecordID(uuid.NewString())
	}
	return m.write(id, func(s *student) { s.extras = append(s.extras, x) })
}

func (m *Memory) AppendAdvanceSource(_ context.Context, id generic.StudentID, src billing.AdvanceSource) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	return m.write(id, func(s *student) { s.audit.Sources = append(s.audit.Sources, src) })
}

func (m *Memory) AppendAdvanceApplication(_ context.Context, id generic.StudentID, app billing.AdvanceApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	return m.write(id, func(s *student) { s.audit.Applications = append(s.audit.Applications, app) })
}

// Snapshot returns deep copies; callers may not mutate store state through it.
func (m *Memory) Snapshot(_ context.Context, id generic.StudentID) (billing.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return billing.Snapshot{}, generic.ErrStudentNotFound
	}

	snap := billing.Snapshot{
		Profile: s.profile,
		Entries: make([]billing.Entry, 0, len(s.entries)),
		Extras:  append([]billing.ExtraTransaction(nil), s.extras...),
		Audit: billing.AdvanceAudit{
			Sources:      append([]billing.AdvanceSource(nil), s.audit.Sources...),
			Applications: append([]billing.AdvanceApplication(nil), s.audit.Applications...),
		},
	}
	for _, e := range s.entries {
		e.Records = append([]billing.PaymentRecord(nil), e.Records...)
		snap.Entries = append(snap.Entries, e)
	}
	sort.Slice(snap.Entries, func(i, j int) bool { return snap.Entries[i].Month < snap.Entries[j].Month })
	return snap, nil
}
