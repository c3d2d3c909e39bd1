// Package memory provides in-process implementations of the persistence ports.
// It backs unit tests and single-instance development runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"timetrack/internal/domain"
)

// Store implements ports.EntryStore, ports.RateStore, ports.SettingsStore and
// ports.TaskLookup. All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	entries  map[string]domain.TimeEntry
	rates    []domain.BillableRate
	settings map[string]domain.Settings
	tasks    map[string]domain.Task
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		entries:  make(map[string]domain.TimeEntry),
		settings: make(map[string]domain.Settings),
		tasks:    make(map[string]domain.Task),
	}
}

// PutTask registers a task for GetTask.
func (s *Store) PutTask(t domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

func (s *Store) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) CreateEntry(ctx context.Context, e domain.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; ok {
		return fmt.Errorf("%w: entry %s already exists", domain.ErrConflict, e.ID)
	}
	if e.Running() {
		if _, ok := s.runningLocked(e.UserID); ok {
			return fmt.Errorf("%w: active timer already running", domain.ErrConflict)
		}
	}
	s.entries[e.ID] = clone(e)
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	c := clone(e)
	return &c, nil
}

func (s *Store) GetRunningEntry(ctx context.Context, userID string) (*domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runningLocked(userID)
	if !ok {
		return nil, nil
	}
	c := clone(e)
	return &c, nil
}

func (s *Store) runningLocked(userID string) (domain.TimeEntry, bool) {
	for _, e := range s.entries {
		if e.UserID == userID && e.Running() {
			return e, true
		}
	}
	return domain.TimeEntry{}, false
}

func (s *Store) UpdateEntry(ctx context.Context, id string, mutate func(*domain.TimeEntry) error) (*domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: time entry %s", domain.ErrNotFound, id)
	}
	next := clone(cur)
	if err := mutate(&next); err != nil {
		return nil, err
	}
	if next.Running() && !cur.Running() {
		if _, ok := s.runningLocked(next.UserID); ok {
			return nil, fmt.Errorf("%w: active timer already running", domain.ErrConflict)
		}
	}
	s.entries[id] = clone(next)
	return &next, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id string, check func(domain.TimeEntry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: time entry %s", domain.ErrNotFound, id)
	}
	if err := check(clone(cur)); err != nil {
		return err
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) ListEntries(ctx context.Context, f domain.EntryFilter) ([]domain.TimeEntry, int, error) {
	s.mu.Lock()
	var out []domain.TimeEntry
	for _, e := range s.entries {
		if matches(e, f) {
			out = append(out, clone(e))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID > out[j].ID
	})
	total := len(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []domain.TimeEntry{}, total, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func matches(e domain.TimeEntry, f domain.EntryFilter) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.ProjectID != "" && e.ProjectID != f.ProjectID {
		return false
	}
	if f.TaskID != "" && e.TaskID != f.TaskID {
		return false
	}
	if f.From != nil && e.StartTime.Before(*f.From) {
		return false
	}
	if f.To != nil && e.StartTime.After(*f.To) {
		return false
	}
	if f.Billable != nil && e.Billable != *f.Billable {
		return false
	}
	return true
}

func (s *Store) AttachInvoice(ctx context.Context, invoiceID string, ids []string, check func(domain.TimeEntry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok {
			return fmt.Errorf("%w: time entry %s", domain.ErrNotFound, id)
		}
		if err := check(clone(e)); err != nil {
			return err
		}
	}
	for _, id := range ids {
		e := s.entries[id]
		inv := invoiceID
		e.InvoiceID = &inv
		s.entries[id] = e
	}
	return nil
}

func (s *Store) CreateRate(ctx context.Context, r domain.BillableRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = append(s.rates, r)
	return nil
}

func (s *Store) ListRates(ctx context.Context) ([]domain.BillableRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BillableRate, len(s.rates))
	copy(out, s.rates)
	return out, nil
}

func (s *Store) CandidateRates(ctx context.Context, q domain.RateQuery) ([]domain.BillableRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BillableRate
	for _, r := range s.rates {
		if r.ActiveAt(q.At) && r.Matches(q) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) GetSettings(ctx context.Context, userID string) (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settings[userID]
	if !ok {
		return nil, nil
	}
	st.WorkingHours = copyHours(st.WorkingHours)
	return &st, nil
}

func (s *Store) UpsertSettings(ctx context.Context, st domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.WorkingHours = copyHours(st.WorkingHours)
	s.settings[st.UserID] = st
	return nil
}

func copyHours(in map[int]domain.WorkingDay) map[int]domain.WorkingDay {
	out := make(map[int]domain.WorkingDay, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// clone copies the pointer and slice fields so callers cannot alias stored rows.
func clone(e domain.TimeEntry) domain.TimeEntry {
	if e.EndTime != nil {
		t := *e.EndTime
		e.EndTime = &t
	}
	if e.BillableRate != nil {
		r := *e.BillableRate
		e.BillableRate = &r
	}
	if e.InvoiceID != nil {
		id := *e.InvoiceID
		e.InvoiceID = &id
	}
	e.Tags = append([]string(nil), e.Tags...)
	return e
}
