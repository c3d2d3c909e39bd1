package ports

import (
	"context"

	"timetrack/internal/domain"
)

// TaskLookup resolves tasks from the task/project directory.
// A missing task is reported as (nil, nil).
type TaskLookup interface {
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
}

// EntryStore persists time entries.
//
// CreateEntry must reject a second running entry for the same user with an
// error wrapping domain.ErrConflict, atomically with the insert.
// UpdateEntry and DeleteEntry load the row under a write lock and hand it to
// the callback; a callback error aborts the write and is returned unchanged.
type EntryStore interface {
	CreateEntry(ctx context.Context, e domain.TimeEntry) error
	GetEntry(ctx context.Context, id string) (*domain.TimeEntry, error)
	GetRunningEntry(ctx context.Context, userID string) (*domain.TimeEntry, error)
	UpdateEntry(ctx context.Context, id string, mutate func(*domain.TimeEntry) error) (*domain.TimeEntry, error)
	DeleteEntry(ctx context.Context, id string, check func(domain.TimeEntry) error) error
	ListEntries(ctx context.Context, f domain.EntryFilter) ([]domain.TimeEntry, int, error)
	// AttachInvoice sets invoiceID on every entry in ids in one transaction,
	// calling check on each locked row first.
	AttachInvoice(ctx context.Context, invoiceID string, ids []string, check func(domain.TimeEntry) error) error
}

// RateStore persists billable rates.
type RateStore interface {
	CreateRate(ctx context.Context, r domain.BillableRate) error
	ListRates(ctx context.Context) ([]domain.BillableRate, error)
	// CandidateRates returns rates active at q.At whose scope matches q.
	// Ranking is left to the caller.
	CandidateRates(ctx context.Context, q domain.RateQuery) ([]domain.BillableRate, error)
}

// SettingsStore persists per-user settings. A missing row is (nil, nil).
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (*domain.Settings, error)
	UpsertSettings(ctx context.Context, s domain.Settings) error
}
