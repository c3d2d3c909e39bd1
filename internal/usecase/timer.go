package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"timetrack/internal/billing"
	"timetrack/internal/domain"
	"timetrack/internal/ports"
)

// TimerUseCase owns the time entry lifecycle: running timers, manual
// entries, edits, deletes and the invoice lock.
type TimerUseCase struct {
	Log      *slog.Logger
	Tasks    ports.TaskLookup
	Entries  ports.EntryStore
	Rates    *RateUseCase
	Settings *SettingsUseCase
	Now      func() time.Time
}

// StartTimerInput starts a running timer. Billable defaults to true.
type StartTimerInput struct {
	TaskID      string   `json:"taskId"`
	Description string   `json:"description"`
	Billable    *bool    `json:"billable"`
	Tags        []string `json:"tags"`
}

// StopTimerInput stops a running timer. EndTime defaults to now and an empty
// TimeEntryID selects the caller's current timer.
type StopTimerInput struct {
	TimeEntryID string     `json:"timeEntryId"`
	EndTime     *time.Time `json:"endTime"`
}

// ManualEntryInput records completed work. Duration defaults to
// EndTime-StartTime and Billable defaults to true.
type ManualEntryInput struct {
	TaskID       string    `json:"taskId"`
	ProjectID    string    `json:"projectId"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	Duration     *int64    `json:"duration"`
	Billable     *bool     `json:"billable"`
	BillableRate *float64  `json:"billableRate"`
	Tags         []string  `json:"tags"`
}

// ListQuery filters a paged entry listing.
type ListQuery struct {
	ProjectID string
	TaskID    string
	StartDate *time.Time
	EndDate   *time.Time
	Billable  *bool
	Page      int
	Limit     int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (uc *TimerUseCase) now() time.Time {
	if uc.Now != nil {
		return uc.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc *TimerUseCase) ready() error {
	if uc.Tasks == nil || uc.Entries == nil || uc.Rates == nil || uc.Settings == nil {
		return errors.New("timer usecase not initialized: missing dependencies")
	}
	return nil
}

// StartTimer creates a running entry for userID. A user may have only one
// running timer; a second start fails with domain.ErrConflict.
func (uc *TimerUseCase) StartTimer(ctx context.Context, userID string, in StartTimerInput) (*domain.TimeEntry, error) {
	if err := uc.ready(); err != nil {
		return nil, err
	}
	if in.TaskID == "" {
		return nil, fmt.Errorf("%w: taskId is required", domain.ErrValidation)
	}
	task, err := uc.task(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	running, err := uc.Entries.GetRunningEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	if running != nil {
		return nil, fmt.Errorf("%w: active timer already running", domain.ErrConflict)
	}
	settings, err := uc.Settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	e := domain.TimeEntry{
		ID:           uuid.NewString(),
		TaskID:       task.ID,
		ProjectID:    task.ProjectID,
		UserID:       userID,
		Description:  in.Description,
		StartTime:    now,
		Billable:     in.Billable == nil || *in.Billable,
		BillableRate: uc.rateFor(ctx, userID, task, settings),
		Tags:         domain.NormalizeTags(in.Tags),
		Source:       domain.SourceTimer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// CreateEntry re-checks the running timer atomically.
	if err := uc.Entries.CreateEntry(ctx, e); err != nil {
		return nil, err
	}
	uc.Log.Info("timer started", slog.String("user", userID), slog.String("entry", e.ID), slog.String("task", e.TaskID))
	return &e, nil
}

// StopTimer ends a running timer and stores its rounded duration.
func (uc *TimerUseCase) StopTimer(ctx context.Context, userID string, in StopTimerInput) (*domain.TimeEntry, error) {
	if err := uc.ready(); err != nil {
		return nil, err
	}
	if in.TimeEntryID == "" {
		running, err := uc.Entries.GetRunningEntry(ctx, userID)
		if err != nil {
			return nil, err
		}
		if running == nil {
			return nil, fmt.Errorf("%w: no running timer", domain.ErrNotFound)
		}
		in.TimeEntryID = running.ID
	}
	cur, err := uc.ownedEntry(ctx, userID, in.TimeEntryID)
	if err != nil {
		return nil, err
	}
	if !cur.Running() {
		return nil, fmt.Errorf("%w: timer already stopped", domain.ErrConflict)
	}
	settings, err := uc.Settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	end := now
	if in.EndTime != nil {
		end = in.EndTime.UTC()
	}
	var rate *float64
	if cur.Billable && cur.BillableRate == nil {
		if task, err := uc.task(ctx, cur.TaskID); err == nil {
			rate = uc.rateFor(ctx, userID, task, settings)
		}
	}

	stopped, err := uc.Entries.UpdateEntry(ctx, cur.ID, func(e *domain.TimeEntry) error {
		if e.UserID != userID {
			return fmt.Errorf("%w: time entry %s belongs to another user", domain.ErrForbidden, e.ID)
		}
		if !e.Running() {
			return fmt.Errorf("%w: timer already stopped", domain.ErrConflict)
		}
		if !end.After(e.StartTime) {
			return fmt.Errorf("%w: endTime must be after startTime", domain.ErrValidation)
		}
		e.EndTime = &end
		e.Duration = roundEntry(elapsedSeconds(e.StartTime, end), settings.RoundingInterval)
		if e.BillableRate == nil {
			e.BillableRate = rate
		}
		e.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.Log.Info("timer stopped", slog.String("user", userID), slog.String("entry", stopped.ID), slog.Int64("duration", stopped.Duration))
	return stopped, nil
}

// CreateManualEntry records a completed block of work.
func (uc *TimerUseCase) CreateManualEntry(ctx context.Context, userID string, in ManualEntryInput) (*domain.TimeEntry, error) {
	if err := uc.ready(); err != nil {
		return nil, err
	}
	if in.TaskID == "" || in.ProjectID == "" {
		return nil, fmt.Errorf("%w: taskId and projectId are required", domain.ErrValidation)
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return nil, fmt.Errorf("%w: startTime and endTime are required", domain.ErrValidation)
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, fmt.Errorf("%w: endTime must be after startTime", domain.ErrValidation)
	}
	task, err := uc.task(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	if task.ProjectID != in.ProjectID {
		return nil, fmt.Errorf("%w: task %s does not belong to project %s", domain.ErrValidation, task.ID, in.ProjectID)
	}
	raw := elapsedSeconds(in.StartTime, in.EndTime)
	if in.Duration != nil {
		raw = *in.Duration
	}
	if raw <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", domain.ErrValidation)
	}
	if in.BillableRate != nil && *in.BillableRate < 0 {
		return nil, fmt.Errorf("%w: billableRate must not be negative", domain.ErrValidation)
	}
	settings, err := uc.Settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	start, end := in.StartTime.UTC(), in.EndTime.UTC()
	e := domain.TimeEntry{
		ID:           uuid.NewString(),
		TaskID:       task.ID,
		ProjectID:    task.ProjectID,
		UserID:       userID,
		Description:  in.Description,
		StartTime:    start,
		EndTime:      &end,
		Duration:     roundEntry(raw, settings.RoundingInterval),
		Billable:     in.Billable == nil || *in.Billable,
		BillableRate: billing.RoundRate(in.BillableRate),
		Tags:         domain.NormalizeTags(in.Tags),
		Source:       domain.SourceManual,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if e.Billable && e.BillableRate == nil {
		e.BillableRate = uc.rateFor(ctx, userID, task, settings)
	}
	if err := uc.Entries.CreateEntry(ctx, e); err != nil {
		return nil, err
	}
	uc.Log.Info("manual entry created", slog.String("user", userID), slog.String("entry", e.ID), slog.Int64("duration", e.Duration))
	return &e, nil
}

// UpdateTimeEntry applies u to an entry owned by userID. Invoiced entries
// accept only description and tag changes. Ownership and the invoice lock are
// checked against the row as locked by the store's write.
func (uc *TimerUseCase) UpdateTimeEntry(ctx context.Context, userID, id string, u domain.EntryUpdate) (*domain.TimeEntry, error) {
	if err := uc.ready(); err != nil {
		return nil, err
	}
	if _, err := uc.ownedEntry(ctx, userID, id); err != nil {
		return nil, err
	}
	var task *domain.Task
	if u.TaskID != nil {
		t, err := uc.task(ctx, *u.TaskID)
		if err != nil {
			return nil, err
		}
		task = t
	}
	if u.BillableRate != nil && *u.BillableRate < 0 {
		return nil, fmt.Errorf("%w: billableRate must not be negative", domain.ErrValidation)
	}
	settings, err := uc.Settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := uc.now()

	updated, err := uc.Entries.UpdateEntry(ctx, id, func(e *domain.TimeEntry) error {
		if e.UserID != userID {
			return fmt.Errorf("%w: time entry %s belongs to another user", domain.ErrForbidden, e.ID)
		}
		if e.Locked() {
			if fields := u.LockedChanges(); len(fields) > 0 {
				return &domain.LockedFieldsError{EntryID: e.ID, Fields: fields}
			}
		}
		if u.Description != nil {
			e.Description = *u.Description
		}
		if u.Tags != nil {
			e.Tags = domain.NormalizeTags(*u.Tags)
		}
		if task != nil {
			e.TaskID = task.ID
			e.ProjectID = task.ProjectID
		}
		if u.StartTime != nil || u.EndTime != nil {
			start := e.StartTime
			if u.StartTime != nil {
				start = u.StartTime.UTC()
			}
			end := e.EndTime
			if u.EndTime != nil {
				t := u.EndTime.UTC()
				end = &t
			}
			e.StartTime = start
			if end != nil {
				if !end.After(start) {
					return fmt.Errorf("%w: endTime must be after startTime", domain.ErrValidation)
				}
				e.EndTime = end
				e.Duration = roundEntry(elapsedSeconds(start, *end), settings.RoundingInterval)
			}
		}
		if u.Duration != nil {
			if e.Running() {
				return fmt.Errorf("%w: cannot set duration on a running timer", domain.ErrValidation)
			}
			if *u.Duration <= 0 {
				return fmt.Errorf("%w: duration must be positive", domain.ErrValidation)
			}
			e.Duration = roundEntry(*u.Duration, settings.RoundingInterval)
		}
		if u.Billable != nil {
			e.Billable = *u.Billable
		}
		if u.BillableRate != nil {
			e.BillableRate = billing.RoundRate(u.BillableRate)
		}
		e.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.Log.Info("time entry updated", slog.String("user", userID), slog.String("entry", id), slog.Any("fields", u.ChangedFields()))
	return updated, nil
}

// DeleteTimeEntry hard-deletes an entry that is not invoiced.
func (uc *TimerUseCase) DeleteTimeEntry(ctx context.Context, userID, id string) error {
	if err := uc.ready(); err != nil {
		return err
	}
	err := uc.Entries.DeleteEntry(ctx, id, func(e domain.TimeEntry) error {
		if e.UserID != userID {
			return fmt.Errorf("%w: time entry %s belongs to another user", domain.ErrForbidden, e.ID)
		}
		if e.Locked() {
			return fmt.Errorf("%w: cannot delete invoiced entry", domain.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return err
	}
	uc.Log.Info("time entry deleted", slog.String("user", userID), slog.String("entry", id))
	return nil
}

// GetCurrentTimer returns the user's running entry, or nil.
func (uc *TimerUseCase) GetCurrentTimer(ctx context.Context, userID string) (*domain.TimeEntry, error) {
	if err := uc.ready(); err != nil {
		return nil, err
	}
	return uc.Entries.GetRunningEntry(ctx, userID)
}

// GetTimeEntry returns one entry owned by userID.
func (uc *TimerUseCase) GetTimeEntry(ctx context.Context, userID, id string) (*domain.TimeEntry, error) {
	if err := uc.ready(); err != nil {
		return nil, err
	}
	return uc.ownedEntry(ctx, userID, id)
}

// ListTimeEntries returns a page of the user's entries, newest first.
func (uc *TimerUseCase) ListTimeEntries(ctx context.Context, userID string, q ListQuery) (domain.EntryPage, error) {
	if err := uc.ready(); err != nil {
		return domain.EntryPage{}, err
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	entries, total, err := uc.Entries.ListEntries(ctx, domain.EntryFilter{
		UserID:    userID,
		ProjectID: q.ProjectID,
		TaskID:    q.TaskID,
		From:      q.StartDate,
		To:        q.EndDate,
		Billable:  q.Billable,
		Limit:     q.Limit,
		Offset:    (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return domain.EntryPage{}, err
	}
	if entries == nil {
		entries = []domain.TimeEntry{}
	}
	return domain.EntryPage{Entries: entries, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// AttachInvoice marks stopped, uninvoiced entries as billed by invoiceID.
// It is all-or-nothing and only billing managers may call it.
func (uc *TimerUseCase) AttachInvoice(ctx context.Context, role, invoiceID string, ids []string) error {
	if err := uc.ready(); err != nil {
		return err
	}
	if !domain.CanManageBilling(role) {
		return fmt.Errorf("%w: attaching invoices requires admin or manager role", domain.ErrForbidden)
	}
	if invoiceID == "" || len(ids) == 0 {
		return fmt.Errorf("%w: invoiceId and timeEntryIds are required", domain.ErrValidation)
	}
	ids = uniqueIDs(ids)
	err := uc.Entries.AttachInvoice(ctx, invoiceID, ids, func(e domain.TimeEntry) error {
		if e.Running() {
			return fmt.Errorf("%w: time entry %s is still running", domain.ErrConflict, e.ID)
		}
		if e.Locked() {
			return fmt.Errorf("%w: time entry %s is already invoiced", domain.ErrConflict, e.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	uc.Log.Info("invoice attached", slog.String("invoice", invoiceID), slog.Int("count", len(ids)))
	return nil
}

func (uc *TimerUseCase) task(ctx context.Context, id string) (*domain.Task, error) {
	t, err := uc.Tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	return t, nil
}

func (uc *TimerUseCase) ownedEntry(ctx context.Context, userID, id string) (*domain.TimeEntry, error) {
	e, err := uc.Entries.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: time entry %s", domain.ErrNotFound, id)
	}
	if e.UserID != userID {
		return nil, fmt.Errorf("%w: time entry %s belongs to another user", domain.ErrForbidden, id)
	}
	return e, nil
}

// rateFor resolves the hourly rate for work on task, falling back to the
// user's default rate.
func (uc *TimerUseCase) rateFor(ctx context.Context, userID string, task *domain.Task, s domain.Settings) *float64 {
	if r := uc.Rates.Resolve(ctx, userID, task.ProjectID, task.TaskTypeID); r != nil {
		v := r.HourlyRate
		return &v
	}
	if s.DefaultBillableRate != nil {
		v := *s.DefaultBillableRate
		return &v
	}
	return nil
}

// elapsedSeconds is the whole seconds from start to end. Any positive span
// under one second counts as one second.
func elapsedSeconds(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	if d < time.Second {
		return 1
	}
	return int64(d / time.Second)
}

// uniqueIDs drops empty and repeated ids and sorts the rest, so rows are
// always locked in the same order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// roundEntry rounds a positive raw duration, keeping it positive when the
// interval would round it down to zero.
func roundEntry(raw int64, intervalMinutes int) int64 {
	d := billing.RoundDuration(raw, intervalMinutes)
	if d == 0 && raw > 0 {
		return raw
	}
	return d
}
