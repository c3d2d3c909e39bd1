package usecase

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"timetrack/internal/adapter/memory"
	"timetrack/internal/domain"
)

// clock is a settable time source for tests.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store    *memory.Store
	clock    *clock
	timers   *TimerUseCase
	rates    *RateUseCase
	settings *SettingsUseCase
	summary  *SummaryUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	store.PutTask(domain.Task{ID: "t1", ProjectID: "p1", TaskTypeID: "consult"})
	store.PutTask(domain.Task{ID: "t2", ProjectID: "p2"})
	c := &clock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	settings := &SettingsUseCase{Log: log, Store: store}
	rates := &RateUseCase{Log: log, Store: store, Now: c.Now}
	return &fixture{
		store:    store,
		clock:    c,
		settings: settings,
		rates:    rates,
		timers: &TimerUseCase{
			Log:      log,
			Tasks:    store,
			Entries:  store,
			Rates:    rates,
			Settings: settings,
			Now:      c.Now,
		},
		summary: &SummaryUseCase{Log: log, Entries: store, Settings: settings},
	}
}

func ptr[T any](v T) *T { return &v }
