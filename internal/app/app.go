package app

import (
	"context"
	"errors"
	"log/slog"

	"timetrack/internal/adapter/memory"
	msql "timetrack/internal/adapter/mysql"
	"timetrack/internal/adapter/taskdir"
	"timetrack/internal/config"
	"timetrack/internal/migrate"
	"timetrack/internal/ports"
	"timetrack/internal/usecase"
)

// Stores groups the persistence ports the use cases run on.
type Stores struct {
	Entries  ports.EntryStore
	Rates    ports.RateStore
	Settings ports.SettingsStore
	Tasks    ports.TaskLookup
}

// App wires adapters and use cases.
type App struct {
	log      *slog.Logger
	timers   *usecase.TimerUseCase
	settings *usecase.SettingsUseCase
	rates    *usecase.RateUseCase
	summary  *usecase.SummaryUseCase
	ping     func(context.Context) error
	close    func() error
}

// New builds the application from configuration, migrating the MySQL schema
// before the store is used.
func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	var (
		stores Stores
		ping   = func(context.Context) error { return nil }
		closer = func() error { return nil }
	)
	switch cfg.Store.Driver {
	case config.DriverMySQL:
		// Run migrations before opening the store for use
		if err := migrate.Run(ctx, cfg.MySQL.DSN, log); err != nil {
			return nil, err
		}
		client, err := msql.NewClient(ctx, cfg.MySQL.DSN, log)
		if err != nil {
			return nil, err
		}
		stores = Stores{Entries: client, Rates: client, Settings: client, Tasks: client}
		ping, closer = client.Ping, client.Close
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		m := memory.NewStore()
		stores = Stores{Entries: m, Rates: m, Settings: m, Tasks: m}
	default:
		return nil, errors.New("unknown store driver " + cfg.Store.Driver)
	}
	if cfg.Tasks.BaseURL != "" {
		stores.Tasks = taskdir.NewClient(cfg.Tasks.BaseURL, cfg.Tasks.APIToken, log)
	}

	a := NewWithStores(log, stores, cfg.Billing.Currency)
	a.ping, a.close = ping, closer
	return a, nil
}

// NewWithStores wires the use cases over already-built stores.
func NewWithStores(log *slog.Logger, s Stores, currency string) *App {
	settings := &usecase.SettingsUseCase{Log: log, Store: s.Settings}
	rates := &usecase.RateUseCase{Log: log, Store: s.Rates, Currency: currency}
	return &App{
		log:      log,
		settings: settings,
		rates:    rates,
		timers: &usecase.TimerUseCase{
			Log:      log,
			Tasks:    s.Tasks,
			Entries:  s.Entries,
			Rates:    rates,
			Settings: settings,
		},
		summary: &usecase.SummaryUseCase{Log: log, Entries: s.Entries, Settings: settings},
		ping:    func(context.Context) error { return nil },
		close:   func() error { return nil },
	}
}

// Close releases the store.
func (a *App) Close() error { return a.close() }
