//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	msql "timetrack/internal/adapter/mysql"
	"timetrack/internal/domain"
	"timetrack/internal/migrate"
	"timetrack/internal/usecase"
)

type env struct {
	db       *sql.DB
	client   *msql.Client
	timers   *usecase.TimerUseCase
	settings *usecase.SettingsUseCase
	rates    *usecase.RateUseCase
	summary  *usecase.SummaryUseCase
	now      time.Time
}

func startMySQL(t *testing.T) *env {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_DATABASE":      "testdb",
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_USER":          "test",
			"MYSQL_PASSWORD":      "pass",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}
	t.Cleanup(func() { _ = mysqlC.Terminate(context.Background()) })

	host, err := mysqlC.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := mysqlC.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true", "test", "pass", host, port.Port(), "testdb")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := migrate.Run(ctx, dsn, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Second run must be a no-op.
	if err := migrate.Run(ctx, dsn, logger); err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	client, err := msql.NewClient(ctx, dsn, logger)
	if err != nil {
		t.Fatalf("mysql client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.ExecContext(ctx, "INSERT INTO tasks (id, project_id, task_type_id) VALUES ('t1','p1','dev'), ('t2','p2',NULL)"); err != nil {
		t.Fatalf("seed tasks: %v", err)
	}

	e := &env{db: db, client: client, now: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return e.now }
	e.settings = &usecase.SettingsUseCase{Log: logger, Store: client}
	e.rates = &usecase.RateUseCase{Log: logger, Store: client, Currency: "USD", Now: clock}
	e.timers = &usecase.TimerUseCase{Log: logger, Tasks: client, Entries: client, Rates: e.rates, Settings: e.settings, Now: clock}
	e.summary = &usecase.SummaryUseCase{Log: logger, Entries: client, Settings: e.settings}
	return e
}

func TestMySQL_TimeTrackingFlow(t *testing.T) {
	e := startMySQL(t)
	ctx := context.Background()

	// Concurrent starts: the unique running key admits exactly one.
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.timers.StartTimer(ctx, "u1", usecase.StartTimerInput{TaskID: "t1"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("start: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins != 1 || conflicts != 7 {
		t.Fatalf("expected 1 winner and 7 conflicts, got %d/%d", wins, conflicts)
	}

	e.now = e.now.Add(50 * time.Minute)
	stopped, err := e.timers.StopTimer(ctx, "u1", usecase.StopTimerInput{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped.Duration != 45*60 {
		t.Fatalf("expected 45m rounded duration, got %ds", stopped.Duration)
	}

	// Rates resolve from storage by precedence.
	if _, err := e.rates.Create(ctx, domain.RoleAdmin, domain.BillableRate{HourlyRate: 50, EffectiveFrom: e.now.AddDate(0, -1, 0)}); err != nil {
		t.Fatalf("create global rate: %v", err)
	}
	p1 := "p1"
	if _, err := e.rates.Create(ctx, domain.RoleAdmin, domain.BillableRate{ProjectID: &p1, HourlyRate: 100, EffectiveFrom: e.now.AddDate(0, -1, 0)}); err != nil {
		t.Fatalf("create project rate: %v", err)
	}
	if r := e.rates.Resolve(ctx, "u1", "p1", "dev"); r == nil || r.HourlyRate != 100 {
		t.Fatalf("expected project rate, got %+v", r)
	}
	if r := e.rates.Resolve(ctx, "u1", "p2", ""); r == nil || r.HourlyRate != 50 {
		t.Fatalf("expected global rate, got %+v", r)
	}

	manual, err := e.timers.CreateManualEntry(ctx, "u1", usecase.ManualEntryInput{
		TaskID:    "t1",
		ProjectID: "p1",
		StartTime: time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
		Tags:      []string{"b", "a", "b"},
	})
	if err != nil {
		t.Fatalf("manual: %v", err)
	}
	if manual.BillableRate == nil || *manual.BillableRate != 100 || len(manual.Tags) != 2 {
		t.Fatalf("unexpected manual entry: %+v", manual)
	}

	// Invoice lock is enforced inside the row lock.
	if err := e.timers.AttachInvoice(ctx, domain.RoleManager, "inv-1", []string{manual.ID}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	dur := int64(60)
	_, err = e.timers.UpdateTimeEntry(ctx, "u1", manual.ID, domain.EntryUpdate{Duration: &dur})
	var lfe *domain.LockedFieldsError
	if !errors.As(err, &lfe) || len(lfe.Fields) != 1 || lfe.Fields[0] != "duration" {
		t.Fatalf("expected locked duration, got %v", err)
	}
	desc := "reviewed"
	if _, err := e.timers.UpdateTimeEntry(ctx, "u1", manual.ID, domain.EntryUpdate{Description: &desc}); err != nil {
		t.Fatalf("description on invoiced entry: %v", err)
	}
	if err := e.timers.DeleteTimeEntry(ctx, "u1", manual.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict deleting invoiced entry, got %v", err)
	}

	// Settings upsert is idempotent per user.
	rounding := 0
	cur := "EUR"
	for i := 0; i < 2; i++ {
		if _, err := e.settings.Update(ctx, "u1", domain.SettingsUpdate{RoundingInterval: &rounding, Currency: &cur}); err != nil {
			t.Fatalf("settings update: %v", err)
		}
	}
	var count int
	if err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM time_tracking_settings WHERE user_id = 'u1'").Scan(&count); err != nil {
		t.Fatalf("count settings: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 settings row, got %d", count)
	}

	sum, err := e.summary.Summary(ctx, "u1", domain.SummaryQuery{
		StartDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 4, 23, 59, 59, 0, time.UTC),
		GroupBy:   domain.GroupByDay,
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(sum) != 1 || sum[0].TotalDuration != 45*60+2*3600 || sum[0].Currency != "EUR" {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	page, err := e.timers.ListTimeEntries(ctx, "u1", usecase.ListQuery{Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Entries) != 1 || page.Entries[0].ID != manual.ID {
		t.Fatalf("unexpected page: %+v", page)
	}
}
