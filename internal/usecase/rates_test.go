package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"timetrack/internal/domain"
)

func TestRateAdministration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.rates.Create(ctx, "member", domain.BillableRate{HourlyRate: 10}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("member create: expected forbidden, got %v", err)
	}
	if _, err := f.rates.List(ctx, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("anonymous list: expected forbidden, got %v", err)
	}

	r, err := f.rates.Create(ctx, domain.RoleAdmin, domain.BillableRate{ProjectID: ptr("p1"), UserID: ptr(""), HourlyRate: 120})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.ID == "" || r.Currency != "USD" || !r.EffectiveFrom.Equal(f.clock.t) || r.UserID != nil {
		t.Fatalf("created rate: %+v", r)
	}

	to := f.clock.t.Add(-time.Hour)
	if _, err := f.rates.Create(ctx, domain.RoleAdmin, domain.BillableRate{HourlyRate: 1, EffectiveTo: &to}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("inverted window: expected validation, got %v", err)
	}
	if _, err := f.rates.Create(ctx, domain.RoleAdmin, domain.BillableRate{HourlyRate: -1}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("negative rate: expected validation, got %v", err)
	}
	fine, err := f.rates.Create(ctx, domain.RoleAdmin, domain.BillableRate{ProjectID: ptr("p2"), HourlyRate: 87.504})
	if err != nil {
		t.Fatal(err)
	}
	if fine.HourlyRate != 87.5 {
		t.Fatalf("hourlyRate = %v, want 87.5", fine.HourlyRate)
	}

	list, err := f.rates.List(ctx, domain.RoleManager)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v, %v", list, err)
	}

	got := f.rates.Resolve(ctx, "anyone", "p1", "")
	if got == nil || got.ID != r.ID {
		t.Fatalf("resolve: %+v", got)
	}
	if f.rates.Resolve(ctx, "anyone", "p9", "") != nil {
		t.Fatal("expected no rate for unrelated project")
	}
}

func TestRateResolutionUsesWriteTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// Rate becomes effective after the clock's current time.
	if _, err := f.rates.Create(ctx, domain.RoleAdmin, domain.BillableRate{UserID: ptr("u1"), HourlyRate: 70, EffectiveFrom: f.clock.t.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	// A back-dated manual entry whose start falls inside the window still
	// resolves against now.
	start := f.clock.t.Add(2 * time.Hour)
	e, err := f.timers.CreateManualEntry(ctx, "u1", ManualEntryInput{TaskID: "t1", ProjectID: "p1", StartTime: start, EndTime: start.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if e.BillableRate != nil {
		t.Fatalf("expected no rate yet, got %v", *e.BillableRate)
	}
	f.clock.Advance(90 * time.Minute)
	e, err = f.timers.CreateManualEntry(ctx, "u1", ManualEntryInput{TaskID: "t1", ProjectID: "p1", StartTime: start, EndTime: start.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if e.BillableRate == nil || *e.BillableRate != 70 {
		t.Fatalf("expected rate 70, got %v", e.BillableRate)
	}
}
