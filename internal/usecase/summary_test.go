package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"timetrack/internal/domain"
)

func TestSummaryFiltersAndTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	day := func(d, h int) time.Time { return time.Date(2024, 2, d, h, 0, 0, 0, time.UTC) }
	add := func(user, task, project string, start time.Time, hours int, billable bool, rate *float64) {
		t.Helper()
		if _, err := f.timers.CreateManualEntry(ctx, user, ManualEntryInput{
			TaskID: task, ProjectID: project, StartTime: start, EndTime: start.Add(time.Duration(hours) * time.Hour),
			Billable: &billable, BillableRate: rate,
		}); err != nil {
			t.Fatal(err)
		}
	}
	add("u1", "t1", "p1", day(5, 9), 2, true, ptr(100.0))
	add("u1", "t2", "p2", day(5, 13), 1, false, nil)
	add("u1", "t1", "p1", day(20, 9), 3, true, ptr(50.0))
	add("u1", "t1", "p1", day(29, 9), 1, true, ptr(10.0)) // outside range
	add("u2", "t1", "p1", day(6, 9), 4, true, ptr(100.0)) // other user

	q := domain.SummaryQuery{StartDate: day(1, 0), EndDate: day(28, 23), GroupBy: domain.GroupByProject}
	got, err := f.summary.Summary(ctx, "u1", q)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 project groups, got %d", len(got))
	}
	p1 := got[0]
	if p1.GroupKey != "p1" || p1.TotalDuration != 5*3600 || p1.BillableAmount != 350 || p1.Currency != "USD" {
		t.Fatalf("p1 summary: %+v", p1)
	}
	if got[1].NonBillableDuration != 3600 || got[1].BillableAmount != 0 {
		t.Fatalf("p2 summary: %+v", got[1])
	}

	q.GroupBy = domain.GroupByMonth
	q.ProjectID = "p1"
	got, err = f.summary.Summary(ctx, "u1", q)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].GroupKey != "2024-02" || got[0].TotalDuration != 5*3600 {
		t.Fatalf("month summary: %+v", got)
	}

	empty, err := f.summary.Summary(ctx, "nobody", q)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty summary, got %v, %v", empty, err)
	}
}

func TestSummaryValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for name, q := range map[string]domain.SummaryQuery{
		"bad groupBy":   {StartDate: start, EndDate: start.AddDate(0, 1, 0), GroupBy: "year"},
		"reverse range": {StartDate: start, EndDate: start.AddDate(0, 0, -1), GroupBy: domain.GroupByDay},
		"missing dates": {GroupBy: domain.GroupByDay},
	} {
		if _, err := f.summary.Summary(ctx, "u1", q); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}
