package report

import (
	"testing"
	"time"

	"timetrack/internal/domain"
)

func f64(v float64) *float64 { return &v }

func entry(id, project, task string, start time.Time, dur int64, billable bool, rate *float64) domain.TimeEntry {
	end := start.Add(time.Duration(dur) * time.Second)
	return domain.TimeEntry{
		ID:           id,
		ProjectID:    project,
		TaskID:       task,
		UserID:       "u1",
		StartTime:    start,
		EndTime:      &end,
		Duration:     dur,
		Billable:     billable,
		BillableRate: rate,
	}
}

func sample() []domain.TimeEntry {
	d := func(day, hour int) time.Time { return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC) }
	return []domain.TimeEntry{
		entry("1", "p1", "t1", d(4, 9), 3600, true, f64(100)),  // Monday
		entry("2", "p1", "t2", d(4, 14), 1800, false, nil),     // Monday
		entry("3", "p2", "t3", d(9, 10), 5400, true, nil),      // Saturday, no rate
		entry("4", "p2", "t3", d(10, 8), 900, true, f64(60)),   // Sunday, next week
		entry("5", "p1", "t1", d(31, 23), 7200, true, f64(50)), // last day of month
	}
}

func TestSummarizeAdditivity(t *testing.T) {
	entries := sample()
	var want int64
	for _, e := range entries {
		want += e.Duration
	}
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	for _, g := range []string{domain.GroupByDay, domain.GroupByWeek, domain.GroupByMonth, domain.GroupByProject, domain.GroupByTask} {
		var got int64
		count := 0
		for _, s := range Summarize(entries, g, from, to, "USD") {
			got += s.TotalDuration
			count += len(s.Entries)
			if s.BillableDuration+s.NonBillableDuration != s.TotalDuration {
				t.Fatalf("%s/%s: billable split %d+%d != %d", g, s.GroupKey, s.BillableDuration, s.NonBillableDuration, s.TotalDuration)
			}
		}
		if got != want || count != len(entries) {
			t.Fatalf("%s: total %d (%d entries), want %d (%d entries)", g, got, count, want, len(entries))
		}
	}
}

func TestSummarizeByWeek(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	got := Summarize(sample(), domain.GroupByWeek, from, to, "EUR")
	if len(got) != 3 {
		t.Fatalf("expected 3 weeks, got %d", len(got))
	}
	first := got[0]
	if first.GroupKey != "2024-03-03" {
		t.Fatalf("first week key = %s, want 2024-03-03", first.GroupKey)
	}
	if !first.PeriodEnd.Equal(first.PeriodStart.AddDate(0, 0, 7)) {
		t.Fatalf("week period %v..%v", first.PeriodStart, first.PeriodEnd)
	}
	if first.TotalDuration != 3600+1800+5400 || first.BillableDuration != 9000 || first.NonBillableDuration != 1800 {
		t.Fatalf("unexpected totals: %+v", first)
	}
	// Entry 3 has no rate: counts toward billable time but not the amount.
	if first.BillableAmount != 100 {
		t.Fatalf("billable amount = %v, want 100", first.BillableAmount)
	}
	if first.Currency != "EUR" {
		t.Fatalf("currency = %s", first.Currency)
	}
	if got[1].GroupKey != "2024-03-10" || got[1].BillableAmount != 15 {
		t.Fatalf("second week: %+v", got[1])
	}
}

func TestSummarizeByMonthAndProject(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	months := Summarize(sample(), domain.GroupByMonth, from, to, "USD")
	if len(months) != 1 || months[0].GroupKey != "2024-03" {
		t.Fatalf("months: %+v", months)
	}
	if !months[0].PeriodEnd.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("month end = %v", months[0].PeriodEnd)
	}
	if months[0].BillableAmount != 100+15+100 {
		t.Fatalf("month amount = %v", months[0].BillableAmount)
	}

	projects := Summarize(sample(), domain.GroupByProject, from, to, "USD")
	if len(projects) != 2 || projects[0].GroupKey != "p1" || projects[1].GroupKey != "p2" {
		t.Fatalf("projects: %+v", projects)
	}
	if !projects[0].PeriodStart.Equal(from) || !projects[0].PeriodEnd.Equal(to) {
		t.Fatalf("project period should reuse query bounds, got %v..%v", projects[0].PeriodStart, projects[0].PeriodEnd)
	}
}

func TestSummarizeByDay(t *testing.T) {
	days := Summarize(sample(), domain.GroupByDay, time.Time{}, time.Time{}, "USD")
	if len(days) != 4 {
		t.Fatalf("expected 4 days, got %d", len(days))
	}
	if days[0].GroupKey != "2024-03-04" || len(days[0].Entries) != 2 {
		t.Fatalf("first day: %+v", days[0])
	}
	if days[0].PeriodEnd.Sub(days[0].PeriodStart) != 24*time.Hour {
		t.Fatalf("day period %v", days[0].PeriodEnd.Sub(days[0].PeriodStart))
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil, domain.GroupByDay, time.Time{}, time.Time{}, "USD"); len(got) != 0 {
		t.Fatalf("expected empty, got %d", len(got))
	}
}

func TestWeekStart(t *testing.T) {
	sun := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, in := range []time.Time{
		sun,
		time.Date(2024, 3, 13, 18, 30, 0, 0, time.UTC),
		time.Date(2024, 3, 16, 23, 59, 59, 0, time.UTC),
	} {
		if got := WeekStart(in); !got.Equal(sun) {
			t.Fatalf("WeekStart(%v) = %v, want %v", in, got, sun)
		}
	}
}
