// Package report groups time entries into period and dimension summaries.
package report

import (
	"sort"
	"time"

	"timetrack/internal/billing"
	"timetrack/internal/domain"
)

// GroupKey returns the grouping key of e for groupBy. Time-based keys use the
// UTC calendar of StartTime; weeks start on Sunday.
func GroupKey(e domain.TimeEntry, groupBy string) string {
	switch groupBy {
	case domain.GroupByDay:
		return e.StartTime.UTC().Format("2006-01-02")
	case domain.GroupByWeek:
		return WeekStart(e.StartTime).Format("2006-01-02")
	case domain.GroupByMonth:
		return e.StartTime.UTC().Format("2006-01")
	case domain.GroupByProject:
		return e.ProjectID
	case domain.GroupByTask:
		return e.TaskID
	}
	return ""
}

// WeekStart returns 00:00 UTC of the Sunday that begins t's week.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// Period returns the bounds of a group. Project and task groups reuse the
// query range.
func Period(key, groupBy string, from, to time.Time) (time.Time, time.Time) {
	switch groupBy {
	case domain.GroupByDay, domain.GroupByWeek:
		start, err := time.Parse("2006-01-02", key)
		if err != nil {
			break
		}
		if groupBy == domain.GroupByDay {
			return start, start.Add(24 * time.Hour)
		}
		return start, start.AddDate(0, 0, 7)
	case domain.GroupByMonth:
		start, err := time.Parse("2006-01", key)
		if err != nil {
			break
		}
		return start, start.AddDate(0, 1, 0)
	}
	return from, to
}

// Summarize groups entries and totals each group. Entries are assumed to be
// already filtered. Groups are sorted by key.
func Summarize(entries []domain.TimeEntry, groupBy string, from, to time.Time, currency string) []domain.Summary {
	groups := make(map[string]*domain.Summary)
	var keys []string
	for _, e := range entries {
		key := GroupKey(e, groupBy)
		g, ok := groups[key]
		if !ok {
			start, end := Period(key, groupBy, from, to)
			g = &domain.Summary{
				GroupKey:    key,
				PeriodStart: start,
				PeriodEnd:   end,
				Currency:    currency,
				Entries:     []domain.TimeEntry{},
			}
			groups[key] = g
			keys = append(keys, key)
		}
		g.TotalDuration += e.Duration
		if e.Billable {
			g.BillableDuration += e.Duration
			if e.BillableRate != nil {
				g.BillableAmount += float64(e.Duration) / 3600 * *e.BillableRate
			}
		} else {
			g.NonBillableDuration += e.Duration
		}
		g.Entries = append(g.Entries, e)
	}
	sort.Strings(keys)
	out := make([]domain.Summary, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		g.BillableAmount = billing.RoundCents(g.BillableAmount)
		out = append(out, *g)
	}
	return out
}
