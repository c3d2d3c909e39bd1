package domain

import "time"

// Summary grouping dimensions.
const (
	GroupByDay     = "day"
	GroupByWeek    = "week"
	GroupByMonth   = "month"
	GroupByProject = "project"
	GroupByTask    = "task"
)

// ValidGroupBy reports whether g names a supported grouping.
func ValidGroupBy(g string) bool {
	switch g {
	case GroupByDay, GroupByWeek, GroupByMonth, GroupByProject, GroupByTask:
		return true
	}
	return false
}

// Summary aggregates the entries that share one grouping key.
type Summary struct {
	GroupKey            string      `json:"groupKey"`
	PeriodStart         time.Time   `json:"periodStart"`
	PeriodEnd           time.Time   `json:"periodEnd"`
	TotalDuration       int64       `json:"totalDuration"`
	BillableDuration    int64       `json:"billableDuration"`
	NonBillableDuration int64       `json:"nonBillableDuration"`
	BillableAmount      float64     `json:"billableAmount"`
	Currency            string      `json:"currency"`
	Entries             []TimeEntry `json:"entries"`
}

// SummaryQuery selects and groups entries for a summary.
type SummaryQuery struct {
	ProjectID string
	TaskID    string
	StartDate time.Time
	EndDate   time.Time
	GroupBy   string
}
