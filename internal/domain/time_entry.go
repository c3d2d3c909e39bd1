package domain

import (
	"sort"
	"time"
)

// Entry sources.
const (
	SourceTimer  = "timer"
	SourceManual = "manual"
)

// TimeEntry is one unit of tracked work. A nil EndTime means the timer is running.
type TimeEntry struct {
	ID           string     `json:"id"`
	TaskID       string     `json:"taskId"`
	ProjectID    string     `json:"projectId"`
	UserID       string     `json:"userId"`
	Description  string     `json:"description"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime"`
	Duration     int64      `json:"duration"` // seconds, 0 while running
	Billable     bool       `json:"billable"`
	BillableRate *float64   `json:"billableRate"`
	InvoiceID    *string    `json:"invoiceId"`
	Tags         []string   `json:"tags"`
	Source       string     `json:"source"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Running reports whether the entry is an active timer.
func (e TimeEntry) Running() bool { return e.EndTime == nil }

// Locked reports whether the entry has been referenced by an invoice.
func (e TimeEntry) Locked() bool { return e.InvoiceID != nil }

// NormalizeTags de-duplicates tags and sorts them. Empty labels are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// EntryUpdate carries a partial update. Nil fields are left untouched.
type EntryUpdate struct {
	TaskID       *string    `json:"taskId,omitempty"`
	Description  *string    `json:"description,omitempty"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Duration     *int64     `json:"duration,omitempty"`
	Billable     *bool      `json:"billable,omitempty"`
	BillableRate *float64   `json:"billableRate,omitempty"`
	Tags         *[]string  `json:"tags,omitempty"`
}

// ChangedFields lists the JSON names of the fields set on u.
func (u EntryUpdate) ChangedFields() []string {
	var f []string
	if u.TaskID != nil {
		f = append(f, "taskId")
	}
	if u.Description != nil {
		f = append(f, "description")
	}
	if u.StartTime != nil {
		f = append(f, "startTime")
	}
	if u.EndTime != nil {
		f = append(f, "endTime")
	}
	if u.Duration != nil {
		f = append(f, "duration")
	}
	if u.Billable != nil {
		f = append(f, "billable")
	}
	if u.BillableRate != nil {
		f = append(f, "billableRate")
	}
	if u.Tags != nil {
		f = append(f, "tags")
	}
	return f
}

// LockedChanges returns the fields of u that may not change on an invoiced entry.
func (u EntryUpdate) LockedChanges() []string {
	var f []string
	for _, name := range u.ChangedFields() {
		if name == "description" || name == "tags" {
			continue
		}
		f = append(f, name)
	}
	return f
}

// EntryFilter selects time entries for listing and summaries.
type EntryFilter struct {
	UserID    string
	ProjectID string
	TaskID    string
	From      *time.Time // inclusive lower bound on StartTime
	To        *time.Time // inclusive upper bound on StartTime
	Billable  *bool
	Limit     int // 0 means unbounded
	Offset    int
}

// EntryPage is one page of a listing plus the total match count.
type EntryPage struct {
	Entries []TimeEntry `json:"entries"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
}
