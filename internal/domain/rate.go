package domain

import "time"

// DefaultCurrency is used when a rate or settings row does not name one.
const DefaultCurrency = "USD"

// BillableRate prices work for a scope. Nil scope fields apply to all values.
type BillableRate struct {
	ID            string     `json:"id"`
	UserID        *string    `json:"userId"`
	ProjectID     *string    `json:"projectId"`
	TaskTypeID    *string    `json:"taskTypeId"`
	HourlyRate    float64    `json:"hourlyRate"`
	Currency      string     `json:"currency"`
	EffectiveFrom time.Time  `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// ActiveAt reports whether t falls inside [EffectiveFrom, EffectiveTo).
func (r BillableRate) ActiveAt(t time.Time) bool {
	if t.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || t.Before(*r.EffectiveTo)
}

// RateQuery identifies the work being priced.
type RateQuery struct {
	UserID     string
	ProjectID  string
	TaskTypeID string // empty when the task has no type
	At         time.Time
}

// Matches reports whether every non-nil scope field of r equals the queried value.
func (r BillableRate) Matches(q RateQuery) bool {
	if r.UserID != nil && *r.UserID != q.UserID {
		return false
	}
	if r.ProjectID != nil && *r.ProjectID != q.ProjectID {
		return false
	}
	if r.TaskTypeID != nil && (q.TaskTypeID == "" || *r.TaskTypeID != q.TaskTypeID) {
		return false
	}
	return true
}

// Roles allowed to administer rates and attach invoices.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// CanManageBilling reports whether role may administer rates and invoices.
func CanManageBilling(role string) bool {
	return role == RoleAdmin || role == RoleManager
}
