package domain

// Task is the slice of the task/project directory this service needs.
type Task struct {
	ID         string `json:"id"`
	ProjectID  string `json:"projectId"`
	TaskTypeID string `json:"taskTypeId,omitempty"` // empty when untyped
}
