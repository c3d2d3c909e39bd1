package mysql

import (
	"context"
	"database/sql"
	"errors"

	"timetrack/internal/domain"
)

// GetTask reads the task directory table shared with the practice application.
func (c *Client) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	var (
		t        domain.Task
		taskType sql.NullString
	)
	err := c.db.QueryRowContext(ctx, `SELECT id, project_id, task_type_id FROM tasks WHERE id = ?`, taskID).
		Scan(&t.ID, &t.ProjectID, &taskType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.TaskTypeID = taskType.String
	return &t, nil
}
