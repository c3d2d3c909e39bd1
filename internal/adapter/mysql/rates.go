package mysql

import (
	"context"
	"database/sql"

	"timetrack/internal/domain"
)

const rateColumns = `id, user_id, project_id, task_type_id, hourly_rate, currency, effective_from, effective_to, created_at`

func scanRate(s scanner) (domain.BillableRate, error) {
	var (
		r                       domain.BillableRate
		user, project, taskType sql.NullString
		effectiveTo             sql.NullTime
	)
	if err := s.Scan(&r.ID, &user, &project, &taskType, &r.HourlyRate, &r.Currency, &r.EffectiveFrom, &effectiveTo, &r.CreatedAt); err != nil {
		return r, err
	}
	r.UserID = strPtr(user)
	r.ProjectID = strPtr(project)
	r.TaskTypeID = strPtr(taskType)
	r.EffectiveFrom = r.EffectiveFrom.UTC()
	r.EffectiveTo = timePtr(effectiveTo)
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (c *Client) CreateRate(ctx context.Context, r domain.BillableRate) error {
	const q = `
INSERT INTO billable_rates
  (` + rateColumns + `)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err := c.db.ExecContext(ctx, q,
		r.ID, nullString(r.UserID), nullString(r.ProjectID), nullString(r.TaskTypeID),
		r.HourlyRate, r.Currency, r.EffectiveFrom.UTC(), nullTime(r.EffectiveTo), r.CreatedAt.UTC(),
	)
	return err
}

func (c *Client) ListRates(ctx context.Context) ([]domain.BillableRate, error) {
	return c.queryRates(ctx, `SELECT `+rateColumns+` FROM billable_rates ORDER BY effective_from DESC, id`)
}

// CandidateRates filters on the validity window and scope in SQL; the
// precedence ranking is applied by the caller.
func (c *Client) CandidateRates(ctx context.Context, q domain.RateQuery) ([]domain.BillableRate, error) {
	const sel = `SELECT ` + rateColumns + ` FROM billable_rates
WHERE effective_from <= ?
  AND (effective_to IS NULL OR effective_to > ?)
  AND (user_id IS NULL OR user_id = ?)
  AND (project_id IS NULL OR project_id = ?)
  AND (task_type_id IS NULL OR task_type_id = ?)`
	at := q.At.UTC()
	return c.queryRates(ctx, sel, at, at, q.UserID, q.ProjectID, q.TaskTypeID)
}

func (c *Client) queryRates(ctx context.Context, q string, args ...any) ([]domain.BillableRate, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.BillableRate
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
