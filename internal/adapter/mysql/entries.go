package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"timetrack/internal/domain"
)

// runningKey is the unique index that allows one running timer per user.
const runningKey = "uq_time_entries_running"

const entryColumns = `id, task_id, project_id, user_id, description, start_time, end_time,
  duration_sec, billable, billable_rate, invoice_id, tags, source, created_at, updated_at`

func scanEntry(s scanner) (*domain.TimeEntry, error) {
	var (
		e       domain.TimeEntry
		end     sql.NullTime
		rate    sql.NullFloat64
		invoice sql.NullString
		tags    []byte
	)
	if err := s.Scan(
		&e.ID, &e.TaskID, &e.ProjectID, &e.UserID, &e.Description, &e.StartTime, &end,
		&e.Duration, &e.Billable, &rate, &invoice, &tags, &e.Source, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.StartTime = e.StartTime.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	e.EndTime = timePtr(end)
	e.BillableRate = floatPtr(rate)
	e.InvoiceID = strPtr(invoice)
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &e.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags of %s: %w", e.ID, err)
		}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return &e, nil
}

func tagsJSON(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	// Marshal tags as JSON; stored in a JSON column.
	b, _ := json.Marshal(tags)
	return string(b)
}

// CreateEntry inserts e. A second running timer for the same user violates
// the running-timer unique index and is reported as domain.ErrConflict.
func (c *Client) CreateEntry(ctx context.Context, e domain.TimeEntry) error {
	const q = `
INSERT INTO time_entries
  (` + entryColumns + `)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err := c.db.ExecContext(ctx, q,
		e.ID, e.TaskID, e.ProjectID, e.UserID, e.Description, e.StartTime.UTC(), nullTime(e.EndTime),
		e.Duration, e.Billable, nullFloat(e.BillableRate), nullString(e.InvoiceID), tagsJSON(e.Tags),
		e.Source, e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	if isDuplicate(err, runningKey) {
		return fmt.Errorf("%w: active timer already running", domain.ErrConflict)
	}
	if isDuplicate(err, "") {
		return fmt.Errorf("%w: entry %s already exists", domain.ErrConflict, e.ID)
	}
	return err
}

func (c *Client) GetEntry(ctx context.Context, id string) (*domain.TimeEntry, error) {
	e, err := scanEntry(c.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (c *Client) GetRunningEntry(ctx context.Context, userID string) (*domain.TimeEntry, error) {
	e, err := scanEntry(c.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE running_user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// lockEntry reads one row with FOR UPDATE inside tx.
func lockEntry(ctx context.Context, tx *sql.Tx, id string) (*domain.TimeEntry, error) {
	e, err := scanEntry(tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: time entry %s", domain.ErrNotFound, id)
	}
	return e, err
}

// UpdateEntry locks the row, applies mutate and writes the result back in the
// same transaction.
func (c *Client) UpdateEntry(ctx context.Context, id string, mutate func(*domain.TimeEntry) error) (*domain.TimeEntry, error) {
	var out *domain.TimeEntry
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		e, err := lockEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(e); err != nil {
			return err
		}
		const q = `
UPDATE time_entries SET
  task_id=?, project_id=?, description=?, start_time=?, end_time=?, duration_sec=?,
  billable=?, billable_rate=?, invoice_id=?, tags=?, updated_at=?
WHERE id=?;
`
		if _, err := tx.ExecContext(ctx, q,
			e.TaskID, e.ProjectID, e.Description, e.StartTime.UTC(), nullTime(e.EndTime), e.Duration,
			e.Billable, nullFloat(e.BillableRate), nullString(e.InvoiceID), tagsJSON(e.Tags), e.UpdatedAt.UTC(),
			e.ID,
		); err != nil {
			if isDuplicate(err, runningKey) {
				return fmt.Errorf("%w: active timer already running", domain.ErrConflict)
			}
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteEntry locks the row, runs check and deletes it.
func (c *Client) DeleteEntry(ctx context.Context, id string, check func(domain.TimeEntry) error) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		e, err := lockEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := check(*e); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
		return err
	})
}

// ListEntries returns matching entries newest first, plus the unpaged count.
func (c *Client) ListEntries(ctx context.Context, f domain.EntryFilter) ([]domain.TimeEntry, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		where = append(where, cond)
		args = append(args, v)
	}
	if f.UserID != "" {
		add("user_id = ?", f.UserID)
	}
	if f.ProjectID != "" {
		add("project_id = ?", f.ProjectID)
	}
	if f.TaskID != "" {
		add("task_id = ?", f.TaskID)
	}
	if f.From != nil {
		add("start_time >= ?", f.From.UTC())
	}
	if f.To != nil {
		add("start_time <= ?", f.To.UTC())
	}
	if f.Billable != nil {
		add("billable = ?", *f.Billable)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM time_entries`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + entryColumns + ` FROM time_entries` + cond + ` ORDER BY start_time DESC, id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []domain.TimeEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// AttachInvoice locks every entry, checks it and sets invoice_id, all in one
// transaction.
func (c *Client) AttachInvoice(ctx context.Context, invoiceID string, ids []string, check func(domain.TimeEntry) error) error {
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			e, err := lockEntry(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := check(*e); err != nil {
				return err
			}
		}
		stmt, err := tx.PrepareContext(ctx, `UPDATE time_entries SET invoice_id = ? WHERE id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, invoiceID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.log.Info("mysql invoice attached", slog.String("invoice", invoiceID), slog.Int("count", len(ids)))
	return nil
}
