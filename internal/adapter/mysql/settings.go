package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"timetrack/internal/domain"
)

func (c *Client) GetSettings(ctx context.Context, userID string) (*domain.Settings, error) {
	const q = `
SELECT user_id, default_billable_rate, currency, rounding_interval,
  auto_stop_after_inactivity, reminder_interval, working_hours
FROM time_tracking_settings WHERE user_id = ?`
	var (
		s     domain.Settings
		rate  sql.NullFloat64
		hours []byte
	)
	err := c.db.QueryRowContext(ctx, q, userID).Scan(
		&s.UserID, &rate, &s.Currency, &s.RoundingInterval,
		&s.AutoStopTimerAfterInactivity, &s.ReminderInterval, &hours,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.DefaultBillableRate = floatPtr(rate)
	if err := json.Unmarshal(hours, &s.WorkingHours); err != nil {
		return nil, fmt.Errorf("decoding working hours of %s: %w", userID, err)
	}
	return &s, nil
}

// UpsertSettings inserts or replaces the settings row for s.UserID.
func (c *Client) UpsertSettings(ctx context.Context, s domain.Settings) error {
	hours, err := json.Marshal(s.WorkingHours)
	if err != nil {
		return err
	}
	// Use ON DUPLICATE KEY UPDATE to perform upserts.
	const q = `
INSERT INTO time_tracking_settings
  (user_id, default_billable_rate, currency, rounding_interval, auto_stop_after_inactivity,
   reminder_interval, working_hours, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  default_billable_rate=VALUES(default_billable_rate),
  currency=VALUES(currency),
  rounding_interval=VALUES(rounding_interval),
  auto_stop_after_inactivity=VALUES(auto_stop_after_inactivity),
  reminder_interval=VALUES(reminder_interval),
  working_hours=VALUES(working_hours),
  updated_at=VALUES(updated_at);
`
	_, err = c.db.ExecContext(ctx, q,
		s.UserID, nullFloat(s.DefaultBillableRate), s.Currency, s.RoundingInterval,
		s.AutoStopTimerAfterInactivity, s.ReminderInterval, string(hours), time.Now().UTC(),
	)
	return err
}
