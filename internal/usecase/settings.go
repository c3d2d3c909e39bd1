package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"timetrack/internal/billing"
	"timetrack/internal/domain"
	"timetrack/internal/ports"
)

// SettingsUseCase reads and updates per-user time tracking settings.
type SettingsUseCase struct {
	Log   *slog.Logger
	Store ports.SettingsStore
}

// Get returns the stored settings for userID, or the defaults when none are
// stored. Defaults are not persisted.
func (uc *SettingsUseCase) Get(ctx context.Context, userID string) (domain.Settings, error) {
	if uc.Store == nil {
		return domain.Settings{}, errors.New("settings usecase not initialized: missing store")
	}
	st, err := uc.Store.GetSettings(ctx, userID)
	if err != nil {
		return domain.Settings{}, err
	}
	if st == nil {
		return domain.DefaultSettings(userID), nil
	}
	if st.Currency == "" {
		st.Currency = domain.DefaultCurrency
	}
	return *st, nil
}

// Update merges u over the current settings and upserts the result.
// Any userId in the payload is replaced by userID.
func (uc *SettingsUseCase) Update(ctx context.Context, userID string, u domain.SettingsUpdate) (domain.Settings, error) {
	cur, err := uc.Get(ctx, userID)
	if err != nil {
		return domain.Settings{}, err
	}
	next := u.Apply(cur)
	next.UserID = userID
	next.DefaultBillableRate = billing.RoundRate(next.DefaultBillableRate)
	if err := validateSettings(next); err != nil {
		return domain.Settings{}, err
	}
	if err := uc.Store.UpsertSettings(ctx, next); err != nil {
		return domain.Settings{}, err
	}
	uc.Log.Info("settings updated", slog.String("user", userID), slog.Int("rounding", next.RoundingInterval))
	return next, nil
}

func validateSettings(s domain.Settings) error {
	if s.RoundingInterval < 0 || s.AutoStopTimerAfterInactivity < 0 || s.ReminderInterval < 0 {
		return fmt.Errorf("%w: intervals must not be negative", domain.ErrValidation)
	}
	if s.DefaultBillableRate != nil && *s.DefaultBillableRate < 0 {
		return fmt.Errorf("%w: defaultBillableRate must not be negative", domain.ErrValidation)
	}
	if err := validateCurrency(s.Currency); err != nil {
		return err
	}
	for day, wd := range s.WorkingHours {
		if day < 0 || day > 6 {
			return fmt.Errorf("%w: workingHours key %d is not a weekday (0-6)", domain.ErrValidation, day)
		}
		start, err := time.Parse("15:04", wd.Start)
		if err != nil {
			return fmt.Errorf("%w: workingHours[%d].start %q is not HH:MM", domain.ErrValidation, day, wd.Start)
		}
		end, err := time.Parse("15:04", wd.End)
		if err != nil {
			return fmt.Errorf("%w: workingHours[%d].end %q is not HH:MM", domain.ErrValidation, day, wd.End)
		}
		if !end.After(start) {
			return fmt.Errorf("%w: workingHours[%d] ends before it starts", domain.ErrValidation, day)
		}
	}
	return nil
}

func validateCurrency(c string) error {
	if len(c) != 3 {
		return fmt.Errorf("%w: currency %q must be a 3-letter code", domain.ErrValidation, c)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: currency %q must be upper-case letters", domain.ErrValidation, c)
		}
	}
	return nil
}
