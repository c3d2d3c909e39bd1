package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"timetrack/internal/domain"
	"timetrack/internal/ports"
	"timetrack/internal/report"
)

// SummaryUseCase aggregates a user's entries for reports and invoicing.
type SummaryUseCase struct {
	Log      *slog.Logger
	Entries  ports.EntryStore
	Settings *SettingsUseCase
}

// Summary groups the user's entries that start within [StartDate, EndDate].
// No matching entries yields an empty slice, not an error.
func (uc *SummaryUseCase) Summary(ctx context.Context, userID string, q domain.SummaryQuery) ([]domain.Summary, error) {
	if uc.Entries == nil || uc.Settings == nil {
		return nil, errors.New("summary usecase not initialized: missing dependencies")
	}
	if !domain.ValidGroupBy(q.GroupBy) {
		return nil, fmt.Errorf("%w: groupBy must be one of day, week, month, project, task", domain.ErrValidation)
	}
	if q.StartDate.IsZero() || q.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: startDate and endDate are required", domain.ErrValidation)
	}
	if q.EndDate.Before(q.StartDate) {
		return nil, fmt.Errorf("%w: endDate is before startDate", domain.ErrValidation)
	}
	from, to := q.StartDate.UTC(), q.EndDate.UTC()
	entries, _, err := uc.Entries.ListEntries(ctx, domain.EntryFilter{
		UserID:    userID,
		ProjectID: q.ProjectID,
		TaskID:    q.TaskID,
		From:      &from,
		To:        &to,
	})
	if err != nil {
		return nil, err
	}
	settings, err := uc.Settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := report.Summarize(entries, q.GroupBy, from, to, settings.Currency)
	uc.Log.Debug("summary computed", slog.String("user", userID), slog.String("groupBy", q.GroupBy), slog.Int("entries", len(entries)), slog.Int("groups", len(out)))
	return out, nil
}
