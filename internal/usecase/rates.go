package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"timetrack/internal/billing"
	"timetrack/internal/domain"
	"timetrack/internal/ports"
)

// RateUseCase resolves and administers billable rates.
type RateUseCase struct {
	Log   *slog.Logger
	Store ports.RateStore
	// Currency is applied to new rates that do not name one.
	Currency string
	Now      func() time.Time
}

func (uc *RateUseCase) now() time.Time {
	if uc.Now != nil {
		return uc.Now().UTC()
	}
	return time.Now().UTC()
}

// Resolve returns the most specific rate for the work at the current time,
// or nil when no rate applies. Lookup failures are logged and treated as no
// rate so that tracking time never fails on pricing.
func (uc *RateUseCase) Resolve(ctx context.Context, userID, projectID, taskTypeID string) *domain.BillableRate {
	q := domain.RateQuery{UserID: userID, ProjectID: projectID, TaskTypeID: taskTypeID, At: uc.now()}
	cands, err := uc.Store.CandidateRates(ctx, q)
	if err != nil {
		uc.Log.Warn("rate lookup failed", slog.String("user", userID), slog.String("project", projectID), slog.String("error", err.Error()))
		return nil
	}
	r := billing.ResolveRate(cands, q)
	if r != nil {
		uc.Log.Debug("rate resolved", slog.String("rate", r.ID), slog.Int("tier", int(billing.TierOf(*r))))
	}
	return r
}

// List returns every rate. Only billing managers may read them.
func (uc *RateUseCase) List(ctx context.Context, role string) ([]domain.BillableRate, error) {
	if !domain.CanManageBilling(role) {
		return nil, fmt.Errorf("%w: rates require admin or manager role", domain.ErrForbidden)
	}
	return uc.Store.ListRates(ctx)
}

// Create validates and stores a new rate.
func (uc *RateUseCase) Create(ctx context.Context, role string, r domain.BillableRate) (domain.BillableRate, error) {
	if !domain.CanManageBilling(role) {
		return domain.BillableRate{}, fmt.Errorf("%w: rates require admin or manager role", domain.ErrForbidden)
	}
	now := uc.now()
	if r.HourlyRate < 0 {
		return domain.BillableRate{}, fmt.Errorf("%w: hourlyRate must not be negative", domain.ErrValidation)
	}
	r.HourlyRate = billing.RoundCents(r.HourlyRate)
	if r.Currency == "" {
		r.Currency = uc.Currency
	}
	if r.Currency == "" {
		r.Currency = domain.DefaultCurrency
	}
	if err := validateCurrency(r.Currency); err != nil {
		return domain.BillableRate{}, err
	}
	if r.EffectiveFrom.IsZero() {
		r.EffectiveFrom = now
	}
	if r.EffectiveTo != nil && !r.EffectiveTo.After(r.EffectiveFrom) {
		return domain.BillableRate{}, fmt.Errorf("%w: effectiveTo must be after effectiveFrom", domain.ErrValidation)
	}
	for _, p := range []**string{&r.UserID, &r.ProjectID, &r.TaskTypeID} {
		if *p != nil && **p == "" {
			*p = nil
		}
	}
	r.ID = uuid.NewString()
	r.CreatedAt = now
	if err := uc.Store.CreateRate(ctx, r); err != nil {
		return domain.BillableRate{}, err
	}
	uc.Log.Info("rate created", slog.String("rate", r.ID), slog.Int("tier", int(billing.TierOf(r))))
	return r, nil
}
