// Package billing holds the pure pricing rules: rate precedence and duration rounding.
package billing

import (
	"sort"

	"timetrack/internal/domain"
)

// Tier is the specificity rank of a rate; lower is more specific.
type Tier int

const (
	TierUserProjectTaskType Tier = iota + 1
	TierUserProject
	TierUserTaskType
	TierProjectTaskType
	TierUser
	TierProject
	TierTaskType
	TierGlobal
)

type scope struct{ user, project, taskType bool }

// precedence is ordered most specific first.
var precedence = []struct {
	tier  Tier
	scope scope
}{
	{TierUserProjectTaskType, scope{true, true, true}},
	{TierUserProject, scope{true, true, false}},
	{TierUserTaskType, scope{true, false, true}},
	{TierProjectTaskType, scope{false, true, true}},
	{TierUser, scope{true, false, false}},
	{TierProject, scope{false, true, false}},
	{TierTaskType, scope{false, false, true}},
	{TierGlobal, scope{false, false, false}},
}

// TierOf returns the precedence tier implied by which scope fields r sets.
func TierOf(r domain.BillableRate) Tier {
	s := scope{r.UserID != nil, r.ProjectID != nil, r.TaskTypeID != nil}
	for _, p := range precedence {
		if p.scope == s {
			return p.tier
		}
	}
	return TierGlobal
}

// ResolveRate picks the most specific rate applicable to q from candidates.
// Candidates that are inactive at q.At or do not match q are ignored, so the
// caller may pass a superset. Ties inside a tier go to the latest
// EffectiveFrom, then the latest CreatedAt, then the greatest ID.
// It returns nil when nothing applies.
func ResolveRate(candidates []domain.BillableRate, q domain.RateQuery) *domain.BillableRate {
	var matched []domain.BillableRate
	for _, r := range candidates {
		if r.ActiveAt(q.At) && r.Matches(q) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if ta, tb := TierOf(a), TierOf(b); ta != tb {
			return ta < tb
		}
		if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
			return a.EffectiveFrom.After(b.EffectiveFrom)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	best := matched[0]
	return &best
}
