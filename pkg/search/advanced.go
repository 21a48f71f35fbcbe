package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/normalizers"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

// Points granted by each advanced search criterion
const (
	CriterionName   = 30
	CriterionEmail  = 40
	CriterionPhone  = 35
	CriterionStatus = 20
	CriterionCity   = 15
	CriterionState  = 10
)

// AdvancedSearch returns the records matching every supplied criterion whose summed points
// reach the minimum relevance. Results are ordered by points, highest first.
func (e *Engine) AdvancedSearch(ctx context.Context, criteria models.Criteria) ([]models.AdvancedMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "search.Engine.AdvancedSearch")
	defer span.End()

	log := e.log.WithContext(ctx)

	records, err := e.source.ListCandidates(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load advanced search candidates")
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	minRelevance := e.cfg.MinRelevance
	if criteria.MinRelevance != nil {
		minRelevance = *criteria.MinRelevance
	}

	matcher := newCriteriaMatcher(criteria)
	out := make([]models.AdvancedMatch, 0)
	for _, r := range records {
		score, ok := matcher.match(r, e)
		if ok && score >= minRelevance {
			out = append(out, models.AdvancedMatch{Record: r, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	log.WithFields(map[string]any{
		"candidates":    len(records),
		"matches":       len(out),
		"min_relevance": minRelevance,
	}).Debug("Advanced search completed")

	return out, nil
}

// criteriaMatcher holds the criteria in the form they are compared in
type criteriaMatcher struct {
	name, email, phone, status, city, state string
	hasName, hasEmail, hasPhone             bool
	hasStatus, hasCity, hasState            bool
}

func newCriteriaMatcher(c models.Criteria) criteriaMatcher {
	return criteriaMatcher{
		name:      normalizers.Text(c.Name),
		email:     normalizers.Text(c.Email),
		phone:     normalizers.Digits(c.Phone),
		status:    strings.ToLower(c.Status),
		city:      normalizers.Text(c.City),
		state:     normalizers.Text(c.State),
		hasName:   c.Name != "",
		hasEmail:  c.Email != "",
		hasPhone:  c.Phone != "",
		hasStatus: c.Status != "",
		hasCity:   c.City != "",
		hasState:  c.State != "",
	}
}

func (m criteriaMatcher) match(r models.CustomerRecord, e *Engine) (int, bool) {
	view := e.builder.Build(r)
	score := 0

	checks := []struct {
		present bool
		ok      func() bool
		points  int
	}{
		{m.hasName, func() bool { return strings.Contains(view.Name, m.name) }, CriterionName},
		{m.hasEmail, func() bool { return strings.Contains(view.Email, m.email) }, CriterionEmail},
		{m.hasPhone, func() bool { return strings.Contains(view.FullPhone, m.phone) }, CriterionPhone},
		{m.hasStatus, func() bool { return r.Status != "" && strings.Contains(strings.ToLower(r.Status), m.status) }, CriterionStatus},
		{m.hasCity, func() bool { return strings.Contains(view.City, m.city) }, CriterionCity},
		{m.hasState, func() bool { return strings.Contains(view.State, m.state) }, CriterionState},
	}

	for _, check := range checks {
		if !check.present {
			continue
		}
		if !check.ok() {
			return 0, false
		}
		score += check.points
	}

	return score, true
}
