// Package grouping collapses ranked transactions into customer level groups
package grouping

import (
	"sort"
	"strings"

	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/normalizers"
)

// PlatformPriority defines how trusted a platform is for representative status and product
type PlatformPriority struct {
	Platform models.Platform `json:"platform" yaml:"platform"`
	Priority int             `json:"priority" yaml:"priority"` // Higher = more trusted
}

// Policy configures grouping
type Policy struct {
	// Priorities lists the authoritative platforms. When a customer has records from
	// several platforms, the highest priority one supplies status and product.
	Priorities []PlatformPriority `json:"priorities" yaml:"priorities"`
}

func (p Policy) priorityMap() map[models.Platform]int {
	out := make(map[models.Platform]int, len(p.Priorities))
	for _, pp := range p.Priorities {
		out[pp.Platform] = pp.Priority
	}
	return out
}

// Grouper builds CustomerGroups. It keeps no state between calls.
type Grouper struct {
	priorities map[models.Platform]int
	phones     normalizers.PhoneStrategy
}

// NewGrouper creates a Grouper. A nil phone strategy disables phone formatting.
func NewGrouper(policy Policy, phones normalizers.PhoneStrategy) *Grouper {
	return &Grouper{
		priorities: policy.priorityMap(),
		phones:     phones,
	}
}

// ClientKey derives the identity key of a candidate: email, then full phone, then normalized name
func ClientKey(c models.ScoredCandidate) (string, models.IdentityKind) {
	if email := c.View.EmailLower; strings.Contains(email, "@") {
		return "email:" + email, models.IdentityEmail
	}
	if len(c.View.FullPhone) >= 10 {
		return "phone:" + c.View.FullPhone, models.IdentityPhone
	}
	return "name:" + c.View.Name, models.IdentityName
}

type groupState struct {
	group     *models.CustomerGroup
	seen      map[string]bool
	best      map[models.Platform]models.ScoredCandidate
	platforms []models.Platform
}

// Group merges ranked candidates into customer groups ordered by representative score, highest first.
// Candidates are read in order; the input is not modified.
func (g *Grouper) Group(ranked []models.ScoredCandidate) []models.CustomerGroup {
	states := make(map[string]*groupState)
	order := make([]string, 0)

	for _, c := range ranked {
		key, kind := ClientKey(c)

		state, ok := states[key]
		if !ok {
			state = &groupState{
				group: &models.CustomerGroup{
					Key:           key,
					KeyKind:       kind,
					LowConfidence: kind == models.IdentityName,
					History:       []models.HistoryEntry{},
				},
				seen: make(map[string]bool),
				best: make(map[models.Platform]models.ScoredCandidate),
			}
			g.setRepresentative(state.group, c)
			states[key] = state
			order = append(order, key)
		}

		if _, tracked := state.best[c.Record.Platform]; !tracked {
			state.platforms = append(state.platforms, c.Record.Platform)
			state.best[c.Record.Platform] = c
		} else if c.Score > state.best[c.Record.Platform].Score {
			state.best[c.Record.Platform] = c
		}

		entryID := string(c.Record.Platform) + ":" + c.Record.Key()
		if !state.seen[entryID] {
			state.seen[entryID] = true
			state.group.History = append(state.group.History, historyEntry(c))
			state.group.TotalTransactions++
			state.group.TotalValue += c.Record.Value
			if c.View.IsActive {
				state.group.ActiveSubscriptions++
			}
		}

		if c.Score > state.group.Score {
			g.setRepresentative(state.group, c)
		}
	}

	groups := make([]models.CustomerGroup, 0, len(order))
	for _, key := range order {
		state := states[key]
		state.group.Platforms = state.platforms
		g.applyAuthority(state)
		groups = append(groups, *state.group)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Score > groups[j].Score
	})

	return groups
}

func (g *Grouper) setRepresentative(group *models.CustomerGroup, c models.ScoredCandidate) {
	r := c.Record
	group.Name = r.Name
	group.Email = r.Email
	group.AreaCode = r.AreaCode
	group.Phone = r.Phone
	if g.phones != nil {
		group.FormattedPhone = g.phones.Format(r.AreaCode, r.Phone)
	}
	group.City = r.City
	group.State = r.State
	group.Product = r.Product
	group.Status = r.Status
	group.Platform = r.Platform
	group.IsActive = c.View.IsActive
	group.Score = c.Score
	group.Reasons = c.Reasons
	group.PrimaryReason = c.PrimaryReason
}

// applyAuthority lets the most trusted platform of a multi-platform group supply status and product
func (g *Grouper) applyAuthority(state *groupState) {
	if len(state.platforms) < 2 || len(g.priorities) == 0 {
		return
	}

	var (
		authority models.Platform
		found     bool
		highest   int
	)
	for _, p := range state.platforms {
		priority, ok := g.priorities[p]
		if !ok {
			continue
		}
		if !found || priority > highest {
			authority, highest, found = p, priority, true
		}
	}
	if !found {
		return
	}

	c := state.best[authority]
	state.group.Status = c.Record.Status
	state.group.Product = c.Record.Product
	state.group.IsActive = c.View.IsActive
	state.group.Platform = authority
}

func historyEntry(c models.ScoredCandidate) models.HistoryEntry {
	r := c.Record
	return models.HistoryEntry{
		ID:                 r.Key(),
		TransactionID:      r.TransactionID,
		Platform:           r.Platform,
		Product:            r.Product,
		Plan:               r.Plan,
		Status:             r.Status,
		Value:              r.Value,
		PaymentMethod:      r.PaymentMethod,
		SignupDate:         r.SignupDate,
		CancellationDate:   r.CancellationDate,
		FreePeriod:         r.FreePeriod,
		FreePeriodDuration: r.FreePeriodDuration,
		IsActive:           c.View.IsActive,
	}
}
