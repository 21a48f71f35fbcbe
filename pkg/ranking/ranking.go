// Package ranking filters, orders and truncates scored candidates
package ranking

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/diogoqz/api-consulta-hotmart/pkg/classifier"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

const (
	DefaultMaxResults = 50
	DefaultMinScore   = 10
)

// Options controls ranking
type Options struct {
	MaxResults int           `json:"max_results" yaml:"max_results" validate:"min=0"`
	MinScore   int           `json:"min_score" yaml:"min_score" validate:"min=0"`
	SortBy     models.SortBy `json:"sort_by" yaml:"sort_by" validate:"omitempty,oneof=relevance name recent"`
}

// DefaultOptions returns 50 results, minimum score 10, sorted by relevance
func DefaultOptions() Options {
	return Options{
		MaxResults: DefaultMaxResults,
		MinScore:   DefaultMinScore,
		SortBy:     models.SortByRelevance,
	}
}

// Ranker applies scoring, filtering and ordering to candidate sets
type Ranker struct {
	builder *matching.ViewBuilder
	clock   matching.Clock
	locale  language.Tag
}

// Option configures a Ranker
type Option func(*Ranker)

// WithClock sets the clock used by the recency bonus
func WithClock(clock matching.Clock) Option {
	return func(r *Ranker) { r.clock = clock }
}

// WithLocale sets the collation locale used for name ordering
func WithLocale(tag language.Tag) Option {
	return func(r *Ranker) { r.locale = tag }
}

// NewRanker creates a Ranker. Names sort with Brazilian Portuguese collation unless WithLocale is given.
func NewRanker(builder *matching.ViewBuilder, opts ...Option) *Ranker {
	if builder == nil {
		builder = matching.NewViewBuilder(nil, nil)
	}
	r := &Ranker{
		builder: builder,
		clock:   matching.SystemClock,
		locale:  language.BrazilianPortuguese,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores candidates against q and returns the ordered, truncated result.
// The output depends only on its arguments and the clock.
func (r *Ranker) Rank(candidates []models.CustomerRecord, q classifier.Query, opts Options) []models.ScoredCandidate {
	if q.IsEmpty() || opts.MaxResults <= 0 {
		return []models.ScoredCandidate{}
	}
	scored := matching.ScoreAll(candidates, r.builder, q, r.clock(), opts.MinScore)
	return r.Order(scored, opts)
}

// Order sorts already scored candidates, drops those under MinScore and truncates to MaxResults.
// The input slice is not modified.
func (r *Ranker) Order(scored []models.ScoredCandidate, opts Options) []models.ScoredCandidate {
	if opts.MaxResults <= 0 {
		return []models.ScoredCandidate{}
	}

	out := make([]models.ScoredCandidate, 0, len(scored))
	for _, c := range scored {
		if c.Score >= opts.MinScore {
			out = append(out, c)
		}
	}

	// one collator per call: collate.Collator keeps internal buffers
	col := collate.New(r.locale)
	byName := func(a, b models.ScoredCandidate) int {
		return col.CompareString(a.Record.Name, b.Record.Name)
	}

	var less func(a, b models.ScoredCandidate) bool
	switch opts.SortBy {
	case models.SortByName:
		less = func(a, b models.ScoredCandidate) bool {
			if c := byName(a, b); c != 0 {
				return c < 0
			}
			return identity(a) < identity(b)
		}
	case models.SortByRecent:
		less = func(a, b models.ScoredCandidate) bool {
			ta, tb := activityUnix(a.View.LastActivity), activityUnix(b.View.LastActivity)
			if ta != tb {
				return ta > tb
			}
			return identity(a) < identity(b)
		}
	default:
		less = func(a, b models.ScoredCandidate) bool {
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			if a.View.IsActive != b.View.IsActive {
				return a.View.IsActive
			}
			if c := byName(a, b); c != 0 {
				return c < 0
			}
			return identity(a) < identity(b)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })

	if len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out
}

// identity is the final tie-break so equal candidates keep a fixed order
func identity(c models.ScoredCandidate) string {
	return string(c.Record.Platform) + "\x00" + c.Record.Key()
}

// activityUnix treats a missing date as the earliest possible instant
func activityUnix(t *time.Time) int64 {
	if t == nil {
		return minUnix
	}
	return t.Unix()
}

const minUnix = -1 << 63
