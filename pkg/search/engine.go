// Package search is the customer lookup engine: classify, score, rank and group.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/diogoqz/api-consulta-hotmart/pkg/classifier"
	"github.com/diogoqz/api-consulta-hotmart/pkg/grouping"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/metrics"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/ranking"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

// ErrDataUnavailable is returned when candidates could not be loaded.
// No partial result accompanies it.
var ErrDataUnavailable = errors.New("customer data unavailable")

// Config contains configuration for the search engine.
type Config struct {
	Defaults            ranking.Options // Options used by SearchWithSuggestions
	GroupByClient       bool            // Group results of SearchWithSuggestions (default: true)
	SuggestionThreshold int             // Suggest names below this many results (default: 5)
	SoundexSuggestions  int             // Maximum phonetic suggestions (default: 5)
	PartialSuggestions  int             // Maximum substring suggestions (default: 3)
	MinSuggestions      int             // Add substring suggestions below this many (default: 3)
	HasMoreThreshold    int             // Result count from which more results may exist (default: 50)
	MinRelevance        int             // Default minimum score of advanced search (default: 20)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Defaults:            ranking.DefaultOptions(),
		GroupByClient:       true,
		SuggestionThreshold: 5,
		SoundexSuggestions:  5,
		PartialSuggestions:  3,
		MinSuggestions:      3,
		HasMoreThreshold:    50,
		MinRelevance:        20,
	}
}

// Options are the per call search options
type Options struct {
	ranking.Options
	GroupByClient bool `json:"group_by_client"`
}

// Result is the outcome of one search. Summary is nil for blank queries.
type Result struct {
	Query      string                   `json:"query"`
	Kind       classifier.Kind          `json:"kind"`
	Candidates []models.ScoredCandidate `json:"results"`
	Groups     []models.CustomerGroup   `json:"groups,omitempty"`
	Summary    *models.SearchSummary    `json:"summary"`
}

// Total is the number of entries the caller displays: groups when grouped, candidates otherwise
func (r *Result) Total(grouped bool) int {
	if grouped {
		return len(r.Groups)
	}
	return len(r.Candidates)
}

// Engine runs searches over a candidate source. It keeps no state between calls.
type Engine struct {
	log     ectologger.Logger
	source  matching.CandidateSource
	scorer  matching.Scorer
	builder *matching.ViewBuilder
	ranker  *ranking.Ranker
	grouper *grouping.Grouper
	clock   matching.Clock
	cfg     Config
}

// Option configures an Engine
type Option func(*Engine)

// WithScorer replaces the in-memory scorer, typically with the store pushdown adapter
func WithScorer(s matching.Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithViewBuilder sets the active policy and phone strategy used to build views
func WithViewBuilder(b *matching.ViewBuilder) Option {
	return func(e *Engine) { e.builder = b }
}

// WithGrouper sets the grouper and therefore the authoritative platform policy
func WithGrouper(g *grouping.Grouper) Option {
	return func(e *Engine) { e.grouper = g }
}

// WithClock sets the clock of the recency bonus
func WithClock(c matching.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithConfig replaces the default configuration
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// NewEngine creates a search engine reading candidates from source.
func NewEngine(log ectologger.Logger, source matching.CandidateSource, opts ...Option) *Engine {
	e := &Engine{
		log:    log,
		source: source,
		clock:  matching.SystemClock,
		cfg:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.builder == nil {
		e.builder = matching.NewViewBuilder(nil, nil)
	}
	if e.scorer == nil {
		e.scorer = matching.NewMemoryScorer(source, e.builder, e.clock)
	}
	if e.grouper == nil {
		e.grouper = grouping.NewGrouper(grouping.Policy{}, e.builder.Phones())
	}
	e.ranker = ranking.NewRanker(e.builder, ranking.WithClock(e.clock))

	return e
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Search classifies raw, scores every candidate, ranks them and optionally groups them by customer.
// A blank query returns an empty result without touching the candidate source.
func (e *Engine) Search(ctx context.Context, raw string, opts Options) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "search.Engine.Search")
	defer span.End()

	start := time.Now()
	q := classifier.Classify(raw)

	log := e.log.WithContext(ctx).WithFields(map[string]any{
		"query_kind":  q.Kind,
		"max_results": opts.MaxResults,
		"min_score":   opts.MinScore,
		"sort_by":     opts.SortBy,
		"grouped":     opts.GroupByClient,
	})

	result := &Result{
		Query:      raw,
		Kind:       q.Kind,
		Candidates: []models.ScoredCandidate{},
	}
	if opts.GroupByClient {
		result.Groups = []models.CustomerGroup{}
	}

	if q.IsEmpty() {
		log.Debug("Blank query, returning empty result")
		return result, nil
	}

	scored, err := e.scorer.Score(ctx, q, opts.MinScore)
	if err != nil {
		metrics.RecordSearchFailure()
		log.WithError(err).Error("Failed to load search candidates")
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	result.Candidates = e.ranker.Order(scored, opts.Options)
	if opts.GroupByClient {
		result.Groups = e.grouper.Group(result.Candidates)
	}
	result.Summary = Summarize(raw, result.Candidates, e.clock())

	mode := "flat"
	if opts.GroupByClient {
		mode = "grouped"
	}
	metrics.RecordSearch(string(q.Kind), mode, len(result.Candidates), time.Since(start).Seconds())

	log.WithFields(map[string]any{
		"scored":  len(scored),
		"results": len(result.Candidates),
		"groups":  len(result.Groups),
	}).Debug("Search completed")

	return result, nil
}

// Summarize builds the summary of a ranked result.
// The most frequent primary reason wins; ties go to the one ranked first.
func Summarize(raw string, ranked []models.ScoredCandidate, now time.Time) *models.SearchSummary {
	if len(ranked) == 0 {
		return &models.SearchSummary{ID: uuid.NewString(), Query: raw, SearchedAt: now}
	}

	total := 0
	high := 0
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, c := range ranked {
		total += c.Score
		if c.Score >= matching.HighConfidenceScore {
			high++
		}
		if _, ok := counts[c.PrimaryReason]; !ok {
			order = append(order, c.PrimaryReason)
		}
		counts[c.PrimaryReason]++
	}

	top := ""
	for _, reason := range order {
		if top == "" || counts[reason] > counts[top] {
			top = reason
		}
	}

	return &models.SearchSummary{
		ID:                uuid.NewString(),
		Query:             raw,
		TotalFound:        len(ranked),
		AvgRelevanceScore: roundHalfUp(float64(total) / float64(len(ranked))),
		TopMatchReason:    top,
		HighConfidence:    high,
		SearchedAt:        now,
	}
}

func roundHalfUp(x float64) int {
	return int(x + 0.5)
}
