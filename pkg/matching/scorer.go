package matching

import (
	"context"
	"time"

	"github.com/diogoqz/api-consulta-hotmart/pkg/classifier"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

// Clock returns the instant used by the recency bonus
type Clock func() time.Time

// SystemClock reads the wall clock
func SystemClock() time.Time {
	return time.Now()
}

// FixedClock always returns t
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// CandidateSource loads the records a search runs over
type CandidateSource interface {
	ListCandidates(ctx context.Context) ([]models.CustomerRecord, error)
}

// Scorer scores every candidate it can reach for a query and keeps those with score >= minScore.
// Output order is unspecified; ranking.Ranker.Order sorts it.
type Scorer interface {
	Score(ctx context.Context, q classifier.Query, minScore int) ([]models.ScoredCandidate, error)
}

// MemoryScorer evaluates candidates in process
type MemoryScorer struct {
	source  CandidateSource
	builder *ViewBuilder
	clock   Clock
}

// NewMemoryScorer creates a scorer over the records returned by source
func NewMemoryScorer(source CandidateSource, builder *ViewBuilder, clock Clock) *MemoryScorer {
	if builder == nil {
		builder = NewViewBuilder(nil, nil)
	}
	if clock == nil {
		clock = SystemClock
	}
	return &MemoryScorer{source: source, builder: builder, clock: clock}
}

// Score loads the candidates and scores them
func (s *MemoryScorer) Score(ctx context.Context, q classifier.Query, minScore int) ([]models.ScoredCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.MemoryScorer.Score")
	defer span.End()

	if q.IsEmpty() {
		return []models.ScoredCandidate{}, nil
	}

	records, err := s.source.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}

	return ScoreAll(records, s.builder, q, s.clock(), minScore), nil
}

// ScoreAll scores records against q and keeps those reaching minScore, preserving input order
func ScoreAll(records []models.CustomerRecord, builder *ViewBuilder, q classifier.Query, now time.Time, minScore int) []models.ScoredCandidate {
	out := make([]models.ScoredCandidate, 0, len(records))
	if q.IsEmpty() {
		return out
	}
	for _, record := range records {
		view := builder.Build(record)
		score, reasons := ScoreRecord(view, q, now)
		if score < minScore {
			continue
		}
		out = append(out, models.NewScoredCandidate(record, view, score, reasons))
	}
	return out
}

// StaticSource serves a fixed snapshot of records
type StaticSource []models.CustomerRecord

// ListCandidates returns a copy of the snapshot
func (s StaticSource) ListCandidates(_ context.Context) ([]models.CustomerRecord, error) {
	out := make([]models.CustomerRecord, len(s))
	copy(out, s)
	return out, nil
}
