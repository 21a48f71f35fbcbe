package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type failingSource struct{}

func (failingSource) ListCandidates(_ context.Context) ([]models.CustomerRecord, error) {
	return nil, errors.New("connection refused")
}

func newTestEngine(records []models.CustomerRecord) *Engine {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewEngine(logger, matching.StaticSource(records), WithClock(matching.FixedClock(now)))
}

func flatOptions() Options {
	return Options{Options: DefaultConfig().Defaults}
}

func TestSearchBlankQuery(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	engine := NewEngine(logger, failingSource{})

	for _, raw := range []string{"", "   ", "\t"} {
		result, err := engine.Search(context.Background(), raw, flatOptions())
		require.NoError(t, err)
		assert.Empty(t, result.Candidates)
		assert.Nil(t, result.Summary)
	}
}

func TestSearchDataUnavailable(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	engine := NewEngine(logger, failingSource{})

	result, err := engine.Search(context.Background(), "maria", flatOptions())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = engine.AdvancedSearch(context.Background(), models.Criteria{Name: "maria"})
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = engine.Statistics(context.Background(), nil)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestSearchEmailExactRanksAboveContainment(t *testing.T) {
	engine := newTestEngine([]models.CustomerRecord{
		{Platform: models.PlatformHotmart, TransactionID: "2", Name: "Marcos", Email: "mjoao@email.com.br", Status: "Cancelada"},
		{Platform: models.PlatformHotmart, TransactionID: "1", Name: "João", Email: "joao@email.com", Status: "Ativo"},
		{Platform: models.PlatformHotmart, TransactionID: "3", Name: "Pedro", Email: "pedro@email.com", Status: "Cancelada"},
	})

	result, err := engine.Search(context.Background(), "joao@email.com", flatOptions())
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)

	assert.Equal(t, "João", result.Candidates[0].Record.Name)
	assert.Equal(t, 120, result.Candidates[0].Score)
	assert.Equal(t, matching.ReasonEmailExact, result.Candidates[0].PrimaryReason)

	assert.Equal(t, "Marcos", result.Candidates[1].Record.Name)
	assert.Equal(t, 95, result.Candidates[1].Score)
	assert.Equal(t, matching.ReasonEmailPartial, result.Candidates[1].PrimaryReason)

	require.NotNil(t, result.Summary)
	assert.Equal(t, 2, result.Summary.TotalFound)
	assert.Equal(t, 108, result.Summary.AvgRelevanceScore)
	assert.Equal(t, 2, result.Summary.HighConfidence)
	assert.Equal(t, now, result.Summary.SearchedAt)
}

func TestSearchGrouped(t *testing.T) {
	engine := newTestEngine([]models.CustomerRecord{
		{Platform: models.PlatformHotmart, TransactionID: "T1", Name: "Ana", Email: "ana@x.com", Product: "Curso", Value: 10, Status: "Ativo"},
		{Platform: models.PlatformHotmart, TransactionID: "T2", Name: "Ana", Email: "ana@x.com", Product: "Ebook", Value: 20, Status: "Cancelada"},
	})

	opts := flatOptions()
	opts.GroupByClient = true
	result, err := engine.Search(context.Background(), "ana@x.com", opts)
	require.NoError(t, err)

	assert.Len(t, result.Candidates, 2)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, 2, result.Groups[0].TotalTransactions)
	assert.Len(t, result.Groups[0].History, 2)
	assert.Equal(t, 1, result.Total(true))
	assert.Equal(t, 2, result.Total(false))
}

func TestSearchDoesNotMutateSource(t *testing.T) {
	records := []models.CustomerRecord{
		{Platform: models.PlatformCakto, TransactionID: "1", Name: "Maria Silva", Email: "maria@x.com", Status: "paid"},
	}
	engine := newTestEngine(records)

	first, err := engine.Search(context.Background(), "maria", flatOptions())
	require.NoError(t, err)
	second, err := engine.Search(context.Background(), "maria", flatOptions())
	require.NoError(t, err)

	assert.Equal(t, first.Candidates, second.Candidates)
	assert.Equal(t, "Maria Silva", records[0].Name)
}

func TestSummarizeTopReasonTie(t *testing.T) {
	ranked := []models.ScoredCandidate{
		{Score: 100, PrimaryReason: "Name - word exact"},
		{Score: 81, PrimaryReason: "City"},
		{Score: 50, PrimaryReason: "City"},
		{Score: 10, PrimaryReason: "Name - word exact"},
	}

	summary := Summarize("q", ranked, now)
	assert.Equal(t, 4, summary.TotalFound)
	assert.Equal(t, 60, summary.AvgRelevanceScore)
	assert.Equal(t, "Name - word exact", summary.TopMatchReason)
	assert.Equal(t, 2, summary.HighConfidence)
	assert.NotEmpty(t, summary.ID)

	empty := Summarize("q", nil, now)
	assert.Equal(t, 0, empty.TotalFound)
	assert.Empty(t, empty.TopMatchReason)
}

func TestSearchWithSuggestions(t *testing.T) {
	engine := newTestEngine([]models.CustomerRecord{
		{TransactionID: "1", Name: "Maria", Status: "Cancelada"},
		{TransactionID: "2", Name: "Mara Lima", Status: "Cancelada"},
		{TransactionID: "3", Name: "Marcos", Status: "Cancelada"},
		{TransactionID: "4", Name: "Maria", Status: "Cancelada"},
		{TransactionID: "5", Name: "Pedro", Status: "Cancelada"},
	})

	result, err := engine.SearchWithSuggestions(context.Background(), "Marya")
	require.NoError(t, err)

	assert.Equal(t, 0, result.ResultCount)
	assert.False(t, result.HasMore)
	assert.Equal(t, []string{"Maria", "Mara Lima", "Marcos"}, result.Suggestions)
}

func TestSuggestCountsWithGivenOptions(t *testing.T) {
	engine := newTestEngine([]models.CustomerRecord{
		{TransactionID: "1", Name: "Maria", Email: "maria@x.com", Status: "Cancelada"},
		{TransactionID: "2", Name: "Maria", Email: "maria@x.com", Status: "Cancelada"},
		{TransactionID: "3", Name: "Pedro", Status: "Cancelada"},
	})
	ctx := context.Background()

	tests := []struct {
		grouped  bool
		expected int
	}{
		{grouped: false, expected: 2},
		{grouped: true, expected: 1},
	}
	for _, tt := range tests {
		opts := flatOptions()
		opts.GroupByClient = tt.grouped

		result, err := engine.Search(ctx, "maria", opts)
		require.NoError(t, err)
		out, err := engine.Suggest(ctx, "maria", result, opts)
		require.NoError(t, err)

		assert.Same(t, result, out.Result)
		assert.Equal(t, tt.expected, out.ResultCount, "grouped=%v", tt.grouped)
		assert.NotNil(t, out.Suggestions)
	}
}

func TestAdvancedSearch(t *testing.T) {
	records := []models.CustomerRecord{
		{TransactionID: "1", Name: "Maria Silva", AreaCode: "11", Phone: "99999-0000", City: "São Paulo", State: "SP", Status: "Ativo"},
		{TransactionID: "2", Name: "Mario", City: "Rio de Janeiro", State: "RJ", Status: "Inativo"},
		{TransactionID: "3", Name: "Maria Costa", City: "Sao Paulo", State: "SP", Status: "Cancelada"},
	}
	zero := 0

	tests := []struct {
		name     string
		criteria models.Criteria
		expected []string
		score    int
	}{
		{
			name:     "name and city",
			criteria: models.Criteria{Name: "MARIA", City: "são paulo"},
			expected: []string{"Maria Silva", "Maria Costa"},
			score:    CriterionName + CriterionCity,
		},
		{
			name:     "status containment",
			criteria: models.Criteria{Status: "ativo"},
			expected: []string{"Maria Silva", "Mario"},
			score:    CriterionStatus,
		},
		{
			name:     "every criterion must match",
			criteria: models.Criteria{Name: "maria", Phone: "(11) 9"},
			expected: []string{"Maria Silva"},
			score:    CriterionName + CriterionPhone,
		},
		{
			name:     "below default minimum relevance",
			criteria: models.Criteria{State: "sp"},
			expected: []string{},
		},
		{
			name:     "explicit minimum relevance",
			criteria: models.Criteria{State: "sp", MinRelevance: &zero},
			expected: []string{"Maria Silva", "Maria Costa"},
			score:    CriterionState,
		},
		{
			name:     "no criteria",
			criteria: models.Criteria{},
			expected: []string{},
		},
	}

	engine := newTestEngine(records)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := engine.AdvancedSearch(context.Background(), tt.criteria)
			require.NoError(t, err)

			got := make([]string, 0, len(matches))
			for _, m := range matches {
				got = append(got, m.Record.Name)
				assert.Equal(t, tt.score, m.Score)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestStatistics(t *testing.T) {
	engine := newTestEngine([]models.CustomerRecord{
		{TransactionID: "1", Email: "ana@x.com", AreaCode: "11", Phone: "999998888", Status: "Ativo"},
		{TransactionID: "2", Email: "ANA@x.com", Status: "Cancelada"},
		{TransactionID: "3", AreaCode: "21", Phone: "33334444", Status: "Ativo"},
		{TransactionID: "4", Email: "invalid"},
	})

	stats, err := engine.Statistics(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalClients)
	assert.Equal(t, 1, stats.UniqueEmails)
	assert.Equal(t, 2, stats.UniquePhones)
	assert.Equal(t, 2, stats.UniqueClients)
	assert.Equal(t, 2, stats.ActiveClients)
	assert.Equal(t, 3, stats.ClientsWithEmail)
	assert.Equal(t, 2, stats.ClientsWithPhone)
	assert.Equal(t, 125, stats.DataCompleteness)
	assert.Nil(t, stats.LastSearch)

	last := &models.SearchSummary{Query: "ana", TotalFound: 2}
	stats, err = engine.Statistics(context.Background(), last)
	require.NoError(t, err)
	assert.Same(t, last, stats.LastSearch)

	stats, err = engine.Statistics(context.Background(), &models.SearchSummary{Query: "nobody"})
	require.NoError(t, err)
	assert.Nil(t, stats.LastSearch)
}

func TestStatisticsEmptyDataset(t *testing.T) {
	stats, err := newTestEngine(nil).Statistics(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DataCompleteness)
	assert.Equal(t, 0, stats.UniqueClients)
}
