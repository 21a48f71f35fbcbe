package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectolinq"

	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/normalizers"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

// SuggestionResult is a search result with alternative names for thin results
type SuggestionResult struct {
	*Result
	Suggestions []string `json:"suggestions"`
	ResultCount int      `json:"result_count"`
	HasMore     bool     `json:"has_more"`
}

// SearchWithSuggestions runs a search with the configured defaults. When it finds few
// results it adds similar names from the candidate set.
func (e *Engine) SearchWithSuggestions(ctx context.Context, raw string) (*SuggestionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "search.Engine.SearchWithSuggestions")
	defer span.End()

	opts := Options{Options: e.cfg.Defaults, GroupByClient: e.cfg.GroupByClient}
	result, err := e.Search(ctx, raw, opts)
	if err != nil {
		return nil, err
	}
	return e.Suggest(ctx, raw, result, opts)
}

// Suggest adds similar names to a result found for raw with opts when it holds few results
func (e *Engine) Suggest(ctx context.Context, raw string, result *Result, opts Options) (*SuggestionResult, error) {
	count := result.Total(opts.GroupByClient)
	out := &SuggestionResult{
		Result:      result,
		Suggestions: []string{},
		ResultCount: count,
		HasMore:     count >= e.cfg.HasMoreThreshold,
	}

	if result.Summary == nil || count >= e.cfg.SuggestionThreshold {
		return out, nil
	}

	records, err := e.source.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	out.Suggestions = e.suggest(raw, records)
	return out, nil
}

func (e *Engine) suggest(raw string, records []models.CustomerRecord) []string {
	names := ectolinq.Map(records, func(r models.CustomerRecord) string { return r.Name })

	suggestions := make([]string, 0, e.cfg.SoundexSuggestions+e.cfg.PartialSuggestions)

	if code := matching.Soundex(raw); code != "" {
		suggestions = append(suggestions, distinct(names, e.cfg.SoundexSuggestions, func(name string) bool {
			return matching.Soundex(name) == code
		})...)
	}

	if len(suggestions) < e.cfg.MinSuggestions {
		prefix := firstRunes(normalizers.Text(raw), 3)
		if prefix != "" {
			suggestions = append(suggestions, distinct(names, e.cfg.PartialSuggestions, func(name string) bool {
				return strings.Contains(normalizers.Text(name), prefix)
			})...)
		}
	}

	return distinct(suggestions, len(suggestions), func(string) bool { return true })
}

// distinct returns up to limit unique non-empty names accepted by keep, in input order
func distinct(names []string, limit int, keep func(string) bool) []string {
	out := make([]string, 0)
	seen := make(map[string]bool)
	for _, name := range names {
		if len(out) >= limit {
			break
		}
		if name == "" || seen[name] || !keep(name) {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
