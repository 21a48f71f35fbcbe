package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

// Statistics describes the whole candidate set. last is the caller's most recent search summary and may be nil.
func (e *Engine) Statistics(ctx context.Context, last *models.SearchSummary) (*models.Statistics, error) {
	ctx, span := tracing.StartSpan(ctx, "search.Engine.Statistics")
	defer span.End()

	records, err := e.source.ListCandidates(ctx)
	if err != nil {
		e.log.WithContext(ctx).WithError(err).Error("Failed to load candidates for statistics")
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	stats := ComputeStatistics(records, e.builder.Build)
	if last != nil && last.TotalFound > 0 {
		stats.LastSearch = last
	}
	return stats, nil
}

// ComputeStatistics counts dataset completeness and identities over records
func ComputeStatistics(records []models.CustomerRecord, view func(models.CustomerRecord) models.NormalizedView) *models.Statistics {
	emails := make(map[string]struct{})
	phones := make(map[string]struct{})
	stats := &models.Statistics{TotalClients: len(records)}

	for _, r := range records {
		v := view(r)
		if strings.Contains(r.Email, "@") {
			emails[strings.ToLower(r.Email)] = struct{}{}
		}
		if len(v.FullPhone) >= 10 {
			phones[v.FullPhone] = struct{}{}
		}
		if v.IsActive {
			stats.ActiveClients++
		}
		if v.HasEmail {
			stats.ClientsWithEmail++
		}
		if v.HasPhone {
			stats.ClientsWithPhone++
		}
	}

	stats.UniqueEmails = len(emails)
	stats.UniquePhones = len(phones)
	stats.UniqueClients = max(stats.UniqueEmails, stats.UniquePhones)
	if stats.TotalClients > 0 {
		stats.DataCompleteness = roundHalfUp(float64(stats.ClientsWithEmail+stats.ClientsWithPhone) / float64(stats.TotalClients) * 100)
	}

	return stats
}
