package sale

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoqz/api-consulta-hotmart/config"
	"github.com/diogoqz/api-consulta-hotmart/pkg/classifier"
	"github.com/diogoqz/api-consulta-hotmart/pkg/database"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching/matchingtest"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

func pushdownScorer(t *testing.T, records []models.CustomerRecord, builder *matching.ViewBuilder, now time.Time) matching.Scorer {
	repo := newTestRepository(t, builder)
	_, err := repo.UpsertMany(context.Background(), records)
	require.NoError(t, err)
	return NewPushdownScorer(repo, matching.FixedClock(now))
}

func TestPushdownScorerConformance(t *testing.T) {
	matchingtest.Run(t, pushdownScorer)
}

func TestPushdownScorerConformanceDeploymentPolicy(t *testing.T) {
	builder := matching.NewViewBuilder(config.DefaultPolicy().ActivePolicy(), nil)
	matchingtest.RunWith(t, builder, pushdownScorer)
}

func TestPushdownScorerPolicyOverrides(t *testing.T) {
	policy := matching.NewActivePolicy(matching.ActivePolicyConfig{
		Platforms: map[models.Platform][]string{models.PlatformCakto: {"paid"}},
		Tokens:    []string{"ativo", "trial"},
	})
	builder := matching.NewViewBuilder(policy, nil)
	repo := newTestRepository(t, builder)
	records := matchingtest.Fixtures()

	_, err := repo.UpsertMany(context.Background(), records)
	require.NoError(t, err)
	scorer := NewPushdownScorer(repo, matching.FixedClock(matchingtest.Now))

	for _, raw := range []string{"maria", "ana@x.com", "11"} {
		q := classifier.Classify(raw)
		expected := matching.ScoreAll(records, builder, q, matchingtest.Now, 0)
		actual, err := scorer.Score(context.Background(), q, 0)
		require.NoError(t, err)

		want := make(map[string]int, len(expected))
		for _, c := range expected {
			want[string(c.Record.Platform)+"/"+c.Record.Key()] = c.Score
		}
		got := make(map[string]int, len(actual))
		for _, c := range actual {
			got[string(c.Record.Platform)+"/"+c.Record.Key()] = c.Score
		}
		assert.Equal(t, want, got, raw)
	}
}

func TestPushdownScorerUnavailable(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, testLogger(), nil)
	require.NoError(t, db.Close())

	_, err := NewPushdownScorer(repo, nil).Score(context.Background(), classifier.Classify("ana"), 0)
	assert.Error(t, err)
}

func TestScoreQueryPostgres(t *testing.T) {
	q := classifier.Classify("maria silva")
	query, args := newScoreQuery(database.DialectPostgres, matching.DefaultActivePolicy(), q, matchingtest.Now).build(11)

	assert.NotContains(t, query, "?")
	assert.Contains(t, query, "CAST(0.8 AS DOUBLE PRECISION)")
	assert.Contains(t, query, "FLOOR(")
	assert.Contains(t, query, "relevance_score >= $")
	assert.Equal(t, 11, args[len(args)-1])

	// every LIKE binds its pattern
	assert.Equal(t, strings.Count(query, " LIKE "), len(args)-1)
}

func TestScoreQuerySQLite(t *testing.T) {
	q := classifier.Classify("ana_x@x.com")
	query, args := newScoreQuery(database.DialectSQLite, matching.DefaultActivePolicy(), q, matchingtest.Now).build(0)

	assert.NotContains(t, query, "$")
	assert.Contains(t, query, "CAST(")
	assert.NotContains(t, query, "FLOOR(")
	assert.Contains(t, args, `%ana\_x@x.com%`)
}
