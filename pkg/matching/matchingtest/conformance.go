// Package matchingtest holds the conformance suite every matching.Scorer adapter must pass
package matchingtest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoqz/api-consulta-hotmart/pkg/classifier"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

// Now is the instant every adapter is evaluated at
var Now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// Factory builds the adapter under test over records, deriving views with
// builder and reading a clock fixed at now.
type Factory func(t *testing.T, records []models.CustomerRecord, builder *matching.ViewBuilder, now time.Time) matching.Scorer

// Queries exercise every rule of the weight table
var Queries = []string{
	"joao@email.com",
	"JOAO@EMAIL.COM",
	"ana@x.com",
	"@",
	"99999999911",
	"(11) 3333-4444",
	"11",
	"maria silva",
	"maria",
	"fer",
	"sandra",
	"rio",
	"sao paulo sp",
	"josé",
	"a",
	"--",
	"silva costa oliveira",
	"ana_x",
	"nobody",
}

func at(days int) *time.Time {
	t := Now.Add(-time.Duration(days) * 24 * time.Hour).Truncate(time.Second)
	return &t
}

// Fixtures returns records covering every signal, including degenerate ones
func Fixtures() []models.CustomerRecord {
	return []models.CustomerRecord{
		{Platform: models.PlatformHotmart, TransactionID: "HP1", Name: "João Pereira", Email: "joao@email.com", AreaCode: "99", Phone: "999999911", City: "Recife", State: "PE", Product: "Curso A", Value: 97, Status: "Ativo", SignupDate: at(10)},
		{Platform: models.PlatformHotmart, TransactionID: "HP2", Name: "Marcos João", Email: "mjoao@email.com.br", AreaCode: "55", Phone: "99999999911", City: "Olinda", State: "PE", Product: "Curso B", Value: 47.5, Status: "Inativo", SignupDate: at(400)},
		{Platform: models.PlatformCakto, TransactionID: "CK1", Name: "Maria Silva", Email: "maria.silva@x.com", AreaCode: "11", Phone: "33334444", City: "São Paulo", State: "SP", Product: "Mentoria", Value: 497, Status: "paid", SignupDate: at(30)},
		{Platform: models.PlatformCakto, TransactionID: "CK2", Name: "Maria Silva Costa", Email: "", AreaCode: "", Phone: "", City: "Rio de Janeiro", State: "Rio de Janeiro", Product: "Mentoria", Status: "refunded", CancellationDate: at(100)},
		{Platform: models.PlatformHotmart, TransactionID: "", Name: "Fernanda Lima", Email: "fe@lima.com", AreaCode: "21", Phone: "98888-7777", City: "Niterói", State: "RJ", Product: "Curso A", Status: "Trial", SignupDate: at(200)},
		{Platform: models.PlatformHotmart, TransactionID: "HP4", Name: "Alessandra Oliveira", Email: "ana_x@x.com", AreaCode: "", Phone: "", City: "", State: "", Product: "Curso C", Status: "Renovada", SignupDate: at(-5)},
		{Platform: models.PlatformCakto, TransactionID: "CK3", Name: "José Ana", Email: "ana@x.com", AreaCode: "31", Phone: "(31) 9 1234-5678", City: "Belo Horizonte", State: "MG", Product: "Ebook", Status: "unpaid"},
		{Platform: models.PlatformCakto, TransactionID: "CK4", Name: "", Email: "", AreaCode: "", Phone: "", Status: ""},
		{Platform: models.PlatformHotmart, TransactionID: "HP5", Name: "Silva", Email: "SILVA@EXAMPLE.COM ", AreaCode: "11", Phone: "1", City: "sao paulo", State: "sp", Product: "Curso A", Status: "Cancelada", SignupDate: at(181)},
	}
}

// Run checks that the adapter built by factory agrees with the reference rules on every query
func Run(t *testing.T, factory Factory) {
	RunWith(t, matching.NewViewBuilder(nil, nil), factory)
}

// RunWith is Run with views derived by builder
func RunWith(t *testing.T, builder *matching.ViewBuilder, factory Factory) {
	records := Fixtures()
	scorer := factory(t, records, builder, Now)

	for _, raw := range Queries {
		t.Run("query "+raw, func(t *testing.T) {
			q := classifier.Classify(raw)

			expected := matching.ScoreAll(records, builder, q, Now, 0)
			actual, err := scorer.Score(context.Background(), q, 0)
			require.NoError(t, err)

			assertSameCandidates(t, expected, actual)
		})
	}

	t.Run("min score filters", func(t *testing.T) {
		q := classifier.Classify("maria silva")
		expected := matching.ScoreAll(records, builder, q, Now, 150)
		actual, err := scorer.Score(context.Background(), q, 150)
		require.NoError(t, err)
		assertSameCandidates(t, expected, actual)
		for _, c := range actual {
			assert.GreaterOrEqual(t, c.Score, 150)
		}
	})

	t.Run("min score zero admits everything", func(t *testing.T) {
		actual, err := scorer.Score(context.Background(), classifier.Classify("nobody"), 0)
		require.NoError(t, err)
		assert.Len(t, actual, len(records))
	})

	t.Run("empty query scores nothing", func(t *testing.T) {
		actual, err := scorer.Score(context.Background(), classifier.Classify("   "), 0)
		require.NoError(t, err)
		assert.Empty(t, actual)
	})

	t.Run("weight table examples", func(t *testing.T) {
		byKey := scoreByKey(t, scorer, "joao@email.com")
		assert.Equal(t, []string{matching.ReasonEmailExact}, byKey["hotmart/HP1"].Reasons)
		assert.Equal(t, []string{matching.ReasonEmailPartial}, byKey["hotmart/HP2"].Reasons)
		assert.Greater(t, byKey["hotmart/HP1"].Score, byKey["hotmart/HP2"].Score)

		byKey = scoreByKey(t, scorer, "99999999911")
		assert.Equal(t, matching.ReasonPhoneExact, byKey["hotmart/HP1"].PrimaryReason)
		assert.Equal(t, matching.ReasonPhonePartial, byKey["hotmart/HP2"].PrimaryReason)
		assert.Equal(t, models.NoMatchReason, byKey["cakto/CK1"].PrimaryReason)
	})
}

func scoreByKey(t *testing.T, scorer matching.Scorer, raw string) map[string]models.ScoredCandidate {
	t.Helper()
	out, err := scorer.Score(context.Background(), classifier.Classify(raw), 0)
	require.NoError(t, err)
	byKey := make(map[string]models.ScoredCandidate, len(out))
	for _, c := range out {
		byKey[candidateKey(c)] = c
	}
	return byKey
}

func candidateKey(c models.ScoredCandidate) string {
	return string(c.Record.Platform) + "/" + c.Record.Key()
}

func sortByKey(candidates []models.ScoredCandidate) []models.ScoredCandidate {
	out := make([]models.ScoredCandidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return candidateKey(out[i]) < candidateKey(out[j])
	})
	return out
}

func assertSameCandidates(t *testing.T, expected, actual []models.ScoredCandidate) {
	t.Helper()
	require.Len(t, actual, len(expected))

	expected = sortByKey(expected)
	actual = sortByKey(actual)
	for i := range expected {
		key := candidateKey(expected[i])
		assert.Equal(t, key, candidateKey(actual[i]))
		assert.Equal(t, expected[i].Score, actual[i].Score, "score of %s", key)
		assert.Equal(t, expected[i].Reasons, actual[i].Reasons, "reasons of %s", key)
		assert.Equal(t, expected[i].PrimaryReason, actual[i].PrimaryReason, "primary reason of %s", key)
		assert.Equal(t, expected[i].View.IsActive, actual[i].View.IsActive, "active flag of %s", key)
	}
}
