package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoqz/api-consulta-hotmart/pkg/classifier"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func score(t *testing.T, r models.CustomerRecord, raw string) (int, []string) {
	t.Helper()
	view := NewViewBuilder(nil, nil).Build(r)
	return ScoreRecord(view, classifier.Classify(raw), testNow)
}

func TestScoreEmailQuery(t *testing.T) {
	exact := models.CustomerRecord{Platform: models.PlatformHotmart, Name: "João", Email: "joao@email.com", Status: "Cancelada"}
	partial := models.CustomerRecord{Platform: models.PlatformHotmart, Name: "M João", Email: "mjoao@email.com.br", Status: "Cancelada"}

	s, reasons := score(t, exact, "joao@email.com")
	assert.Equal(t, WeightExact+WeightHasEmail, s)
	assert.Equal(t, []string{ReasonEmailExact}, reasons)

	s2, reasons2 := score(t, partial, "joao@email.com")
	assert.Equal(t, WeightEmailPartial+WeightHasEmail, s2)
	assert.Equal(t, []string{ReasonEmailPartial}, reasons2)
	assert.Less(t, s2, s)
}

func TestScorePhoneQuery(t *testing.T) {
	exact := models.CustomerRecord{Name: "Ana", AreaCode: "99", Phone: "999999911"}
	partial := models.CustomerRecord{Name: "Bia", AreaCode: "55", Phone: "99999999911"}
	none := models.CustomerRecord{Name: "Caio", AreaCode: "11", Phone: "12345678"}

	s, reasons := score(t, exact, "99999999911")
	assert.Equal(t, WeightExact+WeightHasPhone, s)
	assert.Equal(t, []string{ReasonPhoneExact}, reasons)

	s, reasons = score(t, partial, "99999999911")
	assert.Equal(t, WeightPhonePartial+WeightHasPhone, s)
	assert.Equal(t, []string{ReasonPhonePartial}, reasons)

	s, reasons = score(t, none, "99999999911")
	assert.Equal(t, WeightHasPhone, s)
	assert.Empty(t, reasons)
}

func TestScoreTextQuery(t *testing.T) {
	r := models.CustomerRecord{
		Platform:   models.PlatformHotmart,
		Name:       "Maria Silva",
		Email:      "maria.silva@x.com",
		City:       "São Paulo",
		State:      "SP",
		Status:     "Ativo",
		SignupDate: ptr(testNow.Add(-30 * 24 * time.Hour)),
	}

	s, reasons := score(t, r, "maria silva")
	assert.Equal(t, 458, s)
	assert.Equal(t, []string{
		"Name - word exact", "Name - word exact",
		"Email - word exact", "Email - word exact",
	}, reasons)
}

func TestScoreTextRules(t *testing.T) {
	tests := []struct {
		name    string
		record  models.CustomerRecord
		query   string
		score   int
		reasons []string
	}{
		{
			name:    "starts with plus prefix bonus",
			record:  models.CustomerRecord{Name: "Fernanda Lima"},
			query:   "fer",
			score:   WeightStartsWith + WeightPrefixBonus,
			reasons: []string{"Name - starts with"},
		},
		{
			name:    "contains only",
			record:  models.CustomerRecord{Name: "Alessandra"},
			query:   "sandra",
			score:   WeightPartial,
			reasons: []string{"Name - contains"},
		},
		{
			name:    "city and state per token",
			record:  models.CustomerRecord{Name: "Rui", City: "Rio de Janeiro", State: "Rio de Janeiro"},
			query:   "rio",
			score:   WeightCity + WeightState + WeightMultipleMatch,
			reasons: []string{ReasonCity, ReasonState},
		},
		{
			name:    "single letter query has no tokens",
			record:  models.CustomerRecord{Name: "A B"},
			query:   "a",
			score:   0,
			reasons: []string{},
		},
		{
			name:    "active without match keeps only bonus",
			record:  models.CustomerRecord{Platform: models.PlatformCakto, Name: "Zeca", Status: "paid"},
			query:   "maria",
			score:   WeightActive,
			reasons: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, reasons := score(t, tt.record, tt.query)
			assert.Equal(t, tt.score, s)
			assert.Equal(t, tt.reasons, reasons)
		})
	}
}

func TestActiveBonus(t *testing.T) {
	active := models.CustomerRecord{Platform: models.PlatformHotmart, Name: "Ana", Status: "Ativo"}
	inactive := models.CustomerRecord{Platform: models.PlatformHotmart, Name: "Ana", Status: "Inativo"}

	s1, _ := score(t, active, "ana")
	s2, _ := score(t, inactive, "ana")
	assert.Equal(t, WeightActive, s1-s2)
}

func TestMonotonicity(t *testing.T) {
	r := models.CustomerRecord{Name: "Pedro", Email: "pedro@x.com"}
	before, _ := score(t, r, "pedro@y.com")

	r.Email = "pedro@y.com"
	after, _ := score(t, r, "pedro@y.com")
	assert.Greater(t, after, before)
}

func TestScoreDeterministic(t *testing.T) {
	r := models.CustomerRecord{Name: "Luiza Souza", Email: "lu@x.com", Status: "trial", SignupDate: ptr(testNow.Add(-72 * time.Hour))}
	s1, r1 := score(t, r, "luiza souza")
	s2, r2 := score(t, r, "luiza souza")
	assert.Equal(t, s1, s2)
	assert.Equal(t, r1, r2)
}

func TestRecencyBonus(t *testing.T) {
	assert.Equal(t, 0.0, RecencyBonus(nil, testNow))
	assert.Equal(t, float64(WeightRecentActivity), RecencyBonus(ptr(testNow), testNow))
	assert.Equal(t, float64(WeightRecentActivity), RecencyBonus(ptr(testNow.Add(time.Hour)), testNow))
	assert.Equal(t, 0.0, RecencyBonus(ptr(testNow.Add(-RecencyWindowSeconds*time.Second)), testNow))
	assert.Equal(t, 0.0, RecencyBonus(ptr(testNow.Add(-365*24*time.Hour)), testNow))
	assert.InDelta(t, 10.0, RecencyBonus(ptr(testNow.Add(-90*24*time.Hour)), testNow), 1e-9)
}

func TestActivePolicy(t *testing.T) {
	p := DefaultActivePolicy()

	tests := []struct {
		platform models.Platform
		status   string
		expected bool
	}{
		{models.PlatformHotmart, "Ativo", true},
		{models.PlatformHotmart, "Inativo", false},
		{models.PlatformHotmart, "Trial", true},
		{models.PlatformHotmart, "Renovada", true},
		{models.PlatformHotmart, "Cancelada", false},
		{models.PlatformHotmart, "paid", true},
		{models.PlatformCakto, "paid", true},
		{models.PlatformCakto, "unpaid", false},
		{models.PlatformCakto, "Trial", false},
		{models.PlatformCakto, "Approved", true},
		{models.PlatformCakto, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform)+"/"+tt.status, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.IsActive(tt.platform, tt.status))
		})
	}
}

func TestDefaultActiveConfigIsACopy(t *testing.T) {
	cfg := DefaultActiveConfig()
	cfg.Platforms[models.PlatformCakto][0] = "changed"
	cfg.Negative[0] = "changed"

	assert.Equal(t, "paid", DefaultPlatformTokens[models.PlatformCakto][0])
	assert.Equal(t, "inativo", DefaultInactiveTokens[0])
	assert.False(t, DefaultActivePolicy().IsActive(models.PlatformHotmart, "Inativo"))
}

func TestActivePolicyOverrides(t *testing.T) {
	p := NewActivePolicy(ActivePolicyConfig{
		Platforms: map[models.Platform][]string{models.PlatformCakto: {"Paid", "paid", ""}},
	})

	assert.Equal(t, []string{"paid"}, p.Tokens(models.PlatformCakto))
	assert.False(t, p.IsActive(models.PlatformCakto, "Ativo"))
	assert.True(t, p.IsActive(models.PlatformHotmart, "Ativo"))
}

func TestSoundex(t *testing.T) {
	assert.Equal(t, "M600", Soundex("Maria"))
	assert.Equal(t, Soundex("Maria"), Soundex("Mario"))
	assert.Equal(t, "R163", Soundex("Robert"))
	assert.Equal(t, "J000", Soundex("João"))
	assert.Equal(t, "", Soundex("  "))
}

type failingSource struct{}

func (failingSource) ListCandidates(context.Context) ([]models.CustomerRecord, error) {
	return nil, errors.New("boom")
}

func TestMemoryScorerPropagatesSourceError(t *testing.T) {
	s := NewMemoryScorer(failingSource{}, nil, FixedClock(testNow))
	_, err := s.Score(context.Background(), classifier.Classify("ana"), 0)
	require.Error(t, err)
}

func TestMemoryScorerDoesNotMutateInput(t *testing.T) {
	records := StaticSource{{Name: "Ana", Email: "ana@x.com", Status: "Ativo"}}
	original := records[0]

	s := NewMemoryScorer(records, nil, FixedClock(testNow))
	out, err := s.Score(context.Background(), classifier.Classify("ana"), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, original, records[0])
}
