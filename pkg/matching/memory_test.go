package matching_test

import (
	"testing"
	"time"

	"github.com/diogoqz/api-consulta-hotmart/config"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching/matchingtest"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

func memoryScorer(_ *testing.T, records []models.CustomerRecord, builder *matching.ViewBuilder, now time.Time) matching.Scorer {
	return matching.NewMemoryScorer(matching.StaticSource(records), builder, matching.FixedClock(now))
}

func TestMemoryScorerConformance(t *testing.T) {
	matchingtest.Run(t, memoryScorer)
}

func TestMemoryScorerConformanceDeploymentPolicy(t *testing.T) {
	builder := matching.NewViewBuilder(config.DefaultPolicy().ActivePolicy(), nil)
	matchingtest.RunWith(t, builder, memoryScorer)
}
