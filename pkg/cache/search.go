package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/diogoqz/api-consulta-hotmart/pkg/metrics"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/search"
)

const (
	searchPrefix     = "search:"
	generationKey    = "search:generation"
	summaryPrefix    = "summary:"
	defaultSearchTTL = 5 * time.Minute
)

// Versioner reports the current version of the candidate dataset
type Versioner interface {
	DatasetVersion(ctx context.Context) (string, error)
}

// SearchRequest identifies one cacheable search
type SearchRequest struct {
	Query   string         `json:"q"`
	Options search.Options `json:"options"`
}

// SearchCache caches search results. Keys embed the dataset version and an invalidation
// generation, so an import never serves stale results.
type SearchCache struct {
	store    Store
	results  *Typed[search.Result]
	versions Versioner
	logger   ectologger.Logger
	now      func() time.Time
}

// NewSearchCache creates a SearchCache. ttl defaults to five minutes.
func NewSearchCache(store Store, versions Versioner, ttl time.Duration, logger ectologger.Logger) *SearchCache {
	if ttl <= 0 {
		ttl = defaultSearchTTL
	}
	return &SearchCache{
		store:    store,
		results:  NewTyped[search.Result](store, searchPrefix, ttl),
		versions: versions,
		logger:   logger,
		now:      time.Now,
	}
}

// GetOrSearch returns the cached result of req, running fn and storing its result on a miss.
// A hit carries a summary with a new id and timestamp. Cache failures are logged and fall through to fn.
func (c *SearchCache) GetOrSearch(ctx context.Context, req SearchRequest, fn func(ctx context.Context) (*search.Result, error)) (*search.Result, bool, error) {
	log := c.logger.WithContext(ctx)

	key, err := c.key(ctx, req)
	if err != nil {
		log.WithError(err).Warnf("search cache unavailable")
		result, err := fn(ctx)
		return result, false, err
	}

	cached, err := c.results.Get(ctx, key)
	switch {
	case err == nil:
		metrics.RecordCacheLookup(true)
		if cached.Summary != nil {
			cached.Summary.ID = uuid.NewString()
			cached.Summary.SearchedAt = c.now().UTC()
		}
		return cached, true, nil
	case !errors.Is(err, ErrNotFound):
		log.WithError(err).Warnf("failed to read cached search")
	}
	metrics.RecordCacheLookup(false)

	result, err := fn(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := c.results.Set(ctx, key, result); err != nil {
		log.WithError(err).Warnf("failed to cache search")
	}
	return result, false, nil
}

// Invalidate drops every cached result by advancing the generation
func (c *SearchCache) Invalidate(ctx context.Context) error {
	_, err := c.store.Incr(ctx, generationKey)
	return errors.Wrap(err, "failed to invalidate search cache")
}

func (c *SearchCache) key(ctx context.Context, req SearchRequest) (string, error) {
	version, err := c.versions.DatasetVersion(ctx)
	if err != nil {
		return "", err
	}

	generation := "0"
	raw, err := c.store.Get(ctx, generationKey)
	switch {
	case err == nil:
		generation = string(raw)
	case !errors.Is(err, ErrNotFound):
		return "", err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(body)

	return generation + ":" + version + ":" + hex.EncodeToString(hash[:16]), nil
}

// SummaryStore keeps search summaries by id so later statistics requests can refer to them
type SummaryStore struct {
	summaries *Typed[models.SearchSummary]
}

// NewSummaryStore creates a SummaryStore keeping summaries for ttl
func NewSummaryStore(store Store, ttl time.Duration) *SummaryStore {
	return &SummaryStore{summaries: NewTyped[models.SearchSummary](store, summaryPrefix, ttl)}
}

// Save assigns the summary an id when it has none and stores it
func (s *SummaryStore) Save(ctx context.Context, summary *models.SearchSummary) (string, error) {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	if err := s.summaries.Set(ctx, summary.ID, summary); err != nil {
		return "", err
	}
	return summary.ID, nil
}

// Get returns the summary stored under id, or ErrNotFound
func (s *SummaryStore) Get(ctx context.Context, id string) (*models.SearchSummary, error) {
	return s.summaries.Get(ctx, id)
}
