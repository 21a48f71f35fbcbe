package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoqz/api-consulta-hotmart/pkg/cache"
	"github.com/diogoqz/api-consulta-hotmart/pkg/kafka"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching/matchingtest"
	"github.com/diogoqz/api-consulta-hotmart/pkg/middleware"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	searchpkg "github.com/diogoqz/api-consulta-hotmart/pkg/search"
)

type failingSource struct{}

func (failingSource) ListCandidates(context.Context) ([]models.CustomerRecord, error) {
	return nil, errors.New("connection refused")
}

type fixedVersion string

func (v fixedVersion) DatasetVersion(context.Context) (string, error) { return string(v), nil }

type recordingPublisher struct {
	mu       sync.Mutex
	searched []*kafka.CustomerSearchedEvent
}

func (p *recordingPublisher) PublishSalesImported(context.Context, *kafka.SalesImportedEvent) error {
	return nil
}

func (p *recordingPublisher) PublishCustomerSearched(_ context.Context, event *kafka.CustomerSearchedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searched = append(p.searched, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newEngine(source matching.CandidateSource) *searchpkg.Engine {
	return searchpkg.NewEngine(testLogger(), source, searchpkg.WithClock(matching.FixedClock(matchingtest.Now)))
}

// serve registers h on a fresh echo instance and performs one request
func serve(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testLogger())
	h.Register(e.Group("/api"))

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSearch(t *testing.T) {
	source := matching.StaticSource(matchingtest.Fixtures())

	tests := []struct {
		name       string
		target     string
		wantStatus int
		check      func(t *testing.T, resp Response)
	}{
		{
			name:       "email query finds the exact customer first",
			target:     "/api/search?q=joao@email.com",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp Response) {
				require.NotEmpty(t, resp.Results)
				assert.Equal(t, "joao@email.com", resp.Results[0].Record.Email)
				assert.Equal(t, len(resp.Results), resp.Total)
				require.NotNil(t, resp.Summary)
				assert.NotEmpty(t, resp.Summary.ID)
				assert.Nil(t, resp.Groups)
				assert.False(t, resp.Cached)
			},
		},
		{
			name:       "unknown name returns an empty list",
			target:     "/api/search?q=nobody",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp Response) {
				assert.Empty(t, resp.Results)
				assert.Equal(t, 0, resp.Total)
			},
		},
		{
			name:       "max results bounds the list",
			target:     "/api/search?q=maria&max_results=1&min_score=0",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp Response) {
				assert.Len(t, resp.Results, 1)
			},
		},
		{
			name:       "grouping returns groups and counts them",
			target:     "/api/search?q=joao@email.com&group_by_client=true",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp Response) {
				require.NotEmpty(t, resp.Groups)
				assert.Equal(t, len(resp.Groups), resp.Total)
			},
		},
		{
			name:       "missing query",
			target:     "/api/search",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "blank query",
			target:     "/api/search?q=%20%20",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non numeric max results",
			target:     "/api/search?q=maria&max_results=many",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative min score",
			target:     "/api/search?q=maria&min_score=-1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown sort order",
			target:     "/api/search?q=maria&sort_by=price",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(newEngine(source), testLogger())

			rec := serve(h, http.MethodGet, tt.target, "")

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decode[Response](t, rec))
			}
		})
	}
}

func TestSearch_DefaultMinScoreFiltersWeakMatches(t *testing.T) {
	h := NewHandler(newEngine(matching.StaticSource(matchingtest.Fixtures())), testLogger())

	resp := decode[Response](t, serve(h, http.MethodGet, "/api/search?q=maria", ""))
	for _, c := range resp.Results {
		assert.GreaterOrEqual(t, c.Score, DefaultMinScore)
	}
}

func TestSearchGrouped(t *testing.T) {
	h := NewHandler(newEngine(matching.StaticSource(matchingtest.Fixtures())), testLogger())

	rec := serve(h, http.MethodGet, "/api/search/grouped?q=joao@email.com", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[Response](t, rec)
	require.NotEmpty(t, resp.Groups)
	assert.Equal(t, len(resp.Groups), resp.Total)
}

func TestSearch_Suggestions(t *testing.T) {
	h := NewHandler(newEngine(matching.StaticSource(matchingtest.Fixtures())), testLogger())

	rec := serve(h, http.MethodGet, "/api/search?q=nobody&suggestions=true", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[Response](t, rec)
	assert.Empty(t, resp.Results)
	assert.False(t, resp.HasMore)
}

func TestSearch_SuggestionsKeepRequestOptions(t *testing.T) {
	store := cache.NewMemoryStore()
	h := NewHandler(
		newEngine(matching.StaticSource(matchingtest.Fixtures())),
		testLogger(),
		WithCache(cache.NewSearchCache(store, fixedVersion("v1"), time.Minute, testLogger())),
	)

	target := "/api/search?q=maria&suggestions=true&max_results=1&min_score=0&group_by_client=false"
	first := decode[Response](t, serve(h, http.MethodGet, target, ""))
	second := decode[Response](t, serve(h, http.MethodGet, target, ""))

	assert.Len(t, first.Results, 1)
	assert.Empty(t, first.Groups)
	assert.Equal(t, 1, first.Total)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Suggestions, second.Suggestions)
}

func TestSearch_DataUnavailable(t *testing.T) {
	h := NewHandler(newEngine(failingSource{}), testLogger())

	rec := serve(h, http.MethodGet, "/api/search?q=maria", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearch_CacheAndRecording(t *testing.T) {
	store := cache.NewMemoryStore()
	publisher := &recordingPublisher{}
	summaries := cache.NewSummaryStore(store, time.Hour)
	h := NewHandler(
		newEngine(matching.StaticSource(matchingtest.Fixtures())),
		testLogger(),
		WithCache(cache.NewSearchCache(store, fixedVersion("v1"), time.Minute, testLogger())),
		WithSummaries(summaries),
		WithPublisher(publisher),
	)

	first := decode[Response](t, serve(h, http.MethodGet, "/api/search?q=joao@email.com", ""))
	second := decode[Response](t, serve(h, http.MethodGet, "/api/search?q=joao@email.com", ""))

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Results, second.Results)

	require.NotNil(t, second.Summary)
	assert.NotEqual(t, first.Summary.ID, second.Summary.ID)
	assert.Equal(t, first.Summary.TotalFound, second.Summary.TotalFound)

	for _, resp := range []Response{first, second} {
		stored, err := summaries.Get(context.Background(), resp.Summary.ID)
		require.NoError(t, err)
		assert.Equal(t, resp.Summary.TotalFound, stored.TotalFound)
	}

	require.Len(t, publisher.searched, 2)
	assert.Equal(t, first.Summary.ID, publisher.searched[0].SearchID)
	assert.Equal(t, second.Summary.ID, publisher.searched[1].SearchID)
	assert.Equal(t, string(first.Kind), publisher.searched[0].Kind)
}

func TestAdvancedSearch(t *testing.T) {
	source := matching.StaticSource(matchingtest.Fixtures())

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMin    int
	}{
		{name: "email criterion", body: `{"email":"joao@email.com"}`, wantStatus: http.StatusOK, wantMin: 1},
		{name: "no matches", body: `{"name":"nobody"}`, wantStatus: http.StatusOK},
		{name: "empty criteria", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "negative relevance", body: `{"name":"maria","min_relevance":-1}`, wantStatus: http.StatusBadRequest},
		{name: "malformed body", body: `{"name":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(newEngine(source), testLogger())

			rec := serve(h, http.MethodPost, "/api/search/advanced", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				resp := decode[AdvancedResponse](t, rec)
				assert.Len(t, resp.Results, resp.Total)
				assert.GreaterOrEqual(t, resp.Total, tt.wantMin)
			}
		})
	}
}

func TestAdvancedSearch_DataUnavailable(t *testing.T) {
	h := NewHandler(newEngine(failingSource{}), testLogger())

	rec := serve(h, http.MethodPost, "/api/search/advanced", `{"name":"maria"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
