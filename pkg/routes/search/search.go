package search

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/diogoqz/api-consulta-hotmart/pkg/cache"
	"github.com/diogoqz/api-consulta-hotmart/pkg/classifier"
	"github.com/diogoqz/api-consulta-hotmart/pkg/kafka"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/ranking"
	searchpkg "github.com/diogoqz/api-consulta-hotmart/pkg/search"
)

// DefaultMinScore is the minimum score of the HTTP search when the caller sends none
const DefaultMinScore = 11

// Request holds the query parameters of a search
type Request struct {
	Query         string        `validate:"required"`
	MaxResults    int           `validate:"min=0,max=1000"`
	MinScore      int           `validate:"min=0"`
	SortBy        models.SortBy `validate:"omitempty,oneof=relevance name recent"`
	GroupByClient bool
	Suggestions   bool
}

// Response is the body of search responses
type Response struct {
	Query       string                   `json:"query"`
	Kind        classifier.Kind          `json:"kind"`
	Results     []models.ScoredCandidate `json:"results"`
	Groups      []models.CustomerGroup   `json:"groups,omitempty"`
	Total       int                      `json:"total"`
	Summary     *models.SearchSummary    `json:"summary"`
	Suggestions []string                 `json:"suggestions,omitempty"`
	HasMore     bool                     `json:"has_more"`
	Cached      bool                     `json:"cached"`
}

// AdvancedResponse is the body of advanced search responses
type AdvancedResponse struct {
	Results []models.AdvancedMatch `json:"results"`
	Total   int                    `json:"total"`
}

// Handler serves the search endpoints
type Handler struct {
	engine    *searchpkg.Engine
	logger    ectologger.Logger
	validate  *validator.Validate
	defaults  ranking.Options
	cache     *cache.SearchCache
	summaries *cache.SummaryStore
	publisher kafka.Publisher
}

// Option configures a Handler
type Option func(*Handler)

// WithCache serves repeated searches from c
func WithCache(c *cache.SearchCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithSummaries stores the summary of every search so statistics can refer to it by id
func WithSummaries(s *cache.SummaryStore) Option {
	return func(h *Handler) { h.summaries = s }
}

// WithPublisher emits a customer.searched event per search
func WithPublisher(p kafka.Publisher) Option {
	return func(h *Handler) { h.publisher = p }
}

// WithDefaults sets the options used for parameters the caller leaves out
func WithDefaults(opts ranking.Options) Option {
	return func(h *Handler) { h.defaults = opts }
}

// NewHandler creates a search handler
func NewHandler(engine *searchpkg.Engine, logger ectologger.Logger, opts ...Option) *Handler {
	defaults := ranking.DefaultOptions()
	defaults.MinScore = DefaultMinScore

	h := &Handler{
		engine:    engine,
		logger:    logger,
		validate:  validator.New(),
		defaults:  defaults,
		publisher: kafka.NoopPublisher{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the search routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/search", h.Search)
	g.GET("/search/grouped", h.SearchGrouped)
	g.POST("/search/advanced", h.AdvancedSearch)
}

// Search runs a free text search
// @Summary Search customers
// @Tags Search
// @Produce json
// @Param q query string true "Name, email or phone"
// @Param max_results query int false "Maximum results (default 50)"
// @Param min_score query int false "Minimum score (default 11)"
// @Param sort_by query string false "relevance, name or recent"
// @Param group_by_client query bool false "Group transactions by customer"
// @Param suggestions query bool false "Suggest similar names for thin results"
// @Success 200 {object} Response
// @Failure 400 {object} httperror.HTTPError
// @Failure 503 {object} httperror.HTTPError
// @Router /api/search [get]
func (h *Handler) Search(c echo.Context) error {
	req, err := h.bindRequest(c)
	if err != nil {
		return err
	}
	return h.respond(c, req)
}

// SearchGrouped runs a search grouped by customer across platforms
// @Summary Search customers grouped by identity
// @Tags Search
// @Produce json
// @Param q query string true "Name, email or phone"
// @Success 200 {object} Response
// @Failure 400 {object} httperror.HTTPError
// @Failure 503 {object} httperror.HTTPError
// @Router /api/search/grouped [get]
func (h *Handler) SearchGrouped(c echo.Context) error {
	req, err := h.bindRequest(c)
	if err != nil {
		return err
	}
	req.GroupByClient = true
	return h.respond(c, req)
}

// AdvancedSearch filters customers by several fields at once
// @Summary Advanced search
// @Tags Search
// @Accept json
// @Produce json
// @Param body body models.Criteria true "Criteria"
// @Success 200 {object} AdvancedResponse
// @Failure 400 {object} httperror.HTTPError
// @Failure 503 {object} httperror.HTTPError
// @Router /api/search/advanced [post]
func (h *Handler) AdvancedSearch(c echo.Context) error {
	ctx := c.Request().Context()

	var criteria models.Criteria
	if err := c.Bind(&criteria); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(criteria); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if criteria.IsEmpty() {
		return httperror.NewHTTPError(http.StatusBadRequest, "at least one search criterion is required")
	}

	matches, err := h.engine.AdvancedSearch(ctx, criteria)
	if err != nil {
		return searchError(err)
	}

	return c.JSON(http.StatusOK, AdvancedResponse{Results: matches, Total: len(matches)})
}

func (h *Handler) bindRequest(c echo.Context) (*Request, error) {
	req := &Request{
		Query:      strings.TrimSpace(c.QueryParam("q")),
		MaxResults: h.defaults.MaxResults,
		MinScore:   h.defaults.MinScore,
		SortBy:     h.defaults.SortBy,
	}

	var sortBy string
	err := echo.QueryParamsBinder(c).
		Int("max_results", &req.MaxResults).
		Int("min_score", &req.MinScore).
		String("sort_by", &sortBy).
		Bool("group_by_client", &req.GroupByClient).
		Bool("suggestions", &req.Suggestions).
		BindError()
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if sortBy != "" {
		req.SortBy = models.SortBy(strings.ToLower(sortBy))
	}

	if req.Query == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req, nil
}

func (h *Handler) respond(c echo.Context, req *Request) error {
	ctx := c.Request().Context()

	var (
		result      *searchpkg.Result
		suggestions []string
		cached      bool
		err         error
	)

	opts := searchpkg.Options{
		Options: ranking.Options{
			MaxResults: req.MaxResults,
			MinScore:   req.MinScore,
			SortBy:     req.SortBy,
		},
		GroupByClient: req.GroupByClient,
	}

	if h.cache != nil {
		result, cached, err = h.cache.GetOrSearch(ctx, cache.SearchRequest{Query: req.Query, Options: opts}, func(ctx context.Context) (*searchpkg.Result, error) {
			return h.engine.Search(ctx, req.Query, opts)
		})
	} else {
		result, err = h.engine.Search(ctx, req.Query, opts)
	}
	if err != nil {
		return searchError(err)
	}

	if req.Suggestions {
		withSuggestions, err := h.engine.Suggest(ctx, req.Query, result, opts)
		if err != nil {
			return searchError(err)
		}
		suggestions = withSuggestions.Suggestions
	}

	total := result.Total(opts.GroupByClient)
	h.record(ctx, result)

	return c.JSON(http.StatusOK, Response{
		Query:       result.Query,
		Kind:        result.Kind,
		Results:     result.Candidates,
		Groups:      result.Groups,
		Total:       total,
		Summary:     result.Summary,
		Suggestions: suggestions,
		HasMore:     total >= h.engine.Config().HasMoreThreshold,
		Cached:      cached,
	})
}

// record stores the summary and publishes the search event. Failures are logged only.
func (h *Handler) record(ctx context.Context, result *searchpkg.Result) {
	if result.Summary == nil {
		return
	}
	log := h.logger.WithContext(ctx).WithField("search_id", result.Summary.ID)

	if h.summaries != nil {
		if _, err := h.summaries.Save(ctx, result.Summary); err != nil {
			log.WithError(err).Warnf("failed to store search summary")
		}
	}

	err := h.publisher.PublishCustomerSearched(ctx, &kafka.CustomerSearchedEvent{
		SearchID:          result.Summary.ID,
		Kind:              string(result.Kind),
		TotalFound:        result.Summary.TotalFound,
		AvgRelevanceScore: result.Summary.AvgRelevanceScore,
		TopMatchReason:    result.Summary.TopMatchReason,
		HighConfidence:    result.Summary.HighConfidence,
	})
	if err != nil {
		log.WithError(err).Warnf("failed to publish search event")
	}
}

func searchError(err error) error {
	if errors.Is(err, searchpkg.ErrDataUnavailable) {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "customer data is unavailable, try again later")
	}
	return err
}
