package stats

import (
	"context"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/diogoqz/api-consulta-hotmart/pkg/cache"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/search"
)

// PlatformCounter reports the store level counters of every platform
type PlatformCounter interface {
	PlatformStats(ctx context.Context) ([]models.PlatformStats, error)
}

// CrossPlatformCounter reports how many customers bought on more than one platform
type CrossPlatformCounter interface {
	CrossPlatformCustomers(ctx context.Context) (int64, error)
}

// Totals sums the platform counters
type Totals struct {
	Total      int     `json:"total"`
	TotalValue float64 `json:"total_value"`
	Active     int     `json:"active"`
	Cancelled  int     `json:"cancelled"`
}

// Response is the body of the statistics endpoint
type Response struct {
	*models.Statistics
	Platforms              []models.PlatformStats `json:"platforms"`
	Totals                 Totals                 `json:"totals"`
	CrossPlatformCustomers *int64                 `json:"cross_platform_customers,omitempty"`
}

// Handler serves dataset statistics
type Handler struct {
	engine    *search.Engine
	platforms PlatformCounter
	logger    ectologger.Logger
	summaries *cache.SummaryStore
	graph     CrossPlatformCounter
}

// Option configures a Handler
type Option func(*Handler)

// WithSummaries resolves the search_id parameter against s
func WithSummaries(s *cache.SummaryStore) Option {
	return func(h *Handler) { h.summaries = s }
}

// WithGraph adds the cross platform customer count
func WithGraph(g CrossPlatformCounter) Option {
	return func(h *Handler) { h.graph = g }
}

// NewHandler creates a statistics handler
func NewHandler(engine *search.Engine, platforms PlatformCounter, logger ectologger.Logger, opts ...Option) *Handler {
	h := &Handler{
		engine:    engine,
		platforms: platforms,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the statistics routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/stats", h.Stats)
}

// Stats returns dataset statistics
// @Summary Dataset statistics
// @Tags Stats
// @Produce json
// @Param search_id query string false "Summary of a previous search to include as last_search"
// @Success 200 {object} Response
// @Failure 404 {object} httperror.HTTPError
// @Failure 503 {object} httperror.HTTPError
// @Router /api/stats [get]
func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	log := h.logger.WithContext(ctx)

	last, err := h.lastSearch(ctx, c.QueryParam("search_id"))
	if err != nil {
		return err
	}

	stats, err := h.engine.Statistics(ctx, last)
	if err != nil {
		if errors.Is(err, search.ErrDataUnavailable) {
			return httperror.NewHTTPError(http.StatusServiceUnavailable, "customer data is unavailable, try again later")
		}
		return err
	}

	platforms, err := h.platforms.PlatformStats(ctx)
	if err != nil {
		return err
	}

	resp := Response{Statistics: stats, Platforms: platforms}
	for _, p := range platforms {
		resp.Totals.Total += p.Total
		resp.Totals.TotalValue += p.TotalValue
		resp.Totals.Active += p.Active
		resp.Totals.Cancelled += p.Cancelled
	}

	if h.graph != nil {
		count, err := h.graph.CrossPlatformCustomers(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to count cross platform customers")
		} else {
			resp.CrossPlatformCustomers = &count
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) lastSearch(ctx context.Context, id string) (*models.SearchSummary, error) {
	if id == "" || h.summaries == nil {
		return nil, nil
	}

	summary, err := h.summaries.Get(ctx, id)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "search %s not found or expired", id)
	}
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("Failed to load search summary")
		return nil, nil
	}
	return summary, nil
}
