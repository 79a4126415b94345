package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/singleflight"

	"github.com/dharmasatrya/flightbooking/internal/cache"
	"github.com/dharmasatrya/flightbooking/internal/filter"
	"github.com/dharmasatrya/flightbooking/internal/models"
	"github.com/dharmasatrya/flightbooking/internal/providers"
)

type SearchHandler struct {
	provider providers.Provider
	cache    cache.Cache
	group    singleflight.Group
	now      func() time.Time
	logger   *slog.Logger
}

func NewSearchHandler(p providers.Provider, c cache.Cache, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandler{
		provider: p,
		cache:    c,
		now:      time.Now,
		logger:   logger,
	}
}

// StartSearch opens a vendor search session. An identical request made
// within the cache TTL gets the existing session back.
func (h *SearchHandler) StartSearch(c echo.Context) error {
	ctx := c.Request().Context()

	var body models.SearchBody
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
	}

	req, err := body.Request()
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_error", err.Error())
	}
	if err := req.Validate(h.now()); err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_error", err.Error())
	}

	if id, ok := h.cache.GetSearchID(ctx, req); ok {
		h.logger.Info("search reused", "search_id", id, "origin", req.Origin, "destination", req.Destination)
		return c.JSON(http.StatusOK, models.StartSearchResponse{SearchID: id})
	}

	id, err := h.provider.StartSearch(ctx, req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if err := h.cache.SetSearchID(ctx, req, id); err != nil {
		h.logger.Warn("failed to cache search id", "search_id", id, "error", err)
	}

	h.logger.Info("search started", "search_id", id, "provider", h.provider.Name(), "origin", req.Origin, "destination", req.Destination, "date", req.Date)
	return c.JSON(http.StatusOK, models.StartSearchResponse{SearchID: id})
}

// Results returns the next page of a search. Concurrent polls for the same
// id share one upstream call, and a completed page is served from cache.
// Optional query parameters filter and sort the page.
func (h *SearchHandler) Results(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if id == "" {
		return errorJSON(c, http.StatusBadRequest, "validation_error", "search id is required")
	}

	opts, hasOpts, err := filterOptions(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "validation_error", err.Error())
	}

	page, ok := h.cache.GetResults(ctx, id)
	if !ok {
		v, err, shared := h.group.Do(id, func() (interface{}, error) {
			return h.provider.Results(ctx, id)
		})
		if err != nil {
			return writeError(c, h.logger, err)
		}
		page = v.(models.ResultsPage)
		if shared {
			h.logger.Debug("poll shared", "search_id", id)
		}
		if err := h.cache.SetResults(ctx, id, page); err != nil {
			h.logger.Warn("failed to cache results", "search_id", id, "error", err)
		}
	}

	if hasOpts {
		page.Results = filter.Apply(page.Results, opts)
	}
	if page.Results == nil {
		page.Results = []models.FlightResult{}
	}
	return c.JSON(http.StatusOK, page)
}

func filterOptions(c echo.Context) (filter.Options, bool, error) {
	var (
		opts        filter.Options
		priceMin    float64
		priceMax    float64
		maxStops    int
		maxDuration int
		depMin      string
		depMax      string
	)
	err := echo.QueryParamsBinder(c).
		String("cabin", &opts.CabinClass).
		Bool("direct_only", &opts.DirectOnly).
		Float64("price_min", &priceMin).
		Float64("price_max", &priceMax).
		Int("max_stops", &maxStops).
		Int("max_duration", &maxDuration).
		Strings("airline", &opts.Airlines).
		String("departure_min", &depMin).
		String("departure_max", &depMax).
		String("sort_by", &opts.SortBy).
		String("sort_order", &opts.SortOrder).
		BindError()
	if err != nil {
		return filter.Options{}, false, err
	}

	q := c.QueryParams()
	if q.Has("price_min") {
		opts.PriceMin = &priceMin
	}
	if q.Has("price_max") {
		opts.PriceMax = &priceMax
	}
	if q.Has("max_stops") {
		opts.MaxStops = &maxStops
	}
	if q.Has("max_duration") {
		opts.MaxDuration = &maxDuration
	}
	if depMin != "" {
		opts.DepartureTimeMin = &depMin
	}
	if depMax != "" {
		opts.DepartureTimeMax = &depMax
	}
	return opts, len(q) > 0, nil
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
