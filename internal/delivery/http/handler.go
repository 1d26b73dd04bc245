package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/logger"
	"github.com/pricelens/backend/internal/usecase"
)

// statsLookback bounds how much history the price stats endpoint loads
const statsLookback = 365 * 24 * time.Hour

// Repository is the storage the handlers read from
type Repository interface {
	domain.OfferRepository
	domain.PriceHistoryRepository
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	compare      *usecase.CompareService
	drops        *usecase.PriceDropService
	repo         Repository
	dropDefaults domain.DropParams
	now          func() time.Time
}

// NewHandler creates a new HTTP handler. repo may be nil, in which case
// requests must carry their own offers and price histories.
func NewHandler(
	compare *usecase.CompareService,
	drops *usecase.PriceDropService,
	repo Repository,
	dropDefaults domain.DropParams,
) *Handler {
	return &Handler{
		compare:      compare,
		drops:        drops,
		repo:         repo,
		dropDefaults: dropDefaults,
		now:          time.Now,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	storage := "not configured"
	if p, ok := h.repo.(pinger); ok {
		storage = "ok"
		if err := p.Ping(c.Request.Context()); err != nil {
			logger.Warn("storage ping failed", logger.Err(err))
			storage = "unavailable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": "1.0.0",
		"storage": storage,
	})
}

// CompareProducts groups cross-marketplace offers for a query
func (h *Handler) CompareProducts(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		respondError(c, http.StatusBadRequest, "threshold must be between 0 and 1")
		return
	}

	groups, err := h.compare.Compare(c.Request.Context(), usecase.CompareRequest{
		Query:     req.Query,
		Offers:    lo.Map(req.Offers, func(o OfferDTO, _ int) domain.Offer { return toOffer(o) }),
		Threshold: req.Threshold,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, CompareResponse{
		Query:  req.Query,
		Count:  len(groups),
		Groups: lo.Map(groups, func(g domain.AggregatedGroup, _ int) GroupDTO { return fromGroup(g) }),
	})
}

// DetectPriceDrops ranks tracked products by significant recent price drops
func (h *Handler) DetectPriceDrops(c *gin.Context) {
	var req PriceDropsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	params := h.dropDefaults
	if req.WindowDays != nil {
		params.WindowDays = *req.WindowDays
	}
	if req.MinDropPct != nil {
		params.MinDropPct = *req.MinDropPct
	}
	if req.MinZ != nil {
		params.MinZ = *req.MinZ
	}
	if req.SampleLimit != nil {
		params.SampleLimit = *req.SampleLimit
	}
	if err := usecase.ValidateDropParams(params); err != nil {
		h.handleError(c, err)
		return
	}

	ctx := c.Request.Context()
	now := h.now()

	products := lo.Map(req.Products, func(p TrackedProductDTO, _ int) domain.TrackedProduct { return toTrackedProduct(p) })
	if len(products) == 0 && h.repo != nil {
		since := now.AddDate(0, 0, -params.WindowDays)
		loaded, err := h.repo.TrackedProducts(ctx, since, params.SampleLimit)
		if err != nil {
			h.handleError(c, err)
			return
		}
		products = loaded
	}

	drops, err := h.drops.DetectPriceDrops(ctx, products, params, now)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, PriceDropsResponse{
		WindowDays:  params.WindowDays,
		MinDropPct:  params.MinDropPct,
		MinZ:        params.MinZ,
		SampleLimit: params.SampleLimit,
		Count:       len(drops),
		Items:       lo.Map(drops, func(r domain.PriceDropResult, _ int) PriceDropDTO { return fromPriceDrop(r) }),
	})
}

// GetPriceStats summarises the stored price history of one product
func (h *Handler) GetPriceStats(c *gin.Context) {
	id := c.Param("id")
	offer, history, err := h.loadProduct(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	stats, ok := usecase.ComputeStats(history, h.now())
	if !ok {
		h.handleError(c, domain.ErrInsufficientHistory)
		return
	}
	if stats.Currency == "" {
		stats.Currency = offer.Currency
	}

	c.JSON(http.StatusOK, PriceStatsDTO{
		ProductID:      id,
		CurrentPrice:   stats.CurrentPrice,
		AveragePrice:   stats.AveragePrice,
		LowestPrice:    stats.LowestPrice,
		HighestPrice:   stats.HighestPrice,
		PriceChange7d:  stats.PriceChange7d,
		PriceChange30d: stats.PriceChange30d,
		Currency:       stats.Currency,
	})
}

// EvaluateAlert reports whether an alert rule fires for a stored product
func (h *Handler) EvaluateAlert(c *gin.Context) {
	var req AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	rule := domain.AlertRule{Type: domain.AlertType(req.Type), ThresholdValue: req.ThresholdValue}
	switch rule.Type {
	case domain.AlertTypeTargetPrice, domain.AlertTypePercentageDrop, domain.AlertTypeAvailability:
	default:
		respondError(c, http.StatusBadRequest, "unknown alert type")
		return
	}

	id := c.Param("id")
	offer, history, err := h.loadProduct(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, AlertResponse{
		ProductID: id,
		Type:      req.Type,
		Triggered: usecase.EvaluateAlert(rule, *offer, history),
	})
}

func (h *Handler) loadProduct(ctx context.Context, id string) (*domain.Offer, []domain.PriceObservation, error) {
	if h.repo == nil {
		return nil, nil, domain.ErrProductNotFound
	}
	offer, err := h.repo.GetOffer(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	history, err := h.repo.History(ctx, id, h.now().Add(-statsLookback))
	if err != nil {
		return nil, nil, err
	}
	return offer, history, nil
}

// handleError maps domain errors to HTTP responses
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		respondError(c, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrInsufficientHistory):
		respondError(c, http.StatusNotFound, "no price history")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusServiceUnavailable, "request cancelled")
	default:
		logger.Error("request failed", "path", c.FullPath(), logger.Err(err))
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
