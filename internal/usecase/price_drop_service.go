package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/logger"
)

// Accepted ranges of the detector configuration surface
const (
	MinWindowDays   = 7
	MaxWindowDays   = 180
	MinDropPctFloor = 1.0
	MaxDropPctCeil  = 90.0
	MinZFloor       = -5.0
	MaxZCeil        = 0.0
	MinSampleLimit  = 10
	MaxSampleLimit  = 2000

	DefaultTopN    = 50
	DefaultWorkers = 8
)

// DefaultDropParams returns the detector defaults
func DefaultDropParams() domain.DropParams {
	return domain.DropParams{
		WindowDays:  30,
		MinDropPct:  10,
		MinZ:        -1,
		SampleLimit: 500,
	}
}

// ValidateDropParams checks params against the accepted ranges
func ValidateDropParams(p domain.DropParams) error {
	if p.WindowDays < MinWindowDays || p.WindowDays > MaxWindowDays {
		return fmt.Errorf("%w: window_days must be between %d and %d", domain.ErrInvalidRequest, MinWindowDays, MaxWindowDays)
	}
	if math.IsNaN(p.MinDropPct) || p.MinDropPct < MinDropPctFloor || p.MinDropPct > MaxDropPctCeil {
		return fmt.Errorf("%w: min_drop_pct must be between %.0f and %.0f", domain.ErrInvalidRequest, MinDropPctFloor, MaxDropPctCeil)
	}
	if math.IsNaN(p.MinZ) || p.MinZ < MinZFloor || p.MinZ > MaxZCeil {
		return fmt.Errorf("%w: min_z must be between %.0f and %.0f", domain.ErrInvalidRequest, MinZFloor, MaxZCeil)
	}
	if p.SampleLimit < MinSampleLimit || p.SampleLimit > MaxSampleLimit {
		return fmt.Errorf("%w: sample_limit must be between %d and %d", domain.ErrInvalidRequest, MinSampleLimit, MaxSampleLimit)
	}
	return nil
}

// Detect looks for a significant drop of the latest observation against the
// earlier observations of the window ending at now. ok is false when there
// is no result; absent is distinct from a zero drop.
func Detect(productID string, series []domain.PriceObservation, now time.Time, p domain.DropParams) (*domain.PriceDropResult, bool) {
	result, err := Evaluate(productID, series, now, p)
	if err != nil {
		return nil, false
	}
	return result, true
}

// Evaluate is Detect with the rejection reason reported as a sentinel error
func Evaluate(productID string, series []domain.PriceObservation, now time.Time, p domain.DropParams) (*domain.PriceDropResult, error) {
	window := inWindow(series, now, p.WindowDays)
	if len(window) < 2 {
		return nil, domain.ErrInsufficientHistory
	}

	latest := window[len(window)-1]
	prior := window[:len(window)-1]

	var sum float64
	for _, o := range prior {
		sum += o.Price
	}
	avg := sum / float64(len(prior))
	if avg <= 0 {
		return nil, domain.ErrNonPositiveMean
	}

	std := sampleStd(prior, avg)

	dropPct := (avg - latest.Price) / avg * 100
	if dropPct < p.MinDropPct {
		return nil, domain.ErrBelowDropThreshold
	}

	result := &domain.PriceDropResult{
		ProductID:    productID,
		CurrentPrice: latest.Price,
		DropPct:      round2(dropPct),
		PreviousMean: avg,
		Currency:     latest.Currency,
	}
	if len(prior) > 1 {
		rounded := round2(std)
		result.PreviousStd = &rounded
	}

	// A flat prior history has no spread, so the drop stands on drop_pct alone
	if std > 0 {
		z := (latest.Price - avg) / std
		if z > p.MinZ {
			return nil, domain.ErrAboveZThreshold
		}
		result.ZScore = &z
	}

	ts := latest.Timestamp
	result.LastChangeAt = &ts

	return result, nil
}

// inWindow returns the observations at or after now-windowDays, oldest first
func inWindow(series []domain.PriceObservation, now time.Time, windowDays int) []domain.PriceObservation {
	cutoff := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	window := make([]domain.PriceObservation, 0, len(series))
	for _, o := range series {
		if !o.Timestamp.Before(cutoff) {
			window = append(window, o)
		}
	}
	sortByTime(window)
	return window
}

func sortByTime(series []domain.PriceObservation) {
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
}

// sampleStd is the Bessel-corrected standard deviation, 0 for fewer than two values
func sampleStd(values []domain.PriceObservation, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var m2 float64
	for _, o := range values {
		d := o.Price - mean
		m2 += d * d
	}
	return math.Sqrt(m2 / float64(len(values)-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PriceDropConfig holds configuration for the price drop service
type PriceDropConfig struct {
	TopN               int
	Workers            int
	EnableDebugLogging bool
}

// PriceDropService runs drop detection across many tracked products
type PriceDropService struct {
	topN               int
	workers            int
	enableDebugLogging bool
	now                func() time.Time
}

// NewPriceDropService creates a new price drop service with the given configuration
func NewPriceDropService(config PriceDropConfig) *PriceDropService {
	topN := config.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	workers := config.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &PriceDropService{
		topN:               topN,
		workers:            workers,
		enableDebugLogging: config.EnableDebugLogging,
		now:                time.Now,
	}
}

// DetectPriceDrops evaluates up to SampleLimit products against the window
// ending at now and returns at most TopN drops, largest first.
func (s *PriceDropService) DetectPriceDrops(
	ctx context.Context,
	products []domain.TrackedProduct,
	params domain.DropParams,
	now time.Time,
) ([]domain.PriceDropResult, error) {
	if err := ValidateDropParams(params); err != nil {
		return nil, err
	}

	if len(products) > params.SampleLimit {
		products = products[:params.SampleLimit]
	}

	found := make([]*domain.PriceDropResult, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range products {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			product := products[i]
			result, ok := Detect(product.ID, product.History, now, params)
			if !ok {
				return nil
			}
			enrich(result, product)
			found[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	drops := make([]domain.PriceDropResult, 0, len(found))
	for _, r := range found {
		if r != nil {
			drops = append(drops, *r)
		}
	}

	sort.SliceStable(drops, func(i, j int) bool {
		if drops[i].DropPct != drops[j].DropPct {
			return drops[i].DropPct > drops[j].DropPct
		}
		return drops[i].ProductID < drops[j].ProductID
	})

	if len(drops) > s.topN {
		drops = drops[:s.topN]
	}

	if s.enableDebugLogging {
		logger.Debug("price drop scan finished",
			"sampled", len(products), "drops", len(drops),
			"window_days", params.WindowDays, "min_drop_pct", params.MinDropPct, "min_z", params.MinZ)
	}

	return drops, nil
}

// DetectPriceDropsNow is DetectPriceDrops against the service clock
func (s *PriceDropService) DetectPriceDropsNow(
	ctx context.Context,
	products []domain.TrackedProduct,
	params domain.DropParams,
) ([]domain.PriceDropResult, error) {
	return s.DetectPriceDrops(ctx, products, params, s.now())
}

func enrich(result *domain.PriceDropResult, product domain.TrackedProduct) {
	result.Name = product.Name
	result.Marketplace = product.Marketplace
	result.URL = product.URL
	result.ImageURL = product.ImageURL
	if result.Currency == "" {
		result.Currency = product.Currency
	}
}
