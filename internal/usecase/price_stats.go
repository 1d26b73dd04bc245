package usecase

import (
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// ComputeStats summarises a price history as of now. ok is false for an empty history.
func ComputeStats(series []domain.PriceObservation, now time.Time) (*domain.PriceHistoryStats, bool) {
	if len(series) == 0 {
		return nil, false
	}
	ordered := append([]domain.PriceObservation(nil), series...)
	sortByTime(ordered)

	current := ordered[len(ordered)-1]
	stats := &domain.PriceHistoryStats{
		CurrentPrice: current.Price,
		LowestPrice:  current.Price,
		HighestPrice: current.Price,
		Currency:     current.Currency,
	}

	var sum float64
	for _, o := range ordered {
		sum += o.Price
		stats.LowestPrice = min(stats.LowestPrice, o.Price)
		stats.HighestPrice = max(stats.HighestPrice, o.Price)
	}
	stats.AveragePrice = round2(sum / float64(len(ordered)))

	stats.PriceChange7d = changeSince(ordered, current.Price, now.AddDate(0, 0, -7))
	stats.PriceChange30d = changeSince(ordered, current.Price, now.AddDate(0, 0, -30))

	return stats, true
}

// changeSince returns the percent change from the last price observed at or
// before ref to current, or nil when no such observation exists
func changeSince(ordered []domain.PriceObservation, current float64, ref time.Time) *float64 {
	var base *domain.PriceObservation
	for i := range ordered {
		if ordered[i].Timestamp.After(ref) {
			break
		}
		base = &ordered[i]
	}
	if base == nil || base.Price <= 0 {
		return nil
	}
	change := round2((current - base.Price) / base.Price * 100)
	return &change
}

// EvaluateAlert reports whether a rule fires for the product's current offer.
// history is ordered oldest first and ends with the current observation.
func EvaluateAlert(rule domain.AlertRule, current domain.Offer, history []domain.PriceObservation) bool {
	switch rule.Type {
	case domain.AlertTypeTargetPrice:
		return current.HasPrice() && current.Price <= rule.ThresholdValue

	case domain.AlertTypePercentageDrop:
		if !current.HasPrice() || len(history) < 2 {
			return false
		}
		previous := history[len(history)-2].Price
		if previous <= 0 {
			return false
		}
		drop := (previous - current.Price) / previous * 100
		return drop >= rule.ThresholdValue

	case domain.AlertTypeAvailability:
		return current.IsAvailable

	default:
		return false
	}
}
