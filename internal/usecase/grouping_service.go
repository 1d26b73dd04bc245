package usecase

import (
	"sort"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/logger"
)

// DefaultGroupThreshold is the confidence an offer needs against a group's
// representative to join that group
const DefaultGroupThreshold = 0.68

// GroupingService clusters offers into canonical product groups
type GroupingService struct {
	matcher            *MatchingService
	threshold          float64
	enableDebugLogging bool
}

// NewGroupingService creates a grouping service. A threshold <= 0 uses DefaultGroupThreshold.
func NewGroupingService(matcher *MatchingService, threshold float64, enableDebugLogging bool) *GroupingService {
	if threshold <= 0 {
		threshold = DefaultGroupThreshold
	}
	return &GroupingService{
		matcher:            matcher,
		threshold:          threshold,
		enableDebugLogging: enableDebugLogging,
	}
}

// Threshold returns the service's default clustering threshold
func (s *GroupingService) Threshold() float64 {
	return s.threshold
}

// pendingGroup is a group under construction together with its representative profile
type pendingGroup struct {
	group          *domain.AggregatedGroup
	representative *offerProfile
}

// Group clusters offers in a single greedy pass, in input order.
//
// Each offer is compared only against the first-inserted offer of every
// existing group and joins the earliest group scoring >= threshold;
// otherwise it founds a new group. Membership is never revisited, so the
// result depends on input order but is deterministic for a given order.
// A threshold <= 0 uses the service default.
func (s *GroupingService) Group(offers []domain.Offer, threshold float64) []domain.AggregatedGroup {
	if threshold <= 0 {
		threshold = s.threshold
	}

	var pending []*pendingGroup

	for _, offer := range offers {
		candidate := s.matcher.profile(offer)

		placed := false
		for _, pg := range pending {
			result := s.matcher.scoreProfiles(candidate, pg.representative)
			if result.Confidence >= threshold {
				pg.group.Offers = append(pg.group.Offers, offer)
				placed = true
				break
			}
		}
		if placed {
			continue
		}

		pending = append(pending, &pendingGroup{
			group: &domain.AggregatedGroup{
				CanonicalTitle: s.matcher.normalizer.Normalize(offer.Title),
				Brand:          candidate.brand,
				Category:       s.matcher.extractor.NormalizeCategory(offer.Category),
				Attributes:     candidate.attrs,
				Offers:         []domain.Offer{offer},
			},
			representative: candidate,
		})
	}

	groups := make([]domain.AggregatedGroup, 0, len(pending))
	for _, pg := range pending {
		sortOffersByPrice(pg.group.Offers)
		groups = append(groups, *pg.group)
	}
	sortGroups(groups)

	if s.enableDebugLogging {
		logger.Debug("grouped offers", "offers", len(offers), "groups", len(groups), "threshold", threshold)
	}

	return groups
}

// sortOffersByPrice orders offers by ascending price, unpriced offers last
func sortOffersByPrice(offers []domain.Offer) {
	sort.SliceStable(offers, func(i, j int) bool {
		return lessPrice(offers[i].Price, offers[i].HasPrice(), offers[j].Price, offers[j].HasPrice())
	})
}

// sortGroups orders groups by ascending best price, then by descending size
func sortGroups(groups []domain.AggregatedGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		pi, okI := groups[i].BestPrice()
		pj, okJ := groups[j].BestPrice()
		if okI != okJ || (okI && pi != pj) {
			return lessPrice(pi, okI, pj, okJ)
		}
		return len(groups[i].Offers) > len(groups[j].Offers)
	})
}

func lessPrice(a float64, okA bool, b float64, okB bool) bool {
	switch {
	case okA && okB:
		return a < b
	case okA:
		return true
	default:
		return false
	}
}
