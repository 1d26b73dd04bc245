package usecase

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/logger"
)

// DefaultCandidateLimit bounds how many offers one comparison may cluster
const DefaultCandidateLimit = 200

// CompareServiceConfig holds configuration for the compare service
type CompareServiceConfig struct {
	CandidateLimit int
}

// CompareService turns a product query into clustered cross-marketplace offers
type CompareService struct {
	offers         domain.OfferRepository
	grouping       *GroupingService
	normalizer     *Normalizer
	candidateLimit int
}

// NewCompareService creates a new compare service with dependencies.
// offers may be nil when callers always supply their own candidates.
func NewCompareService(
	offers domain.OfferRepository,
	grouping *GroupingService,
	config CompareServiceConfig,
) *CompareService {
	limit := config.CandidateLimit
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	return &CompareService{
		offers:         offers,
		grouping:       grouping,
		normalizer:     grouping.matcher.normalizer,
		candidateLimit: limit,
	}
}

// CompareRequest is the input of a comparison
type CompareRequest struct {
	Query     string
	Offers    []domain.Offer
	Threshold float64
}

// Compare groups the supplied offers, or offers loaded for the query when none are supplied.
// Flow: load candidates -> filter by shared tokens -> group
func (s *CompareService) Compare(ctx context.Context, req CompareRequest) ([]domain.AggregatedGroup, error) {
	if req.Query == "" && len(req.Offers) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	candidates := req.Offers
	if len(candidates) == 0 {
		if s.offers == nil {
			return nil, domain.ErrProductNotFound
		}
		loaded, err := s.offers.ListOffers(ctx, req.Query, s.candidateLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load offers: %w", err)
		}
		candidates = loaded
	}

	candidates = FilterCandidates(s.normalizer, candidates, req.Query, s.candidateLimit)
	if len(candidates) == 0 {
		return nil, domain.ErrProductNotFound
	}

	groups := s.grouping.Group(candidates, req.Threshold)
	logger.Debug("compared offers", "query", req.Query, "candidates", len(candidates), "groups", len(groups))

	return groups, nil
}

// FilterCandidates keeps offers sharing at least one normalized token with
// the query, in input order, capped at limit. An empty query keeps all offers.
func FilterCandidates(n *Normalizer, offers []domain.Offer, query string, limit int) []domain.Offer {
	queryTokens := n.TokenSet(query)

	kept := offers
	if len(queryTokens) > 0 {
		kept = lo.Filter(offers, func(o domain.Offer, _ int) bool {
			return lo.SomeBy(n.Tokens(o.Title), func(t string) bool {
				_, ok := queryTokens[t]
				return ok
			})
		})
	}

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
