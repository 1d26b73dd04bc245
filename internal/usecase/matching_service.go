package usecase

import (
	"math"
	"strings"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/logger"
)

// Weights used when a semantic similarity score is available
const (
	semanticTitleWeight    = 0.40
	semanticPriceWeight    = 0.20
	semanticEmbWeight      = 0.20
	semanticBrandWeight    = 0.12
	semanticCapacityWeight = 0.08
	semanticMatchThreshold = 0.80
)

// Weights used when only lexical signals are available
const (
	lexicalTitleWeight    = 0.55
	lexicalPriceWeight    = 0.25
	lexicalBrandWeight    = 0.12
	lexicalCapacityWeight = 0.08
)

// fuzzyTitleThreshold is the title score a brand-matched pair needs to count as a fuzzy match
const fuzzyTitleThreshold = 0.85

// NoopSimilarity is a SimilarityProvider that never answers
type NoopSimilarity struct{}

// Similarity always reports that no score is available
func (NoopSimilarity) Similarity(string, string) (float64, bool) {
	return 0, false
}

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	Normalizer         *Normalizer
	Extractor          *AttributeExtractor
	Similarity         domain.SimilarityProvider
	EnableDebugLogging bool
}

// MatchingService scores whether two offers describe the same physical product
type MatchingService struct {
	normalizer         *Normalizer
	extractor          *AttributeExtractor
	similarity         domain.SimilarityProvider
	enableDebugLogging bool
}

// NewMatchingService creates a new matching service with the given configuration.
// Missing collaborators fall back to the built-in vocabulary and NoopSimilarity.
func NewMatchingService(config MatchConfig) *MatchingService {
	vocab := DefaultVocabulary()

	normalizer := config.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer(vocab.PromoWords)
	}

	extractor := config.Extractor
	if extractor == nil {
		extractor = NewAttributeExtractor(vocab)
	}

	similarity := config.Similarity
	if similarity == nil {
		similarity = NoopSimilarity{}
	}

	return &MatchingService{
		normalizer:         normalizer,
		extractor:          extractor,
		similarity:         similarity,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Normalizer returns the title normalizer used by the service
func (s *MatchingService) Normalizer() *Normalizer {
	return s.normalizer
}

// Extractor returns the attribute extractor used by the service
func (s *MatchingService) Extractor() *AttributeExtractor {
	return s.extractor
}

// offerProfile caches the per-offer derived values a comparison needs
type offerProfile struct {
	offer  domain.Offer
	tokens map[string]struct{}
	attrs  domain.AttributeSet
	brand  string
}

func (s *MatchingService) profile(o domain.Offer) *offerProfile {
	return &offerProfile{
		offer:  o,
		tokens: s.normalizer.TokenSet(o.Title),
		attrs:  s.extractor.Extract(o.Title),
		brand:  s.extractor.GuessBrand(o.Title),
	}
}

// Score compares two offers. Stages short-circuit top to bottom:
//   - exact identifier (sku, ean, upc) gives confidence 1.0
//   - Jaccard over normalized title tokens
//   - brand and storage capacity agreement
//   - price affinity
//   - optional semantic similarity from the configured provider
func (s *MatchingService) Score(a, b domain.Offer) domain.MatchResult {
	if ExactIdentifierMatch(a, b) {
		return exactIdentifierResult()
	}
	return s.scoreFeatures(s.profile(a), s.profile(b))
}

// scoreProfiles is Score over precomputed profiles
func (s *MatchingService) scoreProfiles(a, b *offerProfile) domain.MatchResult {
	if ExactIdentifierMatch(a.offer, b.offer) {
		return exactIdentifierResult()
	}
	return s.scoreFeatures(a, b)
}

func exactIdentifierResult() domain.MatchResult {
	return domain.MatchResult{
		IsMatch:    true,
		Confidence: 1.0,
		MatchType:  domain.MatchTypeExactIdentifier,
	}
}

func (s *MatchingService) scoreFeatures(a, b *offerProfile) domain.MatchResult {
	result := domain.MatchResult{
		TitleScore:    Jaccard(a.tokens, b.tokens),
		PriceScore:    PriceAffinity(a.offer.Price, b.offer.Price),
		BrandMatch:    a.brand != "" && a.brand == b.brand,
		CapacityMatch: a.attrs.CapacityGB != nil && b.attrs.CapacityGB != nil && *a.attrs.CapacityGB == *b.attrs.CapacityGB,
	}

	fuzzy := result.TitleScore >= fuzzyTitleThreshold && result.BrandMatch

	if emb, ok := s.semanticScore(a.offer.Title, b.offer.Title); ok {
		result.SemanticScore = &emb
		result.Confidence = semanticTitleWeight*result.TitleScore +
			semanticPriceWeight*result.PriceScore +
			semanticEmbWeight*emb +
			indicator(result.BrandMatch, semanticBrandWeight) +
			indicator(result.CapacityMatch, semanticCapacityWeight)

		switch {
		case result.Confidence >= semanticMatchThreshold:
			result.IsMatch, result.MatchType = true, domain.MatchTypeSemantic
		case fuzzy:
			result.IsMatch, result.MatchType = true, domain.MatchTypeFuzzyText
		default:
			result.MatchType = domain.MatchTypeNoMatch
		}
	} else {
		result.Confidence = lexicalTitleWeight*result.TitleScore +
			lexicalPriceWeight*result.PriceScore +
			indicator(result.BrandMatch, lexicalBrandWeight) +
			indicator(result.CapacityMatch, lexicalCapacityWeight)

		if fuzzy {
			result.IsMatch, result.MatchType = true, domain.MatchTypeFuzzyText
		} else {
			result.MatchType = domain.MatchTypeNoMatch
		}
	}

	if s.enableDebugLogging {
		logger.Debug("scored offer pair",
			"a", a.offer.Title, "b", b.offer.Title,
			"title", result.TitleScore, "price", result.PriceScore,
			"brand", result.BrandMatch, "capacity", result.CapacityMatch,
			"confidence", result.Confidence, "type", result.MatchType)
	}

	return result
}

// semanticScore asks the provider and clamps its answer to [0, 1]
func (s *MatchingService) semanticScore(a, b string) (float64, bool) {
	sim, ok := s.similarity.Similarity(a, b)
	if !ok || math.IsNaN(sim) {
		return 0, false
	}
	return math.Min(math.Max(sim, 0), 1), true
}

func indicator(cond bool, weight float64) float64 {
	if cond {
		return weight
	}
	return 0
}

// ExactIdentifierMatch reports whether the offers share a sku, ean or upc.
// Comparison is trimmed and case-insensitive; empty identifiers never match.
func ExactIdentifierMatch(a, b domain.Offer) bool {
	return identifierEqual(a.SKU, b.SKU) ||
		identifierEqual(a.EAN, b.EAN) ||
		identifierEqual(a.UPC, b.UPC)
}

func identifierEqual(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && b != "" && strings.EqualFold(a, b)
}

// Jaccard returns |A∩B| / |A∪B|, or 0 when either set is empty
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	if inter == 0 {
		return 0
	}

	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// PriceAffinity returns 1 for identical prices, falling linearly with the
// relative difference; 0 when either price is missing or non-positive.
func PriceAffinity(p1, p2 float64) float64 {
	if p1 <= 0 || p2 <= 0 || math.IsNaN(p1) || math.IsNaN(p2) {
		return 0
	}
	ratio := math.Abs(p1-p2) / math.Max(p1, p2)
	return math.Max(0, 1-math.Min(ratio, 1))
}
