package domain

import (
	"context"
	"time"
)

// SimilarityProvider scores the semantic closeness of two titles in [0, 1].
// ok is false when no score could be computed.
// Implementations must be symmetric and safe for concurrent use.
type SimilarityProvider interface {
	Similarity(a, b string) (score float64, ok bool)
}

// OfferRepository supplies candidate offers for comparison
type OfferRepository interface {
	ListOffers(ctx context.Context, query string, limit int) ([]Offer, error)
	GetOffer(ctx context.Context, id string) (*Offer, error)
}

// PriceHistoryRepository supplies historical price observations
type PriceHistoryRepository interface {
	History(ctx context.Context, productID string, since time.Time) ([]PriceObservation, error)
	TrackedProducts(ctx context.Context, since time.Time, limit int) ([]TrackedProduct, error)
}
