package http

import (
	"time"

	"github.com/samber/lo"

	"github.com/pricelens/backend/internal/domain"
)

// OfferDTO is the wire form of an offer. A null or non-positive price means
// the price is missing.
type OfferDTO struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	Currency    string   `json:"currency,omitempty"`
	Marketplace string   `json:"marketplace,omitempty"`
	IsAvailable bool     `json:"is_available"`
	URL         string   `json:"url,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Category    string   `json:"category,omitempty"`
	SKU         string   `json:"sku,omitempty"`
	EAN         string   `json:"ean,omitempty"`
	UPC         string   `json:"upc,omitempty"`
}

// AttributesDTO is the wire form of extracted attributes
type AttributesDTO struct {
	CapacityGB   *int     `json:"capacity_gb,omitempty"`
	RAMGB        *int     `json:"ram_gb,omitempty"`
	ScreenInches *float64 `json:"screen_inches,omitempty"`
	Color        string   `json:"color,omitempty"`
}

// GroupDTO is one cluster of offers for the same product
type GroupDTO struct {
	CanonicalTitle string        `json:"canonical_title"`
	Brand          string        `json:"brand,omitempty"`
	Category       string        `json:"category,omitempty"`
	Attributes     AttributesDTO `json:"attributes"`
	BestPrice      *float64      `json:"best_price"`
	MinPrice       *float64      `json:"min_price"`
	MaxPrice       *float64      `json:"max_price"`
	OfferCount     int           `json:"offer_count"`
	Offers         []OfferDTO    `json:"offers"`
}

// CompareRequest is the body of POST /api/v1/products/compare
type CompareRequest struct {
	Query     string     `json:"query"`
	Offers    []OfferDTO `json:"offers"`
	Threshold float64    `json:"threshold"`
}

// CompareResponse lists the groups found for a comparison
type CompareResponse struct {
	Query  string     `json:"query,omitempty"`
	Count  int        `json:"count"`
	Groups []GroupDTO `json:"groups"`
}

// ObservationDTO is one timestamped price
type ObservationDTO struct {
	Timestamp time.Time `json:"ts"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency,omitempty"`
}

// TrackedProductDTO is a product with its price history
type TrackedProductDTO struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Marketplace string           `json:"marketplace,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	URL         string           `json:"url,omitempty"`
	ImageURL    string           `json:"image_url,omitempty"`
	History     []ObservationDTO `json:"history"`
}

// PriceDropsRequest is the body of POST /api/v1/prices/drops. Omitted
// parameters use the configured defaults; omitted products are loaded from storage.
type PriceDropsRequest struct {
	WindowDays  *int                `json:"window_days"`
	MinDropPct  *float64            `json:"min_drop_pct"`
	MinZ        *float64            `json:"min_z"`
	SampleLimit *int                `json:"sample_limit"`
	Products    []TrackedProductDTO `json:"products"`
}

// PriceDropDTO is one detected drop
type PriceDropDTO struct {
	ProductID    string     `json:"product_id"`
	Name         string     `json:"name,omitempty"`
	Marketplace  string     `json:"marketplace,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	URL          string     `json:"url,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	CurrentPrice float64    `json:"current_price"`
	DropPct      float64    `json:"drop_pct"`
	PreviousMean float64    `json:"previous_mean"`
	PreviousStd  *float64   `json:"previous_std"`
	ZScore       *float64   `json:"z_score"`
	LastChangeAt *time.Time `json:"last_change_at,omitempty"`
}

// PriceDropsResponse lists the detected drops with the parameters used
type PriceDropsResponse struct {
	WindowDays  int            `json:"window_days"`
	MinDropPct  float64        `json:"min_drop_pct"`
	MinZ        float64        `json:"min_z"`
	SampleLimit int            `json:"sample_limit"`
	Count       int            `json:"count"`
	Items       []PriceDropDTO `json:"items"`
}

// PriceStatsDTO summarises a product's price history
type PriceStatsDTO struct {
	ProductID      string   `json:"product_id"`
	CurrentPrice   float64  `json:"current_price"`
	AveragePrice   float64  `json:"average_price"`
	LowestPrice    float64  `json:"lowest_price"`
	HighestPrice   float64  `json:"highest_price"`
	PriceChange7d  *float64 `json:"price_change_7d"`
	PriceChange30d *float64 `json:"price_change_30d"`
	Currency       string   `json:"currency,omitempty"`
}

// AlertRequest is the body of POST /api/v1/products/:id/alerts/evaluate
type AlertRequest struct {
	Type           string  `json:"type" binding:"required"`
	ThresholdValue float64 `json:"threshold_value"`
}

// AlertResponse reports whether an alert rule fires
type AlertResponse struct {
	ProductID string `json:"product_id"`
	Type      string `json:"type"`
	Triggered bool   `json:"triggered"`
}

func toOffer(d OfferDTO) domain.Offer {
	o := domain.Offer{
		ID:          d.ID,
		Title:       d.Title,
		Currency:    d.Currency,
		Marketplace: domain.ParseMarketplace(d.Marketplace),
		IsAvailable: d.IsAvailable,
		URL:         d.URL,
		ImageURL:    d.ImageURL,
		Category:    d.Category,
		SKU:         d.SKU,
		EAN:         d.EAN,
		UPC:         d.UPC,
	}
	if d.Price != nil {
		o.Price = *d.Price
	}
	return o
}

func fromOffer(o domain.Offer) OfferDTO {
	return OfferDTO{
		ID:          o.ID,
		Title:       o.Title,
		Price:       optionalPrice(o.Price, o.HasPrice()),
		Currency:    o.Currency,
		Marketplace: string(o.Marketplace),
		IsAvailable: o.IsAvailable,
		URL:         o.URL,
		ImageURL:    o.ImageURL,
		Category:    o.Category,
		SKU:         o.SKU,
		EAN:         o.EAN,
		UPC:         o.UPC,
	}
}

func fromGroup(g domain.AggregatedGroup) GroupDTO {
	return GroupDTO{
		CanonicalTitle: g.CanonicalTitle,
		Brand:          g.Brand,
		Category:       g.Category,
		Attributes: AttributesDTO{
			CapacityGB:   g.Attributes.CapacityGB,
			RAMGB:        g.Attributes.RAMGB,
			ScreenInches: g.Attributes.ScreenInches,
			Color:        g.Attributes.Color,
		},
		BestPrice:  optionalPrice(g.BestPrice()),
		MinPrice:   optionalPrice(g.MinPrice()),
		MaxPrice:   optionalPrice(g.MaxPrice()),
		OfferCount: len(g.Offers),
		Offers:     lo.Map(g.Offers, func(o domain.Offer, _ int) OfferDTO { return fromOffer(o) }),
	}
}

func toTrackedProduct(d TrackedProductDTO) domain.TrackedProduct {
	return domain.TrackedProduct{
		ID:          d.ID,
		Name:        d.Name,
		Marketplace: domain.ParseMarketplace(d.Marketplace),
		Currency:    d.Currency,
		URL:         d.URL,
		ImageURL:    d.ImageURL,
		History: lo.Map(d.History, func(o ObservationDTO, _ int) domain.PriceObservation {
			return domain.PriceObservation{Timestamp: o.Timestamp, Price: o.Price, Currency: o.Currency}
		}),
	}
}

func fromPriceDrop(r domain.PriceDropResult) PriceDropDTO {
	return PriceDropDTO{
		ProductID:    r.ProductID,
		Name:         r.Name,
		Marketplace:  string(r.Marketplace),
		Currency:     r.Currency,
		URL:          r.URL,
		ImageURL:     r.ImageURL,
		CurrentPrice: r.CurrentPrice,
		DropPct:      r.DropPct,
		PreviousMean: r.PreviousMean,
		PreviousStd:  r.PreviousStd,
		ZScore:       r.ZScore,
		LastChangeAt: r.LastChangeAt,
	}
}

func optionalPrice(p float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &p
}
