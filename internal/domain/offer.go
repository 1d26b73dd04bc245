package domain

import "strings"

// Marketplace identifies the e-commerce source an offer was scraped from
type Marketplace string

const (
	MarketplaceJumia      Marketplace = "jumia"
	MarketplaceAmazon     Marketplace = "amazon"
	MarketplaceAliExpress Marketplace = "aliexpress"
	MarketplaceUnknown    Marketplace = "unknown"
)

// ParseMarketplace maps a free-form source tag to a known marketplace
func ParseMarketplace(s string) Marketplace {
	switch Marketplace(strings.ToLower(strings.TrimSpace(s))) {
	case MarketplaceJumia:
		return MarketplaceJumia
	case MarketplaceAmazon:
		return MarketplaceAmazon
	case MarketplaceAliExpress:
		return MarketplaceAliExpress
	default:
		return MarketplaceUnknown
	}
}

// Offer is an immutable snapshot of one marketplace listing.
// A Price <= 0 means the listing carried no usable price.
type Offer struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Price       float64     `json:"price"`
	Currency    string      `json:"currency"`
	Marketplace Marketplace `json:"marketplace"`
	IsAvailable bool        `json:"isAvailable"`
	URL         string      `json:"url"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Category    string      `json:"category,omitempty"`

	// Exact identifiers, optional
	SKU string `json:"sku,omitempty"`
	EAN string `json:"ean,omitempty"`
	UPC string `json:"upc,omitempty"`
}

// HasPrice reports whether the offer carries a positive price
func (o Offer) HasPrice() bool {
	return o.Price > 0
}

// AttributeSet holds the structured facets extracted from a title.
// Nil pointers and empty strings mean the facet is absent.
type AttributeSet struct {
	CapacityGB   *int     `json:"capacity_gb,omitempty"`
	RAMGB        *int     `json:"ram_gb,omitempty"`
	ScreenInches *float64 `json:"screen_inches,omitempty"`
	Color        string   `json:"color,omitempty"`
}

// IsEmpty reports whether no facet was extracted
func (a AttributeSet) IsEmpty() bool {
	return a.CapacityGB == nil && a.RAMGB == nil && a.ScreenInches == nil && a.Color == ""
}

// AggregatedGroup is a cluster of offers believed to describe the same product.
// Offers[0] is the representative until the final price sort.
type AggregatedGroup struct {
	CanonicalTitle string       `json:"canonicalTitle"`
	Brand          string       `json:"brand,omitempty"`
	Category       string       `json:"category,omitempty"`
	Attributes     AttributeSet `json:"attributes"`
	Offers         []Offer      `json:"offers"`
}

// BestPrice returns the lowest defined price in the group
func (g *AggregatedGroup) BestPrice() (float64, bool) {
	return g.MinPrice()
}

// MinPrice returns the lowest defined price in the group
func (g *AggregatedGroup) MinPrice() (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, o := range g.Offers {
		if !o.HasPrice() {
			continue
		}
		if !found || o.Price < best {
			best = o.Price
			found = true
		}
	}
	return best, found
}

// MaxPrice returns the highest defined price in the group
func (g *AggregatedGroup) MaxPrice() (float64, bool) {
	var (
		worst float64
		found bool
	)
	for _, o := range g.Offers {
		if !o.HasPrice() {
			continue
		}
		if !found || o.Price > worst {
			worst = o.Price
			found = true
		}
	}
	return worst, found
}
