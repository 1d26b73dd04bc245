package domain

import "time"

// PriceObservation is one historical scrape of a product price
type PriceObservation struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
}

// TrackedProduct is a product together with its price history, ordered by timestamp
type TrackedProduct struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Marketplace Marketplace        `json:"marketplace"`
	Currency    string             `json:"currency"`
	URL         string             `json:"url,omitempty"`
	ImageURL    string             `json:"imageUrl,omitempty"`
	History     []PriceObservation `json:"history"`
}

// PriceDropResult describes a statistically significant price drop
type PriceDropResult struct {
	ProductID    string   `json:"productId"`
	CurrentPrice float64  `json:"currentPrice"`
	DropPct      float64  `json:"dropPct"`
	PreviousMean float64  `json:"previousMean"`
	PreviousStd  *float64 `json:"previousStd,omitempty"`
	ZScore       *float64 `json:"zScore,omitempty"`

	// Filled from the product record in batch runs
	Name         string      `json:"name,omitempty"`
	Marketplace  Marketplace `json:"marketplace,omitempty"`
	Currency     string      `json:"currency,omitempty"`
	URL          string      `json:"url,omitempty"`
	ImageURL     string      `json:"imageUrl,omitempty"`
	LastChangeAt *time.Time  `json:"lastChangeAt,omitempty"`
}

// DropParams is the configuration surface of the price-drop detector
type DropParams struct {
	WindowDays  int     `json:"windowDays"`
	MinDropPct  float64 `json:"minDropPct"`
	MinZ        float64 `json:"minZ"`
	SampleLimit int     `json:"sampleLimit"`
}

// PriceHistoryStats summarises a product's price history
type PriceHistoryStats struct {
	CurrentPrice   float64  `json:"currentPrice"`
	AveragePrice   float64  `json:"averagePrice"`
	LowestPrice    float64  `json:"lowestPrice"`
	HighestPrice   float64  `json:"highestPrice"`
	PriceChange7d  *float64 `json:"priceChange7d,omitempty"`  // percent
	PriceChange30d *float64 `json:"priceChange30d,omitempty"` // percent
	Currency       string   `json:"currency"`
}

// AlertType selects the condition an alert rule checks
type AlertType string

const (
	AlertTypeTargetPrice    AlertType = "target_price"
	AlertTypePercentageDrop AlertType = "percentage_drop"
	AlertTypeAvailability   AlertType = "availability"
)

// AlertRule is a user-defined trigger on a tracked product
type AlertRule struct {
	Type           AlertType `json:"type"`
	ThresholdValue float64   `json:"thresholdValue"`
}
