package domain

// MatchType classifies how two offers were judged
type MatchType string

const (
	MatchTypeExactIdentifier MatchType = "exact_identifier"
	MatchTypeFuzzyText       MatchType = "fuzzy_text"
	MatchTypeSemantic        MatchType = "semantic"
	MatchTypeNoMatch         MatchType = "no_match"
)

// MatchResult represents the outcome of comparing two offers
type MatchResult struct {
	IsMatch       bool      `json:"isMatch"`
	Confidence    float64   `json:"confidence"` // weighted score 0-1
	MatchType     MatchType `json:"matchType"`
	TitleScore    float64   `json:"titleScore"`
	PriceScore    float64   `json:"priceScore"`
	BrandMatch    bool      `json:"brandMatch"`
	CapacityMatch bool      `json:"capacityMatch"`

	// SemanticScore is set only when a similarity provider answered
	SemanticScore *float64 `json:"semanticScore,omitempty"`
}
