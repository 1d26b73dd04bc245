package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
)

// stubSimilarity answers every pair with a fixed score
type stubSimilarity struct {
	score float64
	ok    bool
	calls int
}

func (s *stubSimilarity) Similarity(string, string) (float64, bool) {
	s.calls++
	return s.score, s.ok
}

func offer(title string, price float64, marketplace domain.Marketplace) domain.Offer {
	return domain.Offer{
		ID:          title + "@" + string(marketplace),
		Title:       title,
		Price:       price,
		Currency:    "XOF",
		Marketplace: marketplace,
		IsAvailable: true,
	}
}

func TestNewMatchingService(t *testing.T) {
	t.Run("fills missing collaborators", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{})
		assert.NotNil(t, svc.Normalizer())
		assert.NotNil(t, svc.Extractor())
		assert.IsType(t, NoopSimilarity{}, svc.similarity)
	})

	t.Run("keeps provided collaborators", func(t *testing.T) {
		stub := &stubSimilarity{}
		n := NewNormalizer(nil)
		svc := NewMatchingService(MatchConfig{Normalizer: n, Similarity: stub})
		assert.Same(t, n, svc.Normalizer())
		assert.Same(t, stub, svc.similarity)
	})
}

func TestScore_ExactIdentifier(t *testing.T) {
	svc := NewMatchingService(MatchConfig{})

	tests := []struct {
		name string
		a, b domain.Offer
	}{
		{
			name: "sku trimmed and case-insensitive",
			a:    domain.Offer{Title: "iPhone 13", Price: 500000, SKU: " ABC-123 "},
			b:    domain.Offer{Title: "Samsung A14", Price: 90000, SKU: "abc-123"},
		},
		{
			name: "ean",
			a:    domain.Offer{Title: "Foo", EAN: "4006381333931"},
			b:    domain.Offer{Title: "Bar", EAN: "4006381333931"},
		},
		{
			name: "upc",
			a:    domain.Offer{Title: "Foo", Price: 1, UPC: "012345678905"},
			b:    domain.Offer{Title: "Bar", Price: 1000, UPC: "012345678905 "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Score(tt.a, tt.b)
			assert.True(t, got.IsMatch)
			assert.Equal(t, 1.0, got.Confidence)
			assert.Equal(t, domain.MatchTypeExactIdentifier, got.MatchType)
		})
	}
}

func TestScore_ExactIdentifierSkipsSemanticStage(t *testing.T) {
	stub := &stubSimilarity{score: 0.1, ok: true}
	svc := NewMatchingService(MatchConfig{Similarity: stub})

	got := svc.Score(domain.Offer{Title: "a", SKU: "X"}, domain.Offer{Title: "b", SKU: "x"})
	assert.Equal(t, domain.MatchTypeExactIdentifier, got.MatchType)
	assert.Zero(t, stub.calls)
}

func TestExactIdentifierMatch_EmptyNeverMatches(t *testing.T) {
	assert.False(t, ExactIdentifierMatch(domain.Offer{}, domain.Offer{}))
	assert.False(t, ExactIdentifierMatch(domain.Offer{SKU: "  "}, domain.Offer{SKU: " "}))
	assert.False(t, ExactIdentifierMatch(domain.Offer{SKU: "A"}, domain.Offer{EAN: "A"}))
}

func TestJaccard(t *testing.T) {
	set := func(tokens ...string) map[string]struct{} {
		m := make(map[string]struct{})
		for _, tok := range tokens {
			m[tok] = struct{}{}
		}
		return m
	}

	assert.Equal(t, 0.5, Jaccard(set("a", "b", "c"), set("b", "c", "d")))
	assert.Equal(t, 1.0, Jaccard(set("a"), set("a")))
	assert.Equal(t, 0.0, Jaccard(set("a"), set("b")))
	assert.Equal(t, 0.0, Jaccard(set(), set("a")))
	assert.Equal(t, 0.0, Jaccard(set("a"), nil))
}

func TestPriceAffinity(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 float64
		want   float64
	}{
		{"identical", 100, 100, 1.0},
		{"double", 100, 200, 0.5},
		{"symmetric double", 200, 100, 0.5},
		{"zero price", 0, 100, 0.0},
		{"missing second", 100, 0, 0.0},
		{"negative", -5, 100, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PriceAffinity(tt.p1, tt.p2))
		})
	}
}

func TestScore_LexicalRegime(t *testing.T) {
	svc := NewMatchingService(MatchConfig{})

	t.Run("capacity and brand lift a partial title match", func(t *testing.T) {
		got := svc.Score(
			offer("iPhone 13 128GB", 500000, domain.MarketplaceJumia),
			offer("iPhone 13 128Go", 510000, domain.MarketplaceAmazon),
		)

		want := 0.55*0.5 + 0.25*(1-10000.0/510000.0) + 0.12 + 0.08
		assert.InDelta(t, want, got.Confidence, 1e-9)
		assert.InDelta(t, 0.5, got.TitleScore, 1e-9)
		assert.True(t, got.BrandMatch)
		assert.True(t, got.CapacityMatch)
		assert.False(t, got.IsMatch, "title score below the fuzzy threshold")
		assert.Equal(t, domain.MatchTypeNoMatch, got.MatchType)
		assert.Nil(t, got.SemanticScore)
	})

	t.Run("same title and brand is a fuzzy match", func(t *testing.T) {
		got := svc.Score(
			offer("Samsung Galaxy A14 128GB Noir", 90000, domain.MarketplaceJumia),
			offer("SAMSUNG Galaxy A14 128GB noir - Promo", 95000, domain.MarketplaceAmazon),
		)

		want := 0.55*1 + 0.25*(1-5000.0/95000.0) + 0.12 + 0.08
		assert.InDelta(t, want, got.Confidence, 1e-9)
		assert.True(t, got.IsMatch)
		assert.Equal(t, domain.MatchTypeFuzzyText, got.MatchType)
	})

	t.Run("identical titles without a brand do not match", func(t *testing.T) {
		got := svc.Score(
			offer("Generic USB cable 1m", 1000, domain.MarketplaceJumia),
			offer("Generic USB cable 1m", 1000, domain.MarketplaceAmazon),
		)

		assert.InDelta(t, 0.80, got.Confidence, 1e-9)
		assert.False(t, got.BrandMatch)
		assert.False(t, got.IsMatch)
		assert.Equal(t, domain.MatchTypeNoMatch, got.MatchType)
	})

	t.Run("missing price degrades price score to zero", func(t *testing.T) {
		got := svc.Score(
			offer("Nokia 105 Black", 0, domain.MarketplaceJumia),
			offer("Nokia 105 Black", 12000, domain.MarketplaceAmazon),
		)

		assert.Equal(t, 0.0, got.PriceScore)
		assert.InDelta(t, 0.55+0.12, got.Confidence, 1e-9)
		assert.True(t, got.IsMatch)
	})

	t.Run("empty titles score zero on text", func(t *testing.T) {
		got := svc.Score(offer("", 100, domain.MarketplaceJumia), offer("", 100, domain.MarketplaceAmazon))

		assert.Equal(t, 0.0, got.TitleScore)
		assert.InDelta(t, 0.25, got.Confidence, 1e-9)
		assert.Equal(t, domain.MatchTypeNoMatch, got.MatchType)
	})
}

func TestScore_SemanticRegime(t *testing.T) {
	a := offer("Samsung Galaxy A14 128GB", 90000, domain.MarketplaceJumia)
	b := offer("Samsung Galaxy A14 128GB", 90000, domain.MarketplaceAmazon)

	t.Run("high combined score is semantic", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{Similarity: &stubSimilarity{score: 0.9, ok: true}})
		got := svc.Score(a, b)

		assert.InDelta(t, 0.40+0.20+0.20*0.9+0.12+0.08, got.Confidence, 1e-9)
		assert.True(t, got.IsMatch)
		assert.Equal(t, domain.MatchTypeSemantic, got.MatchType)
		require.NotNil(t, got.SemanticScore)
		assert.Equal(t, 0.9, *got.SemanticScore)
	})

	t.Run("falls back to fuzzy when semantic score is low", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{Similarity: &stubSimilarity{score: 0, ok: true}})
		unpriced := b
		unpriced.Price = 0
		got := svc.Score(a, unpriced)

		assert.InDelta(t, 0.40+0.12+0.08, got.Confidence, 1e-9)
		assert.True(t, got.IsMatch)
		assert.Equal(t, domain.MatchTypeFuzzyText, got.MatchType)
	})

	t.Run("negative similarity is clamped to zero", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{Similarity: &stubSimilarity{score: -0.4, ok: true}})
		got := svc.Score(a, b)

		require.NotNil(t, got.SemanticScore)
		assert.Equal(t, 0.0, *got.SemanticScore)
	})

	t.Run("similarity above one is capped", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{Similarity: &stubSimilarity{score: 1.7, ok: true}})
		got := svc.Score(a, b)

		require.NotNil(t, got.SemanticScore)
		assert.Equal(t, 1.0, *got.SemanticScore)
		assert.InDelta(t, 1.0, got.Confidence, 1e-9)
	})

	t.Run("unavailable similarity uses the lexical regime", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{Similarity: &stubSimilarity{ok: false}})
		got := svc.Score(a, b)

		assert.Nil(t, got.SemanticScore)
		assert.InDelta(t, 0.55+0.25+0.12+0.08, got.Confidence, 1e-9)
		assert.Equal(t, domain.MatchTypeFuzzyText, got.MatchType)
	})
}

func TestScore_Symmetric(t *testing.T) {
	offers := []domain.Offer{
		offer("iPhone 13 128GB", 500000, domain.MarketplaceJumia),
		offer("iPhone 13 128Go", 510000, domain.MarketplaceAmazon),
		offer("Samsung A14", 90000, domain.MarketplaceJumia),
		offer("Redmi Note 12 8GB RAM 256GB Bleu", 0, domain.MarketplaceAliExpress),
		offer("Xiaomi Redmi Note 12 256Go", 150000, domain.MarketplaceJumia),
		offer("", 1000, domain.MarketplaceUnknown),
	}

	svc := NewMatchingService(MatchConfig{})
	for i := range offers {
		for j := range offers {
			assert.Equal(t, svc.Score(offers[i], offers[j]), svc.Score(offers[j], offers[i]),
				"score(%q, %q)", offers[i].Title, offers[j].Title)
		}
	}
}
