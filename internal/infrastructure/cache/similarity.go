package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/logger"
)

// DefaultSize is the number of title pairs kept when no size is configured
const DefaultSize = 2048

// pairKey identifies an unordered pair of titles
type pairKey struct {
	a, b string
}

func newPairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// SimilarityCache is a bounded, thread-safe LRU of title pair similarity scores.
// The pair is unordered: Get(a, b) finds a value stored with Add(b, a).
type SimilarityCache struct {
	entries *lru.Cache[pairKey, float64]
}

// NewSimilarityCache creates a cache holding at most size pairs
func NewSimilarityCache(size int) (*SimilarityCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[pairKey, float64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create similarity cache: %w", err)
	}
	return &SimilarityCache{entries: entries}, nil
}

// Get returns the cached score of a pair or domain.ErrCacheMiss
func (c *SimilarityCache) Get(a, b string) (float64, error) {
	score, ok := c.entries.Get(newPairKey(a, b))
	if !ok {
		return 0, domain.ErrCacheMiss
	}
	return score, nil
}

// Add stores the score of a pair, evicting the least recently used pair when full
func (c *SimilarityCache) Add(a, b string, score float64) {
	c.entries.Add(newPairKey(a, b), score)
}

// Len returns the current number of cached pairs
func (c *SimilarityCache) Len() int {
	return c.entries.Len()
}

// Purge removes every cached pair
func (c *SimilarityCache) Purge() {
	c.entries.Purge()
}

// CachedProvider memoizes a SimilarityProvider. Only answered pairs are
// cached, so an unavailable provider is asked again next time.
type CachedProvider struct {
	next  domain.SimilarityProvider
	cache *SimilarityCache
	key   func(string) string
}

// NewCachedProvider wraps next with cache. key canonicalizes titles before
// lookup; nil uses the raw title.
func NewCachedProvider(next domain.SimilarityProvider, cache *SimilarityCache, key func(string) string) *CachedProvider {
	if key == nil {
		key = func(s string) string { return s }
	}
	return &CachedProvider{next: next, cache: cache, key: key}
}

// Similarity returns the cached score of the pair, asking the wrapped provider on a miss
func (p *CachedProvider) Similarity(a, b string) (float64, bool) {
	ka, kb := p.key(a), p.key(b)

	if score, err := p.cache.Get(ka, kb); err == nil {
		return score, true
	}

	score, ok := p.next.Similarity(a, b)
	if !ok {
		return 0, false
	}
	p.cache.Add(ka, kb, score)

	logger.Debug("cached similarity", "a", ka, "b", kb, "score", score, "size", p.cache.Len())
	return score, true
}
