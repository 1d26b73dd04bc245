package embeddings

import (
	"fmt"
	"math"

	"github.com/pricelens/backend/internal/domain"
)

// orderVectors maps response items back to input positions
func orderVectors(resp embeddingResponse, want int) ([][]float64, error) {
	if len(resp.Data) != want {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrEmbeddingAPIFailure, want, len(resp.Data))
	}

	vectors := make([][]float64, want)
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= want || vectors[item.Index] != nil {
			return nil, fmt.Errorf("%w: bad embedding index %d", domain.ErrEmbeddingAPIFailure, item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// Cosine returns the cosine similarity of two vectors clamped to [0, 1].
// ok is false for mismatched lengths or a zero vector.
func Cosine(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0, false
	}
	return math.Min(math.Max(sim, 0), 1), true
}
