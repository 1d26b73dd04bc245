package domain

import "errors"

var (
	// ErrProductNotFound is returned when a product has no stored record or history
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInsufficientHistory is returned when a window holds fewer than two observations
	ErrInsufficientHistory = errors.New("insufficient price history")

	// ErrNonPositiveMean is returned when the prior mean price is not positive
	ErrNonPositiveMean = errors.New("prior mean price is not positive")

	// ErrBelowDropThreshold is returned when the drop percentage is under the minimum
	ErrBelowDropThreshold = errors.New("price drop below threshold")

	// ErrAboveZThreshold is returned when the z-score gate rejects a drop
	ErrAboveZThreshold = errors.New("z-score above threshold")

	// ErrCacheMiss is returned when a similarity score is not cached
	ErrCacheMiss = errors.New("cache miss")

	// ErrEmbeddingAPIFailure is returned when the embeddings service request fails
	ErrEmbeddingAPIFailure = errors.New("embeddings API request failed")
)
