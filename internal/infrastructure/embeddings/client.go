package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/logger"
)

const (
	maxAttempts    = 3
	defaultTimeout = 10 * time.Second
	defaultModel   = "text-embedding-3-small"
)

// Config holds the embeddings endpoint settings
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	RatePerSec float64
	Burst      int
	Timeout    time.Duration
}

// Client computes title similarity through an OpenAI-compatible embeddings API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	timeout     time.Duration
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new embeddings API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       model,
		timeout:     timeout,
		rateLimiter: rate.NewLimiter(limit, burst),
	}
}

// SetDebug enables or disables per-request debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingItem struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

type embeddingResponse struct {
	Data []embeddingItem `json:"data"`
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// Embed returns one vector per input, in input order.
// Transport failures and non-2xx answers are retried up to three times;
// 4xx answers other than 429 fail immediately.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := c.baseURL + "/v1/embeddings"

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		vectors, retry, err := c.post(ctx, endpoint, body, len(inputs))
		if err == nil {
			if c.debug {
				logger.Debug("embeddings request succeeded", "inputs", len(inputs), "attempt", attempt)
			}
			return vectors, nil
		}

		logger.Warn("embeddings request failed", "attempt", attempt, logger.Err(err))
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, lastErr
}

// post performs one request. retry reports whether the failure is transient.
func (c *Client) post(ctx context.Context, endpoint string, body []byte, want int) ([][]float64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PriceLens/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingAPIFailure, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: failed to read body: %v", domain.ErrEmbeddingAPIFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return nil, retry, fmt.Errorf("%w: status %d, body: %s", domain.ErrEmbeddingAPIFailure, resp.StatusCode, string(payload))
	}

	var decoded embeddingResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, false, fmt.Errorf("%w: failed to decode response: %v", domain.ErrEmbeddingAPIFailure, err)
	}

	vectors, err := orderVectors(decoded, want)
	if err != nil {
		return nil, false, err
	}
	return vectors, false, nil
}

// Similarity embeds both titles and returns their cosine similarity clamped
// to [0, 1]. Any failure is reported as an unavailable score.
func (c *Client) Similarity(a, b string) (float64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout*maxAttempts)
	defer cancel()

	vectors, err := c.Embed(ctx, []string{a, b})
	if err != nil {
		return 0, false
	}
	return Cosine(vectors[0], vectors[1])
}
