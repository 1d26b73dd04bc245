package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pricelens/backend/config"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/embeddings"
	"github.com/pricelens/backend/internal/infrastructure/sqlite"
	"github.com/pricelens/backend/internal/logger"
	"github.com/pricelens/backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", "text")
		logger.Fatal("failed to load configuration", logger.Err(err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting PriceLens backend",
		"version", "1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port)

	vocab, err := config.LoadVocabulary(cfg.Matching.BrandsFile)
	if err != nil {
		logger.Fatal("failed to load vocabulary", "path", cfg.Matching.BrandsFile, logger.Err(err))
	}

	// Initialize infrastructure dependencies
	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("failed to open storage", "path", cfg.Storage.Path, logger.Err(err))
	}
	defer store.Close()
	logger.Info("storage ready", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)

	normalizer := usecase.NewNormalizer(vocab.PromoWords)
	similarity, err := newSimilarityProvider(cfg.Similarity, normalizer, cfg.Server.Environment == "development")
	if err != nil {
		logger.Fatal("failed to set up similarity provider", logger.Err(err))
	}

	// Initialize usecase layer
	matcher := usecase.NewMatchingService(usecase.MatchConfig{
		Normalizer:         normalizer,
		Extractor:          usecase.NewAttributeExtractor(vocab),
		Similarity:         similarity,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	})
	grouping := usecase.NewGroupingService(matcher, cfg.Matching.GroupThreshold, cfg.Matching.EnableDebugLogging)
	compare := usecase.NewCompareService(store, grouping, usecase.CompareServiceConfig{})
	drops := usecase.NewPriceDropService(usecase.PriceDropConfig{
		TopN:               cfg.PriceDrop.TopN,
		Workers:            cfg.PriceDrop.Workers,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	})

	logger.Info("matching configured",
		"group_threshold", grouping.Threshold(),
		"brands", len(vocab.Brands),
		"semantic", cfg.Similarity.Enabled,
		"debug", cfg.Matching.EnableDebugLogging)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(compare, drops, store, cfg.PriceDrop.DropParams())
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", logger.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", logger.Err(err))
	}
}

// newSimilarityProvider returns the cached embeddings provider, or
// NoopSimilarity when semantic matching is disabled
func newSimilarityProvider(cfg config.SimilarityConfig, normalizer *usecase.Normalizer, debug bool) (domain.SimilarityProvider, error) {
	if !cfg.Enabled {
		return usecase.NoopSimilarity{}, nil
	}

	client := embeddings.NewClient(embeddings.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		RatePerSec: cfg.RatePerSec,
		Burst:      cfg.Burst,
		Timeout:    cfg.Timeout,
	})
	client.SetDebug(debug)

	similarityCache, err := cache.NewSimilarityCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	if cfg.APIKey == "" {
		logger.Warn("similarity enabled without api key", "base_url", cfg.BaseURL)
	}
	logger.Info("semantic similarity enabled", "base_url", cfg.BaseURL, "model", cfg.Model, "cache_size", cfg.CacheSize)

	return cache.NewCachedProvider(client, similarityCache, normalizer.Normalize), nil
}
