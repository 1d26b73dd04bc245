package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	PriceDrop  PriceDropConfig  `mapstructure:"price_drop"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// MatchingConfig holds offer matching and grouping configuration
type MatchingConfig struct {
	GroupThreshold     float64 `mapstructure:"group_threshold"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
	BrandsFile         string  `mapstructure:"brands_file"`
}

// PriceDropConfig holds price drop detector defaults
type PriceDropConfig struct {
	WindowDays  int     `mapstructure:"window_days"`
	MinDropPct  float64 `mapstructure:"min_drop_pct"`
	MinZ        float64 `mapstructure:"min_z"`
	SampleLimit int     `mapstructure:"sample_limit"`
	TopN        int     `mapstructure:"top_n"`
	Workers     int     `mapstructure:"workers"`
}

// SimilarityConfig holds the optional embeddings provider configuration
type SimilarityConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	CacheSize  int           `mapstructure:"cache_size"`
	RatePerSec float64       `mapstructure:"rate_per_sec"`
	Burst      int           `mapstructure:"burst"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// PRICELENS_PRICE_DROP_WINDOW_DAYS maps to price_drop.window_days
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Matching defaults
	v.SetDefault("matching.group_threshold", usecase.DefaultGroupThreshold)
	v.SetDefault("matching.enable_debug_logging", false)
	v.SetDefault("matching.brands_file", "")

	// Price drop defaults
	drop := usecase.DefaultDropParams()
	v.SetDefault("price_drop.window_days", drop.WindowDays)
	v.SetDefault("price_drop.min_drop_pct", drop.MinDropPct)
	v.SetDefault("price_drop.min_z", drop.MinZ)
	v.SetDefault("price_drop.sample_limit", drop.SampleLimit)
	v.SetDefault("price_drop.top_n", usecase.DefaultTopN)
	v.SetDefault("price_drop.workers", usecase.DefaultWorkers)

	// Similarity defaults
	v.SetDefault("similarity.enabled", false)
	v.SetDefault("similarity.base_url", "https://api.openai.com")
	v.SetDefault("similarity.api_key", "")
	v.SetDefault("similarity.model", "text-embedding-3-small")
	v.SetDefault("similarity.cache_size", 2048)
	v.SetDefault("similarity.rate_per_sec", 5)
	v.SetDefault("similarity.burst", 10)
	v.SetDefault("similarity.timeout", "10s")

	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./data/pricelens.db")
}

// DropParams returns the configured detector parameters
func (c PriceDropConfig) DropParams() domain.DropParams {
	return domain.DropParams{
		WindowDays:  c.WindowDays,
		MinDropPct:  c.MinDropPct,
		MinZ:        c.MinZ,
		SampleLimit: c.SampleLimit,
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Matching.GroupThreshold <= 0 || config.Matching.GroupThreshold > 1 {
		return fmt.Errorf("matching group_threshold must be in (0, 1], got: %v", config.Matching.GroupThreshold)
	}

	if err := usecase.ValidateDropParams(config.PriceDrop.DropParams()); err != nil {
		return fmt.Errorf("price_drop: %w", err)
	}

	if config.Similarity.Enabled && config.Similarity.BaseURL == "" {
		return fmt.Errorf("similarity base_url is required when similarity is enabled")
	}

	if config.Storage.Driver != "sqlite" {
		return fmt.Errorf("storage driver must be 'sqlite', got: %s", config.Storage.Driver)
	}

	if f := config.Logging.Format; f != "text" && f != "json" {
		return fmt.Errorf("logging format must be 'text' or 'json', got: %s", f)
	}

	return nil
}
