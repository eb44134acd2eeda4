package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/precioscl/backend/internal/infrastructure/export"
	"github.com/precioscl/backend/internal/infrastructure/ingest"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Ingest     IngestConfig
	Matching   MatchingConfig
	Enrichment EnrichmentConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
	Export     ExportConfig
	Log        LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// IngestConfig controls where raw scraper payloads are read from
type IngestConfig struct {
	Dir              string   `mapstructure:"dir"`
	Patterns         []string `mapstructure:"patterns"`
	Workers          int      `mapstructure:"workers"`
	FallbackEncoding string   `mapstructure:"fallback_encoding"`
}

// MatchingConfig holds the cross-retailer matching thresholds
type MatchingConfig struct {
	MinTokenSimilarity     int     `mapstructure:"min_token_similarity"`
	MinAttrScore           float64 `mapstructure:"min_attr_score"`
	HighSimilarityOverride int     `mapstructure:"high_similarity_override"`
	EnableDebugLogging     bool    `mapstructure:"enable_debug_logging"`
}

// EnrichmentConfig holds the enrichment service configuration
type EnrichmentConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	MinConfidence     float64       `mapstructure:"min_confidence"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// ExportConfig controls run exports
type ExportConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadWithFlags(nil, nil)
}

// LoadWithFlags is Load with command line overrides. bindings maps a config
// key (e.g. "ingest.dir") to a flag name; only flags the user set override.
func LoadWithFlags(flags *pflag.FlagSet, bindings map[string]string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/precioscl/")

	// Environment variable settings
	v.SetEnvPrefix("PRECIOSCL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	if flags != nil {
		for key, name := range bindings {
			flag := flags.Lookup(name)
			if flag == nil {
				return nil, fmt.Errorf("unknown flag %q bound to %s", name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("unable to bind flag %s: %w", name, err)
			}
		}
	}

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

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile reads ./.env into the process environment. Variables that
// are already set keep their values; a missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return gotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Ingest defaults
	v.SetDefault("ingest.dir", "./data/raw")
	v.SetDefault("ingest.patterns", []string{"*.json"})
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.fallback_encoding", "windows-1252")

	// Matching defaults
	v.SetDefault("matching.min_token_similarity", 85)
	v.SetDefault("matching.min_attr_score", 0.6)
	v.SetDefault("matching.high_similarity_override", 95)
	v.SetDefault("matching.enable_debug_logging", false)

	// Enrichment defaults
	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("enrichment.base_url", "")
	v.SetDefault("enrichment.api_key", "")
	v.SetDefault("enrichment.min_confidence", 0.7)
	v.SetDefault("enrichment.requests_per_second", 2)
	v.SetDefault("enrichment.burst", 5)
	v.SetDefault("enrichment.timeout", "30s")

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)

	// Export defaults
	v.SetDefault("export.dir", "./data/out")
	v.SetDefault("export.format", "json")

	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	m := config.Matching
	if m.MinTokenSimilarity < 0 || m.MinTokenSimilarity > 100 {
		return fmt.Errorf("matching.min_token_similarity must be within [0,100], got: %d", m.MinTokenSimilarity)
	}
	if m.MinAttrScore < 0 || m.MinAttrScore > 1 {
		return fmt.Errorf("matching.min_attr_score must be within [0,1], got: %v", m.MinAttrScore)
	}
	if m.HighSimilarityOverride < 0 || m.HighSimilarityOverride > 100 {
		return fmt.Errorf("matching.high_similarity_override must be within [0,100], got: %d", m.HighSimilarityOverride)
	}

	if len(config.Ingest.Patterns) == 0 {
		return fmt.Errorf("ingest.patterns must not be empty")
	}
	if config.Ingest.Workers < 1 {
		return fmt.Errorf("ingest.workers must be at least 1, got: %d", config.Ingest.Workers)
	}
	if _, err := ingest.LookupEncoding(config.Ingest.FallbackEncoding); err != nil {
		return fmt.Errorf("ingest.fallback_encoding: %w", err)
	}

	if _, err := export.ParseFormat(config.Export.Format); err != nil {
		return fmt.Errorf("export.format: %w", err)
	}

	if config.Enrichment.Enabled && config.Enrichment.BaseURL == "" {
		return fmt.Errorf("enrichment base URL is required when enrichment is enabled (set PRECIOSCL_ENRICHMENT_BASE_URL)")
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(config.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}
