package config

import (
	"fmt"
	"time"

	"github.com/dicdwatch/dicdwatch/internal/utils"
)

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Source       SourceConfig       `mapstructure:"source"`
	Invalidation InvalidationConfig `mapstructure:"invalidation"`
	Analysis     AnalysisConfig     `mapstructure:"analysis"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort     int           `mapstructure:"http_port"` // HTTP server port
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"` // Max request body in bytes for inline analysis
}

// CacheConfig controls the temporal cache in front of the measurement source
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// SourceConfig selects and configures the measurement store
type SourceConfig struct {
	Type          string `mapstructure:"type"`           // redis (default), memory
	RedisURL      string `mapstructure:"redis_url"`      // e.g. redis://localhost:6379/0 or host:port
	RedisPassword string `mapstructure:"redis_password"` // Optional authentication
	RedisDB       int    `mapstructure:"redis_db"`       // Used when redis_url is a bare address
	KeyPrefix     string `mapstructure:"key_prefix"`     // Key namespace (default: "dicd")
	Compression   string `mapstructure:"compression"`    // none (default), snappy
	Timezone      string `mapstructure:"timezone"`       // Zone for date-only query parameters (e.g., "Asia/Tokyo", "+09:00", "UTC")
}

// InvalidationConfig configures the bus that tells every instance to drop its cache
type InvalidationConfig struct {
	Type     string `mapstructure:"type"`     // none (default), memory, nats, redis, kafka
	URL      string `mapstructure:"url"`      // Bus URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Subject  string `mapstructure:"subject"`  // Subject/topic/stream carrying invalidation events
	Password string `mapstructure:"password"` // Optional authentication
	NodeID   string `mapstructure:"node_id"`  // Unique per instance; used as consumer group so every node sees every event

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`
	RedisStream string `mapstructure:"redis_stream"` // Stream prefix (default: "dicd")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
}

// AnalysisConfig holds defaults for the analytics pipeline
type AnalysisConfig struct {
	HistogramBins int `mapstructure:"histogram_bins"` // 0 selects Sturges' rule
	CurvePoints   int `mapstructure:"curve_points"`   // Normal overlay resolution (min 100)
	DefaultDays   int `mapstructure:"default_days"`   // Window when neither days nor a date range is given
	MaxDays       int `mapstructure:"max_days"`       // Upper bound for the days parameter
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, Kitchen (console)
	Service    string `mapstructure:"service"`     // Added to every record as "service"
	NodeID     string `mapstructure:"node_id"`     // Added as "node_id"; empty omits it
	Caller     bool   `mapstructure:"caller"`      // Record file:line of the call site
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source config: %w", err)
	}

	if err := c.Invalidation.Validate(); err != nil {
		return fmt.Errorf("invalidation config: %w", err)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit cannot be negative")
	}

	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	return nil
}

// Validate validates source configuration
func (c *SourceConfig) Validate() error {
	switch c.Type {
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("source.redis_url is required for redis source")
		}
	case "memory":
	default:
		return fmt.Errorf("source.type must be 'redis' or 'memory'")
	}

	if c.Compression != "" && c.Compression != "none" && c.Compression != "snappy" {
		return fmt.Errorf("source.compression must be 'none' or 'snappy'")
	}

	if c.Timezone != "" && c.Location() == nil {
		return fmt.Errorf("source.timezone %q is not a valid zone", c.Timezone)
	}

	return nil
}

// Validate validates invalidation configuration
func (c *InvalidationConfig) Validate() error {
	switch c.Type {
	case "", "none", "memory":
		return nil
	case "nats", "redis":
		if c.URL == "" {
			return fmt.Errorf("invalidation.url is required for %s", c.Type)
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("invalidation.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("invalidation.type must be one of: none, memory, nats, redis, kafka")
	}

	if c.Subject == "" {
		return fmt.Errorf("invalidation.subject is required")
	}

	return nil
}

// Validate validates analysis configuration
func (c *AnalysisConfig) Validate() error {
	if c.HistogramBins < 0 || c.HistogramBins > utils.MaxHistogramBins {
		return fmt.Errorf("analysis.histogram_bins must be between 0 and %d", utils.MaxHistogramBins)
	}

	if c.CurvePoints > utils.MaxCurvePoints {
		return fmt.Errorf("analysis.curve_points cannot exceed %d", utils.MaxCurvePoints)
	}

	if c.DefaultDays < 1 {
		return fmt.Errorf("analysis.default_days must be at least 1")
	}

	if c.MaxDays < c.DefaultDays {
		return fmt.Errorf("analysis.max_days cannot be below analysis.default_days")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
