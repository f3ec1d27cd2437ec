package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")              // Current directory
		v.AddConfigPath("./configs")      // Project configs directory
		v.AddConfigPath("./config")       // Alternative config directory
		v.AddConfigPath("/etc/dicdwatch") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides (DICDWATCH_SOURCE_REDIS_URL, ...)
	v.SetEnvPrefix("DICDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5580)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.body_limit", 16*1024*1024)

	// Cache defaults
	v.SetDefault("cache.ttl", "5m")

	// Source defaults
	v.SetDefault("source.type", "redis")
	v.SetDefault("source.redis_url", "redis://localhost:6379/0")
	v.SetDefault("source.key_prefix", "dicd")
	v.SetDefault("source.compression", "none")
	v.SetDefault("source.timezone", "UTC")

	// Invalidation defaults
	v.SetDefault("invalidation.type", "none")
	v.SetDefault("invalidation.subject", "dicd.cache.invalidate")
	v.SetDefault("invalidation.redis_stream", "dicd")

	// Analysis defaults
	v.SetDefault("analysis.histogram_bins", 0)
	v.SetDefault("analysis.curve_points", 100)
	v.SetDefault("analysis.default_days", 30)
	v.SetDefault("analysis.max_days", 365)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
	v.SetDefault("logging.service", "dicdwatch")
	v.SetDefault("logging.caller", false)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5580,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			BodyLimit:    16 * 1024 * 1024,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Source: SourceConfig{
			Type:        "redis",
			RedisURL:    "redis://localhost:6379/0",
			KeyPrefix:   "dicd",
			Compression: "none",
			Timezone:    "UTC",
		},
		Invalidation: InvalidationConfig{
			Type:        "none",
			Subject:     "dicd.cache.invalidate",
			RedisStream: "dicd",
		},
		Analysis: AnalysisConfig{
			HistogramBins: 0,
			CurvePoints:   100,
			DefaultDays:   30,
			MaxDays:       365,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			Service:    "dicdwatch",
		},
	}
}
