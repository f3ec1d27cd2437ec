package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid http port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 0 },
			wantErr: true,
		},
		{
			name:    "zero cache ttl",
			mutate:  func(c *Config) { c.Cache.TTL = 0 },
			wantErr: true,
		},
		{
			name:    "unknown source type",
			mutate:  func(c *Config) { c.Source.Type = "postgres" },
			wantErr: true,
		},
		{
			name:    "redis source without url",
			mutate:  func(c *Config) { c.Source.RedisURL = "" },
			wantErr: true,
		},
		{
			name:    "memory source without url",
			mutate:  func(c *Config) { c.Source.Type = "memory"; c.Source.RedisURL = "" },
			wantErr: false,
		},
		{
			name:    "unknown compression",
			mutate:  func(c *Config) { c.Source.Compression = "zstd" },
			wantErr: true,
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Source.Timezone = "Mars/Olympus" },
			wantErr: true,
		},
		{
			name:    "nats invalidation without url",
			mutate:  func(c *Config) { c.Invalidation.Type = "nats" },
			wantErr: true,
		},
		{
			name:    "kafka invalidation without brokers",
			mutate:  func(c *Config) { c.Invalidation.Type = "kafka" },
			wantErr: true,
		},
		{
			name: "redis invalidation",
			mutate: func(c *Config) {
				c.Invalidation.Type = "redis"
				c.Invalidation.URL = "redis://localhost:6379"
			},
			wantErr: false,
		},
		{
			name:    "max days below default days",
			mutate:  func(c *Config) { c.Analysis.MaxDays = 7 },
			wantErr: true,
		},
		{
			name:    "histogram bins above cap",
			mutate:  func(c *Config) { c.Analysis.HistogramBins = 1 << 40 },
			wantErr: true,
		},
		{
			name:    "curve points above cap",
			mutate:  func(c *Config) { c.Analysis.CurvePoints = 1 << 40 },
			wantErr: true,
		},
		{
			name:    "invalid logging level",
			mutate:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPPort != 5580 {
		t.Errorf("expected HTTPPort 5580, got %d", cfg.Server.HTTPPort)
	}

	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("expected cache TTL 5m, got %v", cfg.Cache.TTL)
	}

	if cfg.Analysis.CurvePoints != 100 {
		t.Errorf("expected 100 curve points, got %d", cfg.Analysis.CurvePoints)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.IsProduction() {
		t.Error("default config should be production mode")
	}

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"

	if !cfg.IsDevelopment() {
		t.Error("config with debug/console should be development mode")
	}

	if addr := cfg.GetServerAddress(); addr != "0.0.0.0:5580" {
		t.Errorf("expected '0.0.0.0:5580', got %s", addr)
	}

	if cfg.Invalidation.Enabled() {
		t.Error("invalidation should be disabled by default")
	}
	cfg.Invalidation.Type = "nats"
	if !cfg.Invalidation.Enabled() {
		t.Error("nats invalidation should be enabled")
	}
}

func TestSourceConfig_Location(t *testing.T) {
	tests := []struct {
		timezone   string
		wantOffset int
		wantNil    bool
	}{
		{"", 0, false},
		{"UTC", 0, false},
		{"+09:00", 9 * 3600, false},
		{"-05:30", -(5*3600 + 30*60), false},
		{"not-a-zone", 0, true},
	}

	ref := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		c := SourceConfig{Timezone: tt.timezone}
		loc := c.Location()
		if tt.wantNil {
			if loc != nil {
				t.Errorf("Location(%q) expected nil, got %v", tt.timezone, loc)
			}
			if c.LocationOrUTC() != time.UTC {
				t.Errorf("LocationOrUTC(%q) expected UTC", tt.timezone)
			}
			continue
		}
		if loc == nil {
			t.Fatalf("Location(%q) returned nil", tt.timezone)
		}
		if _, offset := ref.In(loc).Zone(); offset != tt.wantOffset {
			t.Errorf("Location(%q) offset = %d, expected %d", tt.timezone, offset, tt.wantOffset)
		}
	}
}

func TestLoad_FromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  http_port: 6000
cache:
  ttl: 10m
source:
  type: memory
analysis:
  histogram_bins: 12
  default_days: 7
logging:
  level: debug
  format: console
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("DICDWATCH_SERVER_HTTP_PORT", "7000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPPort != 7000 {
		t.Errorf("expected env override 7000, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("expected TTL 10m, got %v", cfg.Cache.TTL)
	}
	if cfg.Source.Type != "memory" {
		t.Errorf("expected memory source, got %s", cfg.Source.Type)
	}
	if cfg.Analysis.HistogramBins != 12 || cfg.Analysis.DefaultDays != 7 {
		t.Errorf("unexpected analysis config: %+v", cfg.Analysis)
	}
	if cfg.Analysis.MaxDays != 365 {
		t.Errorf("expected default max_days 365, got %d", cfg.Analysis.MaxDays)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  ttl: 0s\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for zero ttl")
	}

	cfg := LoadOrDefault(path)
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("LoadOrDefault should fall back to defaults, got ttl %v", cfg.Cache.TTL)
	}
}
