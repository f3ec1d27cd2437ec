package source

import (
	"fmt"

	"github.com/dicdwatch/dicdwatch/internal/config"
	"github.com/dicdwatch/dicdwatch/internal/logging"
)

// NewFromConfig creates the configured Source and a function releasing its resources
func NewFromConfig(cfg config.SourceConfig, logger *logging.Logger) (Source, func() error, error) {
	switch cfg.Type {
	case "redis", "":
		codec, err := NewCodec(cfg.Compression)
		if err != nil {
			return nil, nil, err
		}
		src, err := NewRedisSource(RedisConfig{
			URL:       cfg.RedisURL,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		}, codec, logger)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil

	case "memory":
		return NewMemorySource(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported source type: %s (supported: redis, memory)", cfg.Type)
	}
}
