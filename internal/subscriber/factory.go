package subscriber

import (
	"fmt"
	"os"
	"strings"

	"github.com/dicdwatch/dicdwatch/internal/config"
	"github.com/dicdwatch/dicdwatch/internal/utils"
)

// NewSubscriber creates a Subscriber for the configured invalidation bus
func NewSubscriber(cfg config.InvalidationConfig) (Subscriber, error) {
	busType := utils.BusType(strings.ToLower(cfg.Type))
	nodeID := NodeID(cfg)

	switch busType {
	case utils.BusTypeNATS:
		return NewNATSSubscriber(cfg.URL, nodeID)
	case utils.BusTypeRedis:
		return NewRedisSubscriber(RedisConfig{
			URL:          cfg.URL,
			Password:     cfg.Password,
			DB:           cfg.RedisDB,
			StreamPrefix: cfg.RedisStream,
			ConsumerID:   nodeID,
		})
	case utils.BusTypeKafka:
		return NewKafkaSubscriber(cfg.KafkaBrokers, nodeID)
	case utils.BusTypeMemory:
		return NewMemorySubscriber()
	case utils.BusTypeNone, "":
		return nil, fmt.Errorf("invalidation bus is disabled")
	default:
		return nil, fmt.Errorf("unsupported invalidation bus type: %s (supported: nats, redis, kafka, memory)", busType)
	}
}

// NodeID returns the configured node ID, defaulting to the hostname
func NodeID(cfg config.InvalidationConfig) string {
	if cfg.NodeID != "" {
		return cfg.NodeID
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "dicdwatch-1"
	}
	return hostname
}
