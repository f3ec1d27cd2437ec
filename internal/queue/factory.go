package queue

import (
	"fmt"
	"strings"

	"github.com/dicdwatch/dicdwatch/internal/config"
	"github.com/dicdwatch/dicdwatch/internal/subscriber"
	"github.com/dicdwatch/dicdwatch/internal/utils"
)

// NewPublisher creates a Publisher for the configured invalidation bus
func NewPublisher(cfg config.InvalidationConfig) (Publisher, error) {
	busType := utils.BusType(strings.ToLower(cfg.Type))

	switch busType {
	case utils.BusTypeNATS:
		return NewNATSPublisher(cfg.URL)

	case utils.BusTypeRedis:
		return NewRedisPublisher(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		})

	case utils.BusTypeKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers)

	case utils.BusTypeMemory:
		return NewMemoryPublisher(subscriber.DefaultMemoryBroker()), nil

	case utils.BusTypeNone, "":
		return nil, fmt.Errorf("invalidation bus is disabled")

	default:
		return nil, fmt.Errorf("unsupported invalidation bus type: %s (supported: nats, redis, kafka, memory)", busType)
	}
}
