// Package queue publishes cache invalidation events to the configured bus.
package queue

import (
	"context"
	"fmt"

	"github.com/dicdwatch/dicdwatch/internal/subscriber"
)

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// Close closes the connection
	Close() error
}

// PublishInvalidation encodes and publishes an invalidation event
func PublishInvalidation(ctx context.Context, p Publisher, subject string, event subscriber.InvalidationEvent) error {
	data, err := event.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode invalidation event: %w", err)
	}
	return p.Publish(ctx, subject, data)
}
