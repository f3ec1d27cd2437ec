package queue

import (
	"context"

	"github.com/dicdwatch/dicdwatch/internal/subscriber"
)

// MemoryPublisher publishes to an in-process broker
type MemoryPublisher struct {
	broker *subscriber.MemoryBroker
}

// NewMemoryPublisher creates a publisher on the given broker
func NewMemoryPublisher(broker *subscriber.MemoryBroker) *MemoryPublisher {
	return &MemoryPublisher{broker: broker}
}

// Publish delivers data to the broker's current subscribers
func (p *MemoryPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.broker.Publish(subject, data)
	return nil
}

// Close is a no-op
func (p *MemoryPublisher) Close() error {
	return nil
}
