package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dicdwatch/dicdwatch/internal/logging"
)

// InvalidationEvent tells every instance to drop cached data. An empty EntityID
// means every entity.
type InvalidationEvent struct {
	EntityID string    `json:"entity_id,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Origin   string    `json:"origin,omitempty"`
	At       time.Time `json:"at"`
}

// Encode serializes the event for the bus
func (e InvalidationEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeInvalidationEvent parses a bus payload
func DecodeInvalidationEvent(data []byte) (InvalidationEvent, error) {
	var e InvalidationEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("invalid invalidation event: %w", err)
	}
	return e, nil
}

// Invalidatable is the cache the invalidator drops entries from
type Invalidatable interface {
	InvalidateAll()
	InvalidateEntity(entityID string) int
}

// Invalidator subscribes to the bus and applies events to a cache
type Invalidator struct {
	sub     Subscriber
	subject string
	cache   Invalidatable
	logger  *logging.Logger
}

// NewInvalidator creates an invalidator; call Start to begin listening
func NewInvalidator(sub Subscriber, subject string, cache Invalidatable, logger *logging.Logger) *Invalidator {
	if logger == nil {
		logger = logging.Global()
	}
	return &Invalidator{
		sub:     sub,
		subject: subject,
		cache:   cache,
		logger:  logger.With("component", "invalidator", "subject", subject),
	}
}

// Start subscribes to the invalidation subject. Listening stops when ctx is
// cancelled or Stop is called.
func (i *Invalidator) Start(ctx context.Context) error {
	if err := i.sub.Subscribe(ctx, i.subject, i.handle); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", i.subject, err)
	}
	i.logger.Info("Listening for cache invalidation events")
	return nil
}

// Stop unsubscribes and closes the underlying subscriber
func (i *Invalidator) Stop() error {
	if err := i.sub.Unsubscribe(i.subject); err != nil {
		i.logger.Warn("Unsubscribe failed", "error", err)
	}
	return i.sub.Close()
}

func (i *Invalidator) handle(ctx context.Context, subject string, data []byte) error {
	event, err := DecodeInvalidationEvent(data)
	if err != nil {
		// Malformed events are dropped rather than redelivered forever.
		i.logger.Warn("Dropping malformed event", "error", err)
		return nil
	}

	if event.EntityID == "" {
		i.cache.InvalidateAll()
	} else {
		i.cache.InvalidateEntity(event.EntityID)
	}

	i.logger.Debug("Applied invalidation event", "entity_id", event.EntityID,
		"reason", event.Reason, "origin", event.Origin)
	return nil
}
