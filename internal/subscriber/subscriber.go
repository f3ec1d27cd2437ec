// Package subscriber receives cache invalidation events from the configured bus.
package subscriber

import (
	"context"
)

// MessageHandler processes one bus payload. A returned error is logged and the
// message is left unacknowledged where the transport supports it.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Subscriber delivers every message published on a subject to this instance
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler MessageHandler) error
	Unsubscribe(subject string) error
	Close() error
}
