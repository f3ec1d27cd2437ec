package subscriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dicdwatch/dicdwatch/internal/logging"
)

var natsLog = logging.Global().With("component", "subscriber.nats")

// NATSSubscriber implements Subscriber with NATS core subscriptions. No queue
// group is used, so every instance receives every event.
type NATSSubscriber struct {
	conn          *nats.Conn
	nodeID        string
	subscriptions map[string]*natsSubscription
	mu            sync.Mutex
}

type natsSubscription struct {
	sub    *nats.Subscription
	cancel context.CancelFunc
}

// NewNATSSubscriber connects to NATS
func NewNATSSubscriber(url, nodeID string) (*NATSSubscriber, error) {
	opts := []nats.Option{
		nats.Name(fmt.Sprintf("dicdwatch-invalidator-%s", nodeID)),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				natsLog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			natsLog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return newNATSSubscriberWithConn(conn, nodeID), nil
}

func newNATSSubscriberWithConn(conn *nats.Conn, nodeID string) *NATSSubscriber {
	return &NATSSubscriber{
		conn:          conn,
		nodeID:        nodeID,
		subscriptions: make(map[string]*natsSubscription),
	}
}

// Subscribe subscribes to a subject with the given handler
func (s *NATSSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		if subCtx.Err() != nil {
			return
		}
		if err := handler(subCtx, msg.Subject, msg.Data); err != nil {
			natsLog.Error("Failed to handle message", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	// Make sure the server has registered interest before returning
	if err := s.conn.Flush(); err != nil {
		cancel()
		_ = sub.Unsubscribe()
		return fmt.Errorf("failed to flush subscription %s: %w", subject, err)
	}

	s.subscriptions[subject] = &natsSubscription{sub: sub, cancel: cancel}

	// Drop the subscription when the caller's context ends
	go func() {
		<-subCtx.Done()
		_ = sub.Unsubscribe()
	}()

	natsLog.Info("Subscribed to NATS subject", "subject", subject, "node_id", s.nodeID)
	return nil
}

// Unsubscribe unsubscribes from a subject
func (s *NATSSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	entry.cancel()
	delete(s.subscriptions, subject)

	if err := entry.sub.Unsubscribe(); err != nil && err != nats.ErrBadSubscription {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}
	return nil
}

// Close closes all subscriptions and the connection
func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for subject, entry := range s.subscriptions {
		entry.cancel()
		if err := entry.sub.Unsubscribe(); err != nil && err != nats.ErrBadSubscription {
			natsLog.Warn("Failed to unsubscribe", "subject", subject, "error", err)
		}
	}
	s.subscriptions = make(map[string]*natsSubscription)

	s.conn.Close()
	natsLog.Info("NATS subscriber closed")
	return nil
}
