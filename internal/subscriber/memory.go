package subscriber

import (
	"context"
	"fmt"
	"sync"

	"github.com/dicdwatch/dicdwatch/internal/logging"
)

var memoryLog = logging.Global().With("component", "subscriber.memory")

const memoryBufferSize = 1000

// memorySubscription represents an active subscription
type memorySubscription struct {
	handler MessageHandler
	ctx     context.Context
	cancel  context.CancelFunc
	ch      chan memoryMessage
}

type memoryMessage struct {
	subject string
	data    []byte
}

// MemoryBroker fans messages out to in-process subscribers
type MemoryBroker struct {
	subscribers map[string][]*memorySubscription
	mu          sync.RWMutex
}

// NewMemoryBroker creates an isolated broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subscribers: make(map[string][]*memorySubscription)}
}

var defaultBroker = NewMemoryBroker()

// DefaultMemoryBroker returns the process-wide broker used by the factory
func DefaultMemoryBroker() *MemoryBroker {
	return defaultBroker
}

// Publish delivers data to every subscriber of subject and reports how many
// accepted it. A full subscriber buffer drops the message for that subscriber.
func (b *MemoryBroker) Publish(subject string, data []byte) int {
	b.mu.RLock()
	subs := append([]*memorySubscription(nil), b.subscribers[subject]...)
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		msg := memoryMessage{subject: subject, data: append([]byte(nil), data...)}
		select {
		case sub.ch <- msg:
			delivered++
		default:
			memoryLog.Warn("Subscriber channel full, dropping message", "subject", subject)
		}
	}
	return delivered
}

func (b *MemoryBroker) register(subject string, sub *memorySubscription) {
	b.mu.Lock()
	b.subscribers[subject] = append(b.subscribers[subject], sub)
	b.mu.Unlock()
}

func (b *MemoryBroker) unregister(subject string, sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[subject]
	for i, bs := range subs {
		if bs == sub {
			b.subscribers[subject] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

// MemorySubscriber implements Subscriber on a MemoryBroker
type MemorySubscriber struct {
	broker        *MemoryBroker
	subscriptions map[string]*memorySubscription
	mu            sync.Mutex
}

// NewMemorySubscriber creates a subscriber on the default broker
func NewMemorySubscriber() (*MemorySubscriber, error) {
	return NewMemorySubscriberWithBroker(defaultBroker), nil
}

// NewMemorySubscriberWithBroker creates a subscriber on the given broker
func NewMemorySubscriberWithBroker(broker *MemoryBroker) *MemorySubscriber {
	return &MemorySubscriber{
		broker:        broker,
		subscriptions: make(map[string]*memorySubscription),
	}
}

// Subscribe subscribes to a subject with the given handler
func (s *MemorySubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySubscription{
		handler: handler,
		ctx:     subCtx,
		cancel:  cancel,
		ch:      make(chan memoryMessage, memoryBufferSize),
	}

	s.subscriptions[subject] = sub
	s.broker.register(subject, sub)

	go consumeMemory(sub)

	memoryLog.Debug("Subscribed to in-memory subject", "subject", subject)
	return nil
}

// consumeMemory reads messages and processes them
func consumeMemory(sub *memorySubscription) {
	for {
		select {
		case <-sub.ctx.Done():
			return
		case msg := <-sub.ch:
			if err := sub.handler(sub.ctx, msg.subject, msg.data); err != nil {
				memoryLog.Error("Failed to handle message", "subject", msg.subject, "error", err)
			}
		}
	}
}

// Unsubscribe unsubscribes from a subject
func (s *MemorySubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	sub.cancel()
	s.broker.unregister(subject, sub)
	delete(s.subscriptions, subject)
	return nil
}

// Close closes all subscriptions
func (s *MemorySubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for subject, sub := range s.subscriptions {
		sub.cancel()
		s.broker.unregister(subject, sub)
	}
	s.subscriptions = make(map[string]*memorySubscription)
	return nil
}
