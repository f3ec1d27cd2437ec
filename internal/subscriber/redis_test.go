package subscriber

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisSubscriber_ReceivesNewEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	ctx := context.Background()

	// Entries before the group exists are not replayed
	if err := client.XAdd(ctx, &redis.XAddArgs{Stream: "dicd:inv", Values: map[string]interface{}{"data": "old"}}).Err(); err != nil {
		t.Fatalf("XAdd failed: %v", err)
	}

	sub, err := NewRedisSubscriber(RedisConfig{URL: mr.Addr(), ConsumerID: "node-a"})
	if err != nil {
		t.Fatalf("Failed to create subscriber: %v", err)
	}
	defer func() { _ = sub.Close() }()

	received := make(chan string, 4)
	err = sub.Subscribe(ctx, "inv", func(ctx context.Context, subject string, data []byte) error {
		received <- string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := client.XAdd(ctx, &redis.XAddArgs{Stream: "dicd:inv", Values: map[string]interface{}{"data": "new"}}).Err(); err != nil {
		t.Fatalf("XAdd failed: %v", err)
	}

	select {
	case data := <-received:
		if data != "new" {
			t.Errorf("Expected 'new', got %q", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for stream message")
	}
}

func TestRedisSubscriber_GroupPerNode(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	a := newRedisSubscriberWithClient(client, "", "node-a")
	if a.consumerGroup != "invalidator-node-a" {
		t.Errorf("Unexpected group %q", a.consumerGroup)
	}
	if a.streamName("inv") != "dicd:inv" {
		t.Errorf("Unexpected stream %q", a.streamName("inv"))
	}

	b := newRedisSubscriberWithClient(client, "custom", "")
	if b.consumerID != "dicdwatch-1" {
		t.Errorf("Unexpected default consumer %q", b.consumerID)
	}
	if b.streamName("inv") != "custom:inv" {
		t.Errorf("Unexpected stream %q", b.streamName("inv"))
	}
	_ = client.Close()
}

func TestRedisSubscriber_Unsubscribe(t *testing.T) {
	mr := miniredis.RunT(t)

	sub, err := NewRedisSubscriber(RedisConfig{URL: mr.Addr(), ConsumerID: "node-a"})
	if err != nil {
		t.Fatalf("Failed to create subscriber: %v", err)
	}
	defer func() { _ = sub.Close() }()

	noop := func(ctx context.Context, subject string, data []byte) error { return nil }
	if err := sub.Subscribe(context.Background(), "inv", noop); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := sub.Subscribe(context.Background(), "inv", noop); err == nil {
		t.Error("Expected error on duplicate subscribe")
	}
	if err := sub.Unsubscribe("inv"); err != nil {
		t.Errorf("Unsubscribe failed: %v", err)
	}
	if err := sub.Unsubscribe("inv"); err == nil {
		t.Error("Expected error unsubscribing twice")
	}
}

func TestNewRedisSubscriber_Unreachable(t *testing.T) {
	_, err := NewRedisSubscriber(RedisConfig{URL: "redis://127.0.0.1:1"})
	if err == nil {
		t.Fatal("Expected error connecting to unreachable Redis")
	}
}
