package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicdwatch/dicdwatch/internal/models"
	"github.com/dicdwatch/dicdwatch/internal/source"
	"github.com/dicdwatch/dicdwatch/internal/subscriber"
)

func TestHandler_InvalidateCache(t *testing.T) {
	env := newTestEnv(t)

	sub := subscriber.NewMemorySubscriberWithBroker(env.broker)
	defer func() { _ = sub.Close() }()
	events := make(chan subscriber.InvalidationEvent, 2)
	require.NoError(t, sub.Subscribe(context.Background(), "inv", func(ctx context.Context, subject string, data []byte) error {
		e, err := subscriber.DecodeInvalidationEvent(data)
		if err != nil {
			return err
		}
		events <- e
		return nil
	}))

	require.Equal(t, fiber.StatusOK, env.do(t, "GET", "/v1/entities/m1/spc?days=30", nil, nil))

	var resp models.InvalidateResponse
	status := env.do(t, "POST", "/v1/cache/invalidate", models.InvalidateRequest{EntityID: "m1", Reason: "recalibrated"}, &resp)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "entity", resp.Scope)
	assert.Equal(t, 3, resp.Removed)
	assert.True(t, resp.Published)

	select {
	case e := <-events:
		assert.Equal(t, "m1", e.EntityID)
		assert.Equal(t, "node-test", e.Origin)
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for invalidation event")
	}

	// Empty body clears everything
	status = env.do(t, "POST", "/v1/cache/invalidate", nil, &resp)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "all", resp.Scope)

	var errResp models.ErrorResponse
	assert.Equal(t, fiber.StatusBadRequest, env.do(t, "POST", "/v1/cache/invalidate", `{"entity_id":`, &errResp))
	assert.Equal(t, "INVALID_JSON", errResp.Error.Code)
}

func TestHandler_CacheStats(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, fiber.StatusOK, env.do(t, "GET", "/v1/entities/m1/spc?days=7", nil, nil))
	require.Equal(t, fiber.StatusOK, env.do(t, "GET", "/v1/entities/m1/spc?days=7", nil, nil))

	var resp models.CacheStatsResponse
	require.Equal(t, fiber.StatusOK, env.do(t, "GET", "/v1/cache/stats", nil, &resp))

	m := resp.Caches[source.ResourceMeasurements]
	assert.Equal(t, 1, m.Entries)
	assert.Equal(t, uint64(1), m.Hits)
	assert.Equal(t, uint64(1), m.Misses)
	assert.Equal(t, 300.0, m.TTLSeconds)
	assert.Contains(t, resp.Caches, source.ResourceSpec)
	assert.Contains(t, resp.Caches, source.ResourceLimits)
}
