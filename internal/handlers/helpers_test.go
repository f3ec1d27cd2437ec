package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/analytics/spc"
	"github.com/dicdwatch/dicdwatch/internal/config"
	"github.com/dicdwatch/dicdwatch/internal/logging"
	"github.com/dicdwatch/dicdwatch/internal/queue"
	"github.com/dicdwatch/dicdwatch/internal/services"
	"github.com/dicdwatch/dicdwatch/internal/source"
	"github.com/dicdwatch/dicdwatch/internal/subscriber"
)

// testValues has a single point above the upper control limit at index 5
var testValues = []float64{
	100, 101, 99.5, 100.5, 99, 108, 100.2, 99.8, 100.4, 99.6,
	100.1, 99.9, 100.3, 99.7, 100, 100.6, 99.4, 100.2, 99.8, 100,
}

type testEnv struct {
	app    *fiber.App
	cached *source.CachedSource
	broker *subscriber.MemoryBroker
}

func fp(v float64) *float64 { return &v }

// newTestEnv wires the handlers over an in-memory source with one fully
// populated entity (m1) and one entity without spec/limits (m2)
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logging.NewNop()

	now := time.Now().Add(-time.Minute)
	src := source.NewMemorySource()
	for i, v := range testValues {
		ts := now.AddDate(0, 0, -(len(testValues) - 1 - i))
		src.AddMeasurements("m1", source.Measurement{
			Timestamp: ts,
			Value:     v,
			Positions: []*float64{fp(v - 1), fp(v), fp(v + 1), nil, fp(v + 0.5)},
		})
		src.AddMeasurements("m2", source.Measurement{Timestamp: ts, Value: v})
	}
	src.SetSpecBounds("m1", analytics.SpecBounds{LSL: 90, USL: 110})
	src.SetControlLimits("m1", source.LimitsRecord{
		Limits:     analytics.ControlLimits{CL: 100, UCL: 106, LCL: 94},
		Capability: spc.CapabilityIndices{Cp: fp(1.4), Cpk: fp(1.1)},
	})

	cfg := config.DefaultConfig()
	cached := source.NewCachedSource(src, logger)
	broker := subscriber.NewMemoryBroker()

	analysisSvc := services.NewAnalysisService(logger, cached, cfg.Analysis)
	cacheSvc := services.NewCacheService(logger, cached, queue.NewMemoryPublisher(broker), "inv", "node-test")
	h := New(logger, analysisSvc, cacheSvc, *cfg)

	app := fiber.New()
	app.Get("/health", h.Health)
	app.Get("/v1/entities/:entity_id/spc", h.EntitySPC)
	app.Post("/v1/analysis/spc", h.AnalyzeSPC)
	app.Post("/v1/analysis/distribution", h.Distribution)
	app.Post("/v1/analysis/patterns", h.Patterns)
	app.Get("/v1/analysis/quantile", h.Quantile)
	app.Get("/v1/capability/classify", h.ClassifyCapability)
	app.Post("/v1/cache/invalidate", h.InvalidateCache)
	app.Get("/v1/cache/stats", h.CacheStats)

	return &testEnv{app: app, cached: cached, broker: broker}
}

// do performs a request and decodes the JSON response into out when non-nil
func (e *testEnv) do(t *testing.T, method, target string, body interface{}, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("Failed to marshal body: %v", err)
			}
			reader = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("Failed to unmarshal response %q: %v", data, err)
		}
	}
	return resp.StatusCode
}
