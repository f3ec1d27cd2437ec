package router

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicdwatch/dicdwatch/internal/config"
	"github.com/dicdwatch/dicdwatch/internal/logging"
	"github.com/dicdwatch/dicdwatch/internal/models"
	"github.com/dicdwatch/dicdwatch/internal/services"
	"github.com/dicdwatch/dicdwatch/internal/source"
)

var testKey = strings.Repeat("k", 40)

func newTestApp(t *testing.T, authEnabled bool) *fiber.App {
	t.Helper()
	logger := logging.NewNop()

	cfg := config.DefaultConfig()
	cfg.Auth = config.AuthConfig{Enabled: authEnabled, APIKeys: []string{testKey}}
	cfg.Server.BodyLimit = 4096

	cached := source.NewCachedSource(source.NewMemorySource(), logger)
	analysisSvc := services.NewAnalysisService(logger, cached, cfg.Analysis)
	cacheSvc := services.NewCacheService(logger, cached, nil, cfg.Invalidation.Subject, "router-test")

	return New(logger, analysisSvc, cacheSvc, *cfg)
}

func TestRouter_Health(t *testing.T) {
	app := newTestApp(t, true)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(logging.RequestIDHeader))

	var health models.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
}

func TestRouter_AuthProtectsV1(t *testing.T) {
	app := newTestApp(t, true)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/cache/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/v1/cache/stats", nil)
	req.Header.Set("X-API-Key", testKey)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRouter_Routes(t *testing.T) {
	app := newTestApp(t, false)

	tests := []struct {
		method string
		target string
		body   string
		status int
	}{
		{"GET", "/v1/entities/unknown/spc", "", fiber.StatusNotFound},
		{"POST", "/v1/analysis/spc", `{"samples":[{"timestamp":"2026-01-01T00:00:00Z","value":1}]}`, fiber.StatusOK},
		{"POST", "/v1/analysis/distribution", `{"values":[1,2,3]}`, fiber.StatusOK},
		{"POST", "/v1/analysis/patterns", `{"series_length":3,"violations":[{"rule":1,"position":0}]}`, fiber.StatusOK},
		{"GET", "/v1/analysis/quantile?p=0.5", "", fiber.StatusOK},
		{"GET", "/v1/capability/classify?value=1.2", "", fiber.StatusOK},
		{"POST", "/v1/cache/invalidate", "", fiber.StatusOK},
		{"GET", "/v1/cache/stats", "", fiber.StatusOK},
		{"GET", "/v1/nope", "", fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRouter_BodyLimit(t *testing.T) {
	app := newTestApp(t, false)

	body := `{"values":[` + strings.Repeat("1,", 4096) + `1]}`
	req := httptest.NewRequest("POST", "/v1/analysis/distribution", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
}
