package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/analytics/distribution"
	"github.com/dicdwatch/dicdwatch/internal/analytics/spc"
	"github.com/dicdwatch/dicdwatch/internal/models"
	"github.com/dicdwatch/dicdwatch/internal/services"
)

func TestHandler_Distribution(t *testing.T) {
	env := newTestEnv(t)

	body := models.DistributionRequest{
		Values: []float64{10, 12, 9, 11, 50},
		Spec:   &analytics.SpecBounds{LSL: 8, USL: 13},
	}

	var summary distribution.Summary
	require.Equal(t, fiber.StatusOK, env.do(t, "POST", "/v1/analysis/distribution", body, &summary))

	assert.Equal(t, 5, summary.Count)
	require.NotNil(t, summary.Boxplot)
	assert.Equal(t, 10.0, summary.Boxplot.Q1)
	assert.Equal(t, 12.0, summary.Boxplot.Q3)
	assert.Equal(t, []float64{50}, summary.Boxplot.Outliers)
	require.NotNil(t, summary.InSpec)
	assert.InDelta(t, 0.8, summary.InSpec.Ratio, 1e-12)
	assert.Len(t, summary.NormalCurve, distribution.MinCurvePoints)
	assert.Len(t, summary.QQ, 5)
}

func TestHandler_Distribution_SingleValue(t *testing.T) {
	env := newTestEnv(t)

	var summary distribution.Summary
	require.Equal(t, fiber.StatusOK, env.do(t, "POST", "/v1/analysis/distribution", models.DistributionRequest{Values: []float64{42}}, &summary))

	assert.NotNil(t, summary.Mean)
	assert.Nil(t, summary.StdDev)
	assert.Contains(t, summary.Unavailable, "std_dev")
	assert.Contains(t, summary.Unavailable, "normal_curve")
}

func TestHandler_Distribution_Errors(t *testing.T) {
	env := newTestEnv(t)

	var errResp models.ErrorResponse
	assert.Equal(t, fiber.StatusBadRequest, env.do(t, "POST", "/v1/analysis/distribution", `{"values": []}`, &errResp))
	assert.Equal(t, services.CodeInvalidRequest, errResp.Error.Code)

	assert.Equal(t, fiber.StatusBadRequest, env.do(t, "POST", "/v1/analysis/distribution", `{"values": [1, 2], "histogram_bins": -1}`, &errResp))
	assert.Equal(t, fiber.StatusBadRequest, env.do(t, "POST", "/v1/analysis/distribution", `{"values": [1, 2], "curve_points": 1000000000}`, &errResp))
	assert.Equal(t, fiber.StatusBadRequest, env.do(t, "POST", "/v1/analysis/distribution", `{"values": [1, 2], "histogram_bins": 1099511627776}`, &errResp))
	assert.Equal(t, services.CodeInvalidRequest, errResp.Error.Code)

	assert.Equal(t, fiber.StatusBadRequest, env.do(t, "POST", "/v1/analysis/patterns",
		`{"series_length": 10, "violations": [{"rule": 1, "position": 0, "length": 4611686018427387904}]}`, &errResp))
}

func TestHandler_Patterns(t *testing.T) {
	env := newTestEnv(t)

	t.Run("rule 1 single point", func(t *testing.T) {
		body := models.PatternsRequest{
			SeriesLength: 10,
			Violations:   []analytics.PatternViolation{{Rule: 1, Position: 5}},
		}
		var resp models.PatternsResponse
		require.Equal(t, fiber.StatusOK, env.do(t, "POST", "/v1/analysis/patterns", body, &resp))
		require.Len(t, resp.Highlights, 1)
		assert.Equal(t, []int{5}, resp.Highlights[0].Positions)
		assert.False(t, resp.Detected)
	})

	t.Run("rule 3 clipped at the end", func(t *testing.T) {
		body := models.PatternsRequest{
			SeriesLength: 10,
			Limits:       &analytics.ControlLimits{CL: 100, UCL: 106, LCL: 94},
			Violations:   []analytics.PatternViolation{{Rule: 3, Position: 8}, {Rule: 9, Position: 0}},
		}
		var resp models.PatternsResponse
		require.Equal(t, fiber.StatusOK, env.do(t, "POST", "/v1/analysis/patterns", body, &resp))
		require.Len(t, resp.Highlights, 1)
		assert.Equal(t, []int{8, 9}, resp.Highlights[0].Positions)
		assert.True(t, resp.Highlights[0].Clipped)
		assert.Equal(t, []analytics.PatternViolation{{Rule: 9, Position: 0}}, resp.Rejected)
		require.NotNil(t, resp.Zones)
		assert.InDelta(t, 104.0, resp.Zones.ZoneAUpper, 1e-12)
	})

	t.Run("detect from values", func(t *testing.T) {
		body := models.PatternsRequest{
			Values: testValues,
			Limits: &analytics.ControlLimits{CL: 100, UCL: 106, LCL: 94},
		}
		var resp models.PatternsResponse
		require.Equal(t, fiber.StatusOK, env.do(t, "POST", "/v1/analysis/patterns", body, &resp))
		assert.True(t, resp.Detected)
		assert.Contains(t, resp.Positions, 5)
	})

	t.Run("errors", func(t *testing.T) {
		var errResp models.ErrorResponse
		assert.Equal(t, fiber.StatusBadRequest, env.do(t, "POST", "/v1/analysis/patterns", `{"values": [1, 2, 3]}`, &errResp))
		assert.Equal(t, services.CodeInvalidRequest, errResp.Error.Code)

		flat := `{"series_length": 3, "limits": {"cl": 1, "ucl": 1, "lcl": 1}, "violations": [{"rule": 1, "position": 0}]}`
		assert.Equal(t, fiber.StatusBadRequest, env.do(t, "POST", "/v1/analysis/patterns", flat, &errResp))
		assert.Equal(t, services.CodeInvalidRequest, errResp.Error.Code)
	})
}

func TestHandler_Quantile(t *testing.T) {
	env := newTestEnv(t)

	var resp models.QuantileResponse
	require.Equal(t, fiber.StatusOK, env.do(t, "GET", "/v1/analysis/quantile?p=0.5", nil, &resp))
	assert.InDelta(t, 0.0, resp.Z, 5e-4)

	require.Equal(t, fiber.StatusOK, env.do(t, "GET", "/v1/analysis/quantile?p=0.975", nil, &resp))
	assert.InDelta(t, 1.96, resp.Z, 5e-3)

	tests := []struct {
		query string
		code  string
	}{
		{"", services.CodeInvalidRequest},
		{"p=abc", services.CodeInvalidRequest},
		{"p=0", "DOMAIN_ERROR"},
		{"p=1", "DOMAIN_ERROR"},
		{"p=1.5", "DOMAIN_ERROR"},
	}
	for _, tt := range tests {
		var errResp models.ErrorResponse
		status := env.do(t, "GET", "/v1/analysis/quantile?"+tt.query, nil, &errResp)
		assert.Equal(t, fiber.StatusBadRequest, status, tt.query)
		assert.Equal(t, tt.code, errResp.Error.Code, tt.query)
	}
}

func TestHandler_ClassifyCapability(t *testing.T) {
	tests := []struct {
		query    string
		expected spc.CapabilityBand
		hasValue bool
	}{
		{"value=1.5", spc.CapabilityExcellent, true},
		{"value=1.33", spc.CapabilityExcellent, true},
		{"value=1.0", spc.CapabilityAdequate, true},
		{"value=0.7", spc.CapabilityMarginal, true},
		{"value=0.2", spc.CapabilityPoor, true},
		{"value=NaN", spc.CapabilityUnavailable, false},
		{"", spc.CapabilityUnavailable, false},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var resp models.CapabilityResponse
			require.Equal(t, fiber.StatusOK, env.do(t, "GET", "/v1/capability/classify?"+tt.query, nil, &resp))
			assert.Equal(t, tt.expected, resp.Band)
			assert.Equal(t, tt.hasValue, resp.Value != nil)
		})
	}

	var errResp models.ErrorResponse
	assert.Equal(t, fiber.StatusBadRequest, env.do(t, "GET", "/v1/capability/classify?value=high", nil, &errResp))
}
