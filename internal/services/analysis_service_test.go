package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/analytics/distribution"
	"github.com/dicdwatch/dicdwatch/internal/analytics/spc"
	"github.com/dicdwatch/dicdwatch/internal/config"
	"github.com/dicdwatch/dicdwatch/internal/logging"
	"github.com/dicdwatch/dicdwatch/internal/models"
	"github.com/dicdwatch/dicdwatch/internal/source"
)

var fixedNow = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

// fixtureValues has a single point beyond the upper control limit at index 5
var fixtureValues = []float64{
	100, 101, 99.5, 100.5, 99, 108, 100.2, 99.8, 100.4, 99.6,
	100.1, 99.9, 100.3, 99.7, 100, 100.6, 99.4, 100.2, 99.8, 100,
}

func ptr(v float64) *float64 { return &v }

func fixtureMeasurements(values []float64, withPositions bool) []source.Measurement {
	start := fixedNow.AddDate(0, 0, -(len(values) - 1))
	out := make([]source.Measurement, len(values))
	for i, v := range values {
		m := source.Measurement{Timestamp: start.AddDate(0, 0, i), Value: v}
		if withPositions {
			m.Positions = []*float64{ptr(v - 1), ptr(v), ptr(v + 1), ptr(v - 0.5), ptr(v + 0.5)}
		}
		out[i] = m
	}
	return out
}

func newFixtureService(t *testing.T) (*AnalysisService, *source.MemorySource) {
	t.Helper()

	src := source.NewMemorySource()
	src.AddMeasurements("m1", fixtureMeasurements(fixtureValues, true)...)
	src.SetSpecBounds("m1", analytics.SpecBounds{LSL: 90, USL: 110})
	src.SetControlLimits("m1", source.LimitsRecord{
		Limits:     analytics.ControlLimits{CL: 100, UCL: 106, LCL: 94},
		Capability: spc.CapabilityIndices{Cp: ptr(1.5), Cpk: ptr(0.9)},
	})
	src.AddMeasurements("m2", fixtureMeasurements(fixtureValues[:10], false)...)

	svc := NewAnalysisService(logging.NewNop(), src, config.DefaultConfig().Analysis)
	svc.now = func() time.Time { return fixedNow }
	return svc, src
}

func lastDays(t *testing.T, days int) source.Window {
	t.Helper()
	w, err := source.LastDays(days, fixedNow)
	require.NoError(t, err)
	return w
}

func TestAnalysisService_Analyze(t *testing.T) {
	svc, _ := newFixtureService(t)

	report, err := svc.Analyze(context.Background(), AnalyzeRequest{EntityID: "m1", Window: lastDays(t, 30)})
	require.NoError(t, err)

	assert.Equal(t, "m1", report.EntityID)
	assert.Equal(t, "30d", report.Window.Label)
	assert.Equal(t, 20, report.Count)
	assert.Nil(t, report.Unavailable)

	require.NotNil(t, report.Zones)
	assert.InDelta(t, 2.0, report.Zones.Sigma, 1e-12)
	assert.InDelta(t, 104.0, report.Zones.ZoneAUpper, 1e-12)

	assert.Equal(t, ViolationsDetected, report.ViolationSource)
	assert.Contains(t, report.Violations, analytics.PatternViolation{Rule: 1, Position: 5})
	assert.Contains(t, report.HighlightedPositions, 5)

	var beyond *spc.Highlight
	for i := range report.Highlights {
		if report.Highlights[i].Rule == 1 {
			beyond = &report.Highlights[i]
		}
	}
	require.NotNil(t, beyond)
	assert.Equal(t, []int{5}, beyond.Positions)

	require.NotNil(t, report.RangeChart)
	assert.Equal(t, spc.RangeModeSubgroup, report.RangeChart.Mode)
	assert.Equal(t, 5, report.RangeChart.SubgroupSize)
	assert.InDelta(t, 2.0, report.RangeChart.CenterLine, 1e-12)

	require.NotNil(t, report.Distribution)
	require.NotNil(t, report.Distribution.Mean)
	require.NotNil(t, report.Distribution.InSpec)
	assert.InDelta(t, 1.0, report.Distribution.InSpec.Ratio, 1e-12)

	require.NotNil(t, report.Capability)
	assert.Equal(t, spc.CapabilityExcellent, report.Capability.Cp)
	assert.Equal(t, spc.CapabilityMarginal, report.Capability.Cpk)
	assert.Equal(t, spc.CapabilityUnavailable, report.Capability.Pp)
}

func TestAnalysisService_Analyze_SuppliedViolationsAreClipped(t *testing.T) {
	svc, _ := newFixtureService(t)

	report, err := svc.Analyze(context.Background(), AnalyzeRequest{
		EntityID:   "m1",
		Window:     lastDays(t, 30),
		Violations: []analytics.PatternViolation{{Rule: 3, Position: 18}, {Rule: 42, Position: 0}},
	})
	require.NoError(t, err)

	assert.Equal(t, ViolationsSupplied, report.ViolationSource)
	require.Len(t, report.Highlights, 1)
	assert.Equal(t, []int{18, 19}, report.Highlights[0].Positions)
	assert.True(t, report.Highlights[0].Clipped)
	assert.Equal(t, []analytics.PatternViolation{{Rule: 42, Position: 0}}, report.RejectedViolations)
}

func TestAnalysisService_Analyze_MissingSpecAndLimits(t *testing.T) {
	svc, _ := newFixtureService(t)

	report, err := svc.Analyze(context.Background(), AnalyzeRequest{EntityID: "m2", Window: lastDays(t, 30)})
	require.NoError(t, err)

	assert.Nil(t, report.Zones)
	assert.Nil(t, report.Capability)
	assert.Equal(t, ViolationsNone, report.ViolationSource)
	assert.Empty(t, report.Highlights)

	require.NotNil(t, report.RangeChart)
	assert.Equal(t, spc.RangeModeMovingRange, report.RangeChart.Mode)

	for _, field := range []string{"zones", "highlights", "capability", "spec", "limits"} {
		assert.Contains(t, report.Unavailable, field)
	}
	assert.Contains(t, report.Distribution.Unavailable, "in_spec")
}

func TestAnalysisService_Analyze_Errors(t *testing.T) {
	svc, _ := newFixtureService(t)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{EntityID: "unknown", Window: lastDays(t, 7)})
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, svcErr.Code)
	assert.Equal(t, "unknown", svcErr.Details["entity_id"])

	// Window before any data
	old, err := source.Between(fixedNow.AddDate(-1, 0, 0), fixedNow.AddDate(-1, 0, 7))
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), AnalyzeRequest{EntityID: "m1", Window: old})
	svcErr, ok = AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, svcErr.Code)

	failing := NewAnalysisService(logging.NewNop(), failingSource{}, config.DefaultConfig().Analysis)
	_, err = failing.Analyze(context.Background(), AnalyzeRequest{EntityID: "m1", Window: lastDays(t, 7)})
	svcErr, ok = AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, CodeSourceError, svcErr.Code)
}

func TestAnalysisService_Analyze_ThroughCache(t *testing.T) {
	svc, src := newFixtureService(t)
	cached := source.NewCachedSource(src, logging.NewNop())
	svc.source = cached

	for i := 0; i < 3; i++ {
		_, err := svc.Analyze(context.Background(), AnalyzeRequest{EntityID: "m1", Window: lastDays(t, 30)})
		require.NoError(t, err)
	}

	stats := cached.Stats()
	assert.Equal(t, uint64(1), stats[source.ResourceMeasurements].Misses)
	assert.Equal(t, uint64(2), stats[source.ResourceMeasurements].Hits)
	assert.Equal(t, uint64(2), stats[source.ResourceLimits].Hits)
}

func TestAnalysisService_Evaluate_SingleSample(t *testing.T) {
	svc := NewAnalysisService(logging.NewNop(), source.NewMemorySource(), config.DefaultConfig().Analysis)

	report := svc.Evaluate(AnalysisInput{
		Series: analytics.SampleSeries{{Time: fixedNow, Value: 100}},
		Limits: &analytics.ControlLimits{CL: 100, UCL: 106, LCL: 94},
	})

	assert.Equal(t, 1, report.Count)
	assert.NotNil(t, report.Zones)
	assert.Nil(t, report.RangeChart)
	assert.Contains(t, report.Unavailable, "range_chart")
	require.NotNil(t, report.Distribution)
	assert.NotNil(t, report.Distribution.Mean)
	assert.Nil(t, report.Distribution.StdDev)
	assert.Contains(t, report.Distribution.Unavailable, "std_dev")
}

func TestAnalysisService_Evaluate_InvalidLimits(t *testing.T) {
	svc := NewAnalysisService(logging.NewNop(), source.NewMemorySource(), config.DefaultConfig().Analysis)

	report := svc.Evaluate(AnalysisInput{
		Series: analytics.SampleSeries{{Value: 1}, {Value: 2}, {Value: 3}},
		Limits: &analytics.ControlLimits{CL: 100, UCL: 100, LCL: 100},
	})

	assert.Nil(t, report.Zones)
	assert.Contains(t, report.Unavailable["zones"], "invalid control limits")
	assert.Equal(t, ViolationsNone, report.ViolationSource)
	assert.NotNil(t, report.RangeChart)
}

func TestAnalysisService_Evaluate_Idempotent(t *testing.T) {
	svc, _ := newFixtureService(t)
	input := AnalysisInput{
		Series: analytics.SampleSeries{{Value: 10}, {Value: 12}, {Value: 9}, {Value: 11}, {Value: 50}},
		Limits: &analytics.ControlLimits{CL: 11, UCL: 20, LCL: 2},
	}

	assert.Equal(t, svc.Evaluate(input), svc.Evaluate(input))
}

func TestAnalysisService_ResolveWindow(t *testing.T) {
	svc, _ := newFixtureService(t)

	q := models.NewEntitySPCQuery("m1", "7", "", "")
	require.NoError(t, q.Validate(time.UTC, 30, 365))
	w, err := svc.ResolveWindow(q)
	require.NoError(t, err)
	assert.Equal(t, "7d", w.Label)
	assert.True(t, w.End.Equal(fixedNow))

	q = models.NewEntitySPCQuery("m1", "", "2026-01-01", "2026-01-31")
	require.NoError(t, q.Validate(time.UTC, 30, 365))
	w, err = svc.ResolveWindow(q)
	require.NoError(t, err)
	assert.Equal(t, "20260101-20260201", w.Label)
}

func TestAnalysisService_Patterns(t *testing.T) {
	svc, _ := newFixtureService(t)
	limits := &analytics.ControlLimits{CL: 100, UCL: 106, LCL: 94}

	t.Run("detects from values", func(t *testing.T) {
		req := &models.PatternsRequest{Values: fixtureValues, Limits: limits}
		require.NoError(t, req.Validate())

		resp, err := svc.Patterns(req)
		require.NoError(t, err)
		assert.True(t, resp.Detected)
		assert.Contains(t, resp.Positions, 5)
		require.NotNil(t, resp.Zones)
	})

	t.Run("maps supplied violations", func(t *testing.T) {
		req := &models.PatternsRequest{
			SeriesLength: 10,
			Violations:   []analytics.PatternViolation{{Rule: 3, Position: 8}},
		}
		require.NoError(t, req.Validate())

		resp, err := svc.Patterns(req)
		require.NoError(t, err)
		assert.False(t, resp.Detected)
		require.Len(t, resp.Highlights, 1)
		assert.Equal(t, []int{8, 9}, resp.Highlights[0].Positions)
		assert.Equal(t, []int{8, 9}, resp.Positions)
	})

	t.Run("rejects flat limits", func(t *testing.T) {
		req := &models.PatternsRequest{
			SeriesLength: 3,
			Limits:       &analytics.ControlLimits{CL: 1, UCL: 1, LCL: 1},
			Violations:   []analytics.PatternViolation{{Rule: 1, Position: 0}},
		}
		_, err := svc.Patterns(req)
		svcErr, ok := AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, CodeInvalidRequest, svcErr.Code)
	})
}

func TestAnalysisService_Distribution(t *testing.T) {
	svc, _ := newFixtureService(t)

	summary := svc.Distribution(&models.DistributionRequest{
		Values:        []float64{10, 12, 9, 11, 50},
		HistogramBins: 3,
		CurvePoints:   150,
	})

	require.NotNil(t, summary.Histogram)
	assert.Len(t, summary.Histogram.Bins, 3)
	assert.Len(t, summary.NormalCurve, 150)
	require.NotNil(t, summary.Boxplot)
	assert.Equal(t, []float64{50}, summary.Boxplot.Outliers)
}

func TestAnalysisService_OptionsFor(t *testing.T) {
	svc := NewAnalysisService(logging.NewNop(), source.NewMemorySource(), config.AnalysisConfig{HistogramBins: 8, CurvePoints: 50})

	assert.Equal(t, distribution.Options{HistogramBins: 8, CurvePoints: distribution.MinCurvePoints}, svc.optionsFor(nil))
	assert.Equal(t, distribution.Options{HistogramBins: 4, CurvePoints: 200},
		svc.optionsFor(&distribution.Options{HistogramBins: 4, CurvePoints: 200}))
}

type failingSource struct{}

func (failingSource) Measurements(ctx context.Context, entityID string, window source.Window) (*source.MeasurementSet, error) {
	return nil, errors.New("connection refused")
}

func (failingSource) SpecBounds(ctx context.Context, entityID string) (*analytics.SpecBounds, error) {
	return nil, errors.New("connection refused")
}

func (failingSource) ControlLimits(ctx context.Context, entityID string) (*source.LimitsRecord, error) {
	return nil, errors.New("connection refused")
}
