package services

import (
	"context"
	"errors"
	"time"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/analytics/distribution"
	"github.com/dicdwatch/dicdwatch/internal/analytics/spc"
	"github.com/dicdwatch/dicdwatch/internal/config"
	"github.com/dicdwatch/dicdwatch/internal/logging"
	"github.com/dicdwatch/dicdwatch/internal/models"
	"github.com/dicdwatch/dicdwatch/internal/source"
	"github.com/dicdwatch/dicdwatch/internal/utils"
)

// Violation sources reported in SPCReport.ViolationSource
const (
	ViolationsSupplied = "supplied"
	ViolationsDetected = "detected"
	ViolationsNone     = "none"
)

// AnalysisService runs SPC and distribution analysis over measurement windows
type AnalysisService struct {
	logger  *logging.Logger
	source  source.Source
	options distribution.Options
	now     func() time.Time
}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService(logger *logging.Logger, src source.Source, cfg config.AnalysisConfig) *AnalysisService {
	opts := distribution.DefaultOptions()
	opts.HistogramBins = cfg.HistogramBins
	if cfg.CurvePoints > opts.CurvePoints {
		opts.CurvePoints = cfg.CurvePoints
	}

	return &AnalysisService{
		logger:  logger,
		source:  src,
		options: opts,
		now:     time.Now,
	}
}

// AnalyzeRequest selects an entity and window to analyze. Violations, when set,
// replace rule detection.
type AnalyzeRequest struct {
	EntityID   string
	Window     source.Window
	Violations []analytics.PatternViolation
}

// AnalysisInput is everything one analysis run needs
type AnalysisInput struct {
	Series     analytics.SampleSeries
	Subgroups  analytics.SubgroupSeries
	Spec       *analytics.SpecBounds
	Limits     *analytics.ControlLimits
	Violations []analytics.PatternViolation
	Capability *spc.CapabilityIndices
	Options    *distribution.Options
}

// SPCReport is the result of one analysis run. A nil part could not be
// computed; the reason is recorded in Unavailable.
type SPCReport struct {
	EntityID             string                       `json:"entity_id,omitempty"`
	Window               *source.Window               `json:"window,omitempty"`
	Count                int                          `json:"count"`
	Samples              analytics.SampleSeries       `json:"samples"`
	Spec                 *analytics.SpecBounds        `json:"spec"`
	Limits               *analytics.ControlLimits     `json:"limits"`
	Zones                *spc.Zones                   `json:"zones"`
	ViolationSource      string                       `json:"violation_source"`
	Violations           []analytics.PatternViolation `json:"violations"`
	RejectedViolations   []analytics.PatternViolation `json:"rejected_violations,omitempty"`
	Highlights           []spc.Highlight              `json:"highlights"`
	HighlightedPositions []int                        `json:"highlighted_positions"`
	RangeChart           *spc.RangeChart              `json:"range_chart"`
	Distribution         *distribution.Summary        `json:"distribution"`
	Capability           *spc.CapabilityBands         `json:"capability"`
	Unavailable          map[string]string            `json:"unavailable,omitempty"`
}

// ResolveWindow turns a validated entity query into a source window
func (s *AnalysisService) ResolveWindow(q *models.EntitySPCQuery) (source.Window, error) {
	var (
		w   source.Window
		err error
	)
	if q.HasRange() {
		w, err = source.Between(q.StartTimeParsed, q.EndTimeParsed)
	} else {
		w, err = source.LastDays(q.DaysParsed, s.now())
	}
	if err != nil {
		return source.Window{}, NewServiceError(CodeInvalidRequest, err.Error())
	}
	return w, nil
}

// Analyze fetches the entity's measurements, spec bounds and control limits for
// the window and evaluates them. Missing spec bounds or limits only make the
// dependent parts unavailable.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*SPCReport, error) {
	startTime := time.Now()
	log := s.logger.WithContext(logging.WithEntityID(ctx, req.EntityID))

	ctx, cancel := context.WithTimeout(ctx, utils.SourceFetchTimeout)
	defer cancel()

	set, err := s.source.Measurements(ctx, req.EntityID, req.Window)
	if err != nil {
		return nil, sourceError(log, err, req)
	}

	input := AnalysisInput{
		Series:     set.Series,
		Subgroups:  set.Subgroups,
		Violations: req.Violations,
	}
	notes := make(map[string]string)

	spec, err := s.source.SpecBounds(ctx, req.EntityID)
	switch {
	case err == nil:
		input.Spec = spec
	case errors.Is(err, source.ErrNotFound):
		notes["spec"] = "spec bounds not found"
	default:
		log.Warn("Failed to load spec bounds", "error", err)
		notes["spec"] = err.Error()
	}

	rec, err := s.source.ControlLimits(ctx, req.EntityID)
	switch {
	case err == nil:
		input.Limits = &rec.Limits
		input.Capability = &rec.Capability
	case errors.Is(err, source.ErrNotFound):
		notes["limits"] = "control limits not found"
	default:
		log.Warn("Failed to load control limits", "error", err)
		notes["limits"] = err.Error()
	}

	report := s.Evaluate(input)
	report.EntityID = req.EntityID
	window := set.Window
	report.Window = &window

	for field, reason := range notes {
		if report.Unavailable == nil {
			report.Unavailable = make(map[string]string)
		}
		report.Unavailable[field] = reason
	}

	log.Debug("Analysis completed",
		"window", req.Window.Label,
		"samples", report.Count,
		"highlights", len(report.Highlights),
		"latency_ms", time.Since(startTime).Milliseconds())

	return report, nil
}

func sourceError(log *logging.Logger, err error, req AnalyzeRequest) error {
	details := map[string]interface{}{
		"entity_id": req.EntityID,
		"window":    req.Window.Label,
	}
	switch {
	case errors.Is(err, source.ErrNotFound):
		return NewServiceErrorWithDetails(CodeNotFound, "no measurements for entity in window", details)
	case errors.Is(err, source.ErrInvalidWindow):
		return NewServiceErrorWithDetails(CodeInvalidRequest, err.Error(), details)
	default:
		log.Error("Failed to load measurements",
			"window", req.Window.Label,
			"error", err)
		return NewServiceErrorWithDetails(CodeSourceError, "failed to load measurements", details)
	}
}

// Evaluate runs every analysis over input. It is pure and never fails as a
// whole: each part that cannot be computed is nil with a reason in Unavailable.
func (s *AnalysisService) Evaluate(input AnalysisInput) *SPCReport {
	values := input.Series.Values()
	report := &SPCReport{
		Count:       len(values),
		Samples:     input.Series,
		Spec:        input.Spec,
		Limits:      input.Limits,
		Unavailable: make(map[string]string),
	}

	var zones *spc.Zones
	if input.Limits == nil {
		report.Unavailable["zones"] = "control limits not provided"
	} else if z, err := spc.CalculateZones(*input.Limits); err != nil {
		report.Unavailable["zones"] = err.Error()
	} else {
		zones = &z
		report.Zones = zones
	}

	violations := input.Violations
	switch {
	case len(violations) > 0:
		report.ViolationSource = ViolationsSupplied
	case zones != nil:
		report.ViolationSource = ViolationsDetected
		violations = spc.DetectViolations(values, *zones)
	default:
		report.ViolationSource = ViolationsNone
		report.Unavailable["highlights"] = report.Unavailable["zones"]
	}
	report.Violations = nonNilViolations(violations)
	report.Highlights, report.RejectedViolations = spc.MapViolations(violations, len(values), zones)
	report.HighlightedPositions = spc.HighlightedPositions(report.Highlights)

	if rc, err := spc.BuildRangeChart(values, input.Subgroups); err != nil {
		report.Unavailable["range_chart"] = err.Error()
	} else {
		report.RangeChart = rc
	}

	report.Distribution = distribution.Summarize(values, input.Spec, s.optionsFor(input.Options))

	if input.Capability == nil {
		report.Unavailable["capability"] = "capability indices not provided"
	} else {
		bands := spc.ClassifyIndices(*input.Capability)
		report.Capability = &bands
	}

	if len(report.Unavailable) == 0 {
		report.Unavailable = nil
	}
	return report
}

// Distribution summarizes values with the request's options
func (s *AnalysisService) Distribution(req *models.DistributionRequest) *distribution.Summary {
	return distribution.Summarize(req.Values, req.Spec, s.optionsFor(&distribution.Options{
		HistogramBins: req.HistogramBins,
		CurvePoints:   req.CurvePoints,
	}))
}

// Patterns maps the request's violations, or violations detected from its
// values, into highlighted positions
func (s *AnalysisService) Patterns(req *models.PatternsRequest) (*models.PatternsResponse, error) {
	resp := &models.PatternsResponse{}

	var zones *spc.Zones
	if req.Limits != nil {
		z, err := spc.CalculateZones(*req.Limits)
		if err != nil {
			return nil, NewServiceError(CodeInvalidRequest, err.Error())
		}
		zones = &z
		resp.Zones = zones
	}

	violations := req.Violations
	if len(violations) == 0 {
		if zones == nil {
			return nil, NewServiceError(CodeInvalidRequest, "limits are required to detect violations")
		}
		violations = spc.DetectViolations(req.Values, *zones)
		resp.Detected = true
	}

	resp.Highlights, resp.Rejected = spc.MapViolations(violations, req.SeriesLength, zones)
	resp.Positions = spc.HighlightedPositions(resp.Highlights)
	return resp, nil
}

// optionsFor overlays per-request options on the configured defaults
func (s *AnalysisService) optionsFor(override *distribution.Options) distribution.Options {
	opts := s.options
	if override == nil {
		return opts
	}
	if override.HistogramBins > 0 {
		opts.HistogramBins = override.HistogramBins
	}
	if override.CurvePoints > opts.CurvePoints {
		opts.CurvePoints = override.CurvePoints
	}
	return opts
}

func nonNilViolations(v []analytics.PatternViolation) []analytics.PatternViolation {
	if v == nil {
		return []analytics.PatternViolation{}
	}
	return v
}
