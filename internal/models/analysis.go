package models

import (
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/analytics/spc"
	"github.com/dicdwatch/dicdwatch/internal/utils"
)

// EntitySPCQuery represents the parsed GET /v1/entities/:entity_id/spc input
type EntitySPCQuery struct {
	EntityID        string
	Days            string
	StartTime       string
	EndTime         string
	DaysParsed      int
	StartTimeParsed time.Time
	EndTimeParsed   time.Time
}

// NewEntitySPCQuery creates a new EntitySPCQuery with primitive types
func NewEntitySPCQuery(entityID, days, startTime, endTime string) *EntitySPCQuery {
	return &EntitySPCQuery{
		EntityID:  entityID,
		Days:      days,
		StartTime: startTime,
		EndTime:   endTime,
	}
}

// HasRange reports whether an explicit date range was requested
func (q *EntitySPCQuery) HasRange() bool {
	return q.StartTime != "" || q.EndTime != ""
}

// Validate validates the query and fills the parsed fields. Date-only values are
// interpreted in loc; a date-only end_time covers that whole day.
func (q *EntitySPCQuery) Validate(loc *time.Location, defaultDays, maxDays int) error {
	if q.EntityID == "" {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "entity_id is required",
		}
	}

	if q.HasRange() {
		if q.Days != "" {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: "days cannot be combined with start_time/end_time",
			}
		}
		if q.StartTime == "" || q.EndTime == "" {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: "start_time and end_time are required together",
			}
		}

		start, _, err := ParseQueryTime(q.StartTime, loc)
		if err != nil {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: "start_time must be RFC3339 or YYYY-MM-DD",
			}
		}
		end, dateOnly, err := ParseQueryTime(q.EndTime, loc)
		if err != nil {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: "end_time must be RFC3339 or YYYY-MM-DD",
			}
		}
		if dateOnly {
			end = end.AddDate(0, 0, 1)
		}

		if !end.After(start) {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: "end_time must be after start_time",
			}
		}
		if maxDays > 0 && end.Sub(start) > time.Duration(maxDays)*24*time.Hour {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: "time range cannot exceed " + strconv.Itoa(maxDays) + " days",
			}
		}

		q.StartTimeParsed = start
		q.EndTimeParsed = end
		return nil
	}

	if q.Days == "" {
		q.DaysParsed = defaultDays
		return nil
	}

	days, err := strconv.Atoi(q.Days)
	if err != nil || days < 1 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "days must be a positive integer",
		}
	}
	if maxDays > 0 && days > maxDays {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "days cannot exceed " + strconv.Itoa(maxDays),
		}
	}
	q.DaysParsed = days
	return nil
}

// ParseQueryTime parses an RFC3339 timestamp or a YYYY-MM-DD date in loc.
// The second return value reports whether the input was date-only.
func ParseQueryTime(value string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, false, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(utils.DateLayout, value, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// SPCRequest is the body of POST /v1/analysis/spc. Subgroups align 1:1 with
// Samples; a null position is a missing sensor reading.
type SPCRequest struct {
	Samples       analytics.SampleSeries       `json:"samples"`
	Subgroups     [][]*float64                 `json:"subgroups,omitempty"`
	Limits        *analytics.ControlLimits     `json:"limits,omitempty"`
	Spec          *analytics.SpecBounds        `json:"spec,omitempty"`
	Violations    []analytics.PatternViolation `json:"violations,omitempty"`
	Capability    *spc.CapabilityIndices       `json:"capability,omitempty"`
	HistogramBins int                          `json:"histogram_bins,omitempty"`
	CurvePoints   int                          `json:"curve_points,omitempty"`
}

// Validate validates the inline SPC request
func (r *SPCRequest) Validate() error {
	if len(r.Samples) == 0 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "samples are required",
		}
	}
	if len(r.Samples) > utils.MaxInlineSamples {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "too many samples (max " + strconv.Itoa(utils.MaxInlineSamples) + ")",
		}
	}
	if len(r.Subgroups) > 0 && len(r.Subgroups) != len(r.Samples) {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "subgroups must align 1:1 with samples",
		}
	}
	for i := 1; i < len(r.Samples); i++ {
		if r.Samples[i].Time.Before(r.Samples[i-1].Time) {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: "samples must be in chronological order",
			}
		}
	}
	if err := validateViolations(r.Violations, len(r.Samples)); err != nil {
		return err
	}
	return validateChartOptions(r.HistogramBins, r.CurvePoints)
}

// SubgroupSeries converts the JSON subgroups, mapping null positions to NaN
func (r *SPCRequest) SubgroupSeries() analytics.SubgroupSeries {
	return ToSubgroupSeries(r.Subgroups)
}

// ToSubgroupSeries maps nullable positions to a SubgroupSeries (null becomes NaN)
func ToSubgroupSeries(groups [][]*float64) analytics.SubgroupSeries {
	if len(groups) == 0 {
		return nil
	}
	out := make(analytics.SubgroupSeries, len(groups))
	for i, g := range groups {
		row := make([]float64, len(g))
		for j, v := range g {
			if v == nil {
				row[j] = math.NaN()
			} else {
				row[j] = *v
			}
		}
		out[i] = row
	}
	return out
}

// DistributionRequest is the body of POST /v1/analysis/distribution
type DistributionRequest struct {
	Values        []float64             `json:"values"`
	Spec          *analytics.SpecBounds `json:"spec,omitempty"`
	HistogramBins int                   `json:"histogram_bins,omitempty"`
	CurvePoints   int                   `json:"curve_points,omitempty"`
}

// Validate validates the distribution request
func (r *DistributionRequest) Validate() error {
	if len(r.Values) == 0 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "values are required",
		}
	}
	if len(r.Values) > utils.MaxInlineSamples {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "too many values (max " + strconv.Itoa(utils.MaxInlineSamples) + ")",
		}
	}
	return validateChartOptions(r.HistogramBins, r.CurvePoints)
}

// PatternsRequest is the body of POST /v1/analysis/patterns. When Violations is
// empty and Values is given, violations are detected from Values.
type PatternsRequest struct {
	SeriesLength int                          `json:"series_length"`
	Values       []float64                    `json:"values,omitempty"`
	Limits       *analytics.ControlLimits     `json:"limits,omitempty"`
	Violations   []analytics.PatternViolation `json:"violations,omitempty"`
}

// Validate validates the patterns request and defaults SeriesLength to len(Values)
func (r *PatternsRequest) Validate() error {
	if r.SeriesLength == 0 {
		r.SeriesLength = len(r.Values)
	}
	if r.SeriesLength < 0 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "series_length cannot be negative",
		}
	}
	if r.SeriesLength > utils.MaxInlineSamples {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "series_length too large (max " + strconv.Itoa(utils.MaxInlineSamples) + ")",
		}
	}
	if len(r.Values) > 0 && r.SeriesLength != len(r.Values) {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "series_length must match the number of values",
		}
	}
	if len(r.Violations) == 0 && len(r.Values) == 0 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "violations or values are required",
		}
	}
	if len(r.Violations) == 0 && r.Limits == nil {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "limits are required to detect violations",
		}
	}
	return validateViolations(r.Violations, r.SeriesLength)
}

// validateViolations rejects explicit lengths longer than the series.
// Positions are not checked; out-of-range windows are clipped when mapped.
func validateViolations(violations []analytics.PatternViolation, seriesLen int) error {
	for _, v := range violations {
		if v.Length > seriesLen {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: "violation length " + strconv.Itoa(v.Length) + " exceeds series length " + strconv.Itoa(seriesLen),
			}
		}
	}
	return nil
}

// validateChartOptions bounds the histogram and normal curve resolution
func validateChartOptions(bins, points int) error {
	if bins < 0 || points < 0 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "histogram_bins and curve_points cannot be negative",
		}
	}
	if bins > utils.MaxHistogramBins {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "histogram_bins too large (max " + strconv.Itoa(utils.MaxHistogramBins) + ")",
		}
	}
	if points > utils.MaxCurvePoints {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "curve_points too large (max " + strconv.Itoa(utils.MaxCurvePoints) + ")",
		}
	}
	return nil
}

// InvalidateRequest is the body of POST /v1/cache/invalidate. An empty
// EntityID clears every entity.
type InvalidateRequest struct {
	EntityID string `json:"entity_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
