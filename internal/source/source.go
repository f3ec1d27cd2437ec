// Package source loads measurement series, spec bounds and control limits for an
// equipment/process entity from the backing store.
package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/analytics/spc"
)

// ErrNotFound is returned when the store has no record for the entity
var ErrNotFound = errors.New("not found")

// ErrInvalidWindow is returned for empty or inverted windows
var ErrInvalidWindow = errors.New("invalid window")

// PositionNames are the wafer positions carried by a measurement, in subgroup order
var PositionNames = []string{"top", "center", "bottom", "left", "right"}

// Source is the read side of the measurement store
type Source interface {
	// Measurements returns the samples in window, chronologically ordered
	Measurements(ctx context.Context, entityID string, window Window) (*MeasurementSet, error)

	// SpecBounds returns the engineering limits of the entity
	SpecBounds(ctx context.Context, entityID string) (*analytics.SpecBounds, error)

	// ControlLimits returns the control limits and any capability indices computed upstream
	ControlLimits(ctx context.Context, entityID string) (*LimitsRecord, error)
}

// Measurement is one stored reading. Positions holds the per-position readings
// in PositionNames order; a nil entry is a position without a reading.
type Measurement struct {
	Timestamp time.Time  `json:"timestamp"`
	Value     float64    `json:"value"`
	Label     string     `json:"label,omitempty"`
	Positions []*float64 `json:"positions,omitempty"`
}

// LimitsRecord is the stored control-limit record for an entity
type LimitsRecord struct {
	Limits     analytics.ControlLimits `json:"limits"`
	Capability spc.CapabilityIndices   `json:"capability"`
}

// MeasurementSet is a window of samples with optional per-position subgroups.
// Cached sets are shared between requests and must be treated as read-only.
type MeasurementSet struct {
	EntityID  string                   `json:"entity_id"`
	Window    Window                   `json:"window"`
	Series    analytics.SampleSeries   `json:"series"`
	Subgroups analytics.SubgroupSeries `json:"subgroups,omitempty"`
}

// NewMeasurementSet sorts measurements by time and splits them into the sample
// series and, when any record carries positions, the aligned subgroup series.
func NewMeasurementSet(entityID string, window Window, measurements []Measurement) *MeasurementSet {
	sorted := make([]Measurement, len(measurements))
	copy(sorted, measurements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	set := &MeasurementSet{
		EntityID: entityID,
		Window:   window,
		Series:   make(analytics.SampleSeries, len(sorted)),
	}

	hasPositions := false
	for i, m := range sorted {
		set.Series[i] = analytics.Sample{Time: m.Timestamp, Value: m.Value, Label: m.Label}
		if len(m.Positions) > 0 {
			hasPositions = true
		}
	}

	if hasPositions {
		set.Subgroups = make(analytics.SubgroupSeries, len(sorted))
		for i, m := range sorted {
			group := make([]float64, len(m.Positions))
			for j, p := range m.Positions {
				if p == nil {
					group[j] = math.NaN()
				} else {
					group[j] = *p
				}
			}
			set.Subgroups[i] = group
		}
	}

	return set
}

// Window is a closed time interval with the label used in cache keys
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// LastDays returns the window ending at now and spanning days days
func LastDays(days int, now time.Time) (Window, error) {
	if days < 1 {
		return Window{}, fmt.Errorf("%w: days must be at least 1, got %d", ErrInvalidWindow, days)
	}
	return Window{
		Start: now.AddDate(0, 0, -days),
		End:   now,
		Label: fmt.Sprintf("%dd", days),
	}, nil
}

// Between returns the window [start, end]
func Between(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, fmt.Errorf("%w: start and end are required", ErrInvalidWindow)
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidWindow, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Window{Start: start, End: end, Label: rangeLabel(start, end)}, nil
}

// Contains reports whether t lies within the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// rangeLabel renders date-aligned ranges as 20240101-20240131 and anything
// else with full timestamps so distinct ranges never share a label.
func rangeLabel(start, end time.Time) string {
	if isMidnight(start) && isMidnight(end) {
		return start.Format("20060102") + "-" + end.Format("20060102")
	}
	return start.UTC().Format(time.RFC3339) + "-" + end.UTC().Format(time.RFC3339)
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}
