// Package analytics provides the shared data model for the SPC and distribution
// analytics packages: sample series, subgroup series, spec bounds and control limits.
package analytics

import (
	"fmt"
	"math"
	"time"
)

// Sample represents a single measurement with time and value.
// This is the common type used across all analytics packages (spc, distribution).
type Sample struct {
	Time  time.Time `json:"timestamp"`
	Value float64   `json:"value"`
	Label string    `json:"label,omitempty"`
}

// SampleSeries is an ordered collection of samples. Insertion order is
// chronological order; analytics code never reorders the caller's series.
type SampleSeries []Sample

// Values extracts just the values from the series
func (s SampleSeries) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Times extracts just the times from the series
func (s SampleSeries) Times() []time.Time {
	times := make([]time.Time, len(s))
	for i, p := range s {
		times[i] = p.Time
	}
	return times
}

// Len returns the number of samples
func (s SampleSeries) Len() int {
	return len(s)
}

// SubgroupSeries holds one position vector per sample (e.g. top, center, bottom,
// left, right on a wafer). A NaN entry marks a position without a reading.
type SubgroupSeries [][]float64

// Len returns the number of subgroups
func (s SubgroupSeries) Len() int {
	return len(s)
}

// Size returns the widest subgroup, which is the nominal subgroup size.
func (s SubgroupSeries) Size() int {
	size := 0
	for _, g := range s {
		if len(g) > size {
			size = len(g)
		}
	}
	return size
}

// SpecBounds are the engineering specification limits of a measured characteristic.
type SpecBounds struct {
	LSL    float64  `json:"lsl"`
	USL    float64  `json:"usl"`
	Target *float64 `json:"target,omitempty"`
}

// Validate checks that the bounds describe a non-empty interval
func (b SpecBounds) Validate() error {
	if !IsFinite(b.LSL) || !IsFinite(b.USL) {
		return fmt.Errorf("%w: lsl and usl must be finite", ErrInvalidSpecBounds)
	}
	if b.LSL >= b.USL {
		return fmt.Errorf("%w: lsl %.4f must be below usl %.4f", ErrInvalidSpecBounds, b.LSL, b.USL)
	}
	return nil
}

// TargetOrMidpoint returns the target, defaulting to the midpoint of the bounds.
func (b SpecBounds) TargetOrMidpoint() float64 {
	if b.Target != nil {
		return *b.Target
	}
	return (b.LSL + b.USL) / 2
}

// Contains reports whether v lies within [LSL, USL]
func (b SpecBounds) Contains(v float64) bool {
	return v >= b.LSL && v <= b.USL
}

// ControlLimits are the center line and control limits of a control chart.
type ControlLimits struct {
	CL  float64 `json:"cl"`
	UCL float64 `json:"ucl"`
	LCL float64 `json:"lcl"`
}

// Validate checks LCL <= CL <= UCL
func (l ControlLimits) Validate() error {
	if !IsFinite(l.CL) || !IsFinite(l.UCL) || !IsFinite(l.LCL) {
		return fmt.Errorf("%w: limits must be finite", ErrInvalidLimits)
	}
	if l.LCL > l.CL || l.CL > l.UCL {
		return fmt.Errorf("%w: expected lcl <= cl <= ucl, got lcl=%.4f cl=%.4f ucl=%.4f",
			ErrInvalidLimits, l.LCL, l.CL, l.UCL)
	}
	return nil
}

// PatternViolation is a rule hit reported against a sample series.
// Position indexes into the series; Length optionally overrides the rule span.
type PatternViolation struct {
	Rule     int `json:"rule"`
	Position int `json:"position"`
	Length   int `json:"length,omitempty"`
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
