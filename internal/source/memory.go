package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
)

// MemorySource is a map-backed Source for tests and single-process demos
type MemorySource struct {
	mu           sync.RWMutex
	measurements map[string][]Measurement
	specs        map[string]analytics.SpecBounds
	limits       map[string]LimitsRecord
}

// NewMemorySource creates an empty in-memory store
func NewMemorySource() *MemorySource {
	return &MemorySource{
		measurements: make(map[string][]Measurement),
		specs:        make(map[string]analytics.SpecBounds),
		limits:       make(map[string]LimitsRecord),
	}
}

// AddMeasurements appends measurements for an entity
func (s *MemorySource) AddMeasurements(entityID string, measurements ...Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.measurements[entityID] = append(s.measurements[entityID], measurements...)
}

// SetSpecBounds replaces the spec bounds of an entity
func (s *MemorySource) SetSpecBounds(entityID string, bounds analytics.SpecBounds) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.specs[entityID] = bounds
}

// SetControlLimits replaces the control limits of an entity
func (s *MemorySource) SetControlLimits(entityID string, rec LimitsRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.limits[entityID] = rec
}

// Measurements returns the entity's measurements within the window
func (s *MemorySource) Measurements(ctx context.Context, entityID string, window Window) (*MeasurementSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var selected []Measurement
	for _, m := range s.measurements[entityID] {
		if window.Contains(m.Timestamp) {
			selected = append(selected, m)
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: no measurements for %s in %s", ErrNotFound, entityID, window.Label)
	}

	return NewMeasurementSet(entityID, window, selected), nil
}

// SpecBounds returns the entity's spec bounds
func (s *MemorySource) SpecBounds(ctx context.Context, entityID string) (*analytics.SpecBounds, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bounds, ok := s.specs[entityID]
	if !ok {
		return nil, fmt.Errorf("%w: spec bounds for %s", ErrNotFound, entityID)
	}
	return &bounds, nil
}

// ControlLimits returns the entity's control limits
func (s *MemorySource) ControlLimits(ctx context.Context, entityID string) (*LimitsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.limits[entityID]
	if !ok {
		return nil, fmt.Errorf("%w: control limits for %s", ErrNotFound, entityID)
	}
	return &rec, nil
}

var _ Source = (*MemorySource)(nil)
