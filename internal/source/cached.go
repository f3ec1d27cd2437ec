package source

import (
	"context"
	"time"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/cache"
	"github.com/dicdwatch/dicdwatch/internal/logging"
)

// Resource types used as the first cache key component
const (
	ResourceMeasurements = "measurements"
	ResourceSpec         = "spec"
	ResourceLimits       = "limits"
)

// CachedSource is a read-through TTL cache in front of another Source.
// Only successful reads are cached.
type CachedSource struct {
	inner        Source
	measurements *cache.TemporalCache[cache.Key, *MeasurementSet]
	specs        *cache.TemporalCache[cache.Key, *analytics.SpecBounds]
	limits       *cache.TemporalCache[cache.Key, *LimitsRecord]
	logger       *logging.Logger
}

// NewCachedSource wraps inner with caches sharing the given options
func NewCachedSource(inner Source, logger *logging.Logger, opts ...cache.Option) *CachedSource {
	if logger == nil {
		logger = logging.Global()
	}
	return &CachedSource{
		inner:        inner,
		measurements: cache.New[cache.Key, *MeasurementSet](opts...),
		specs:        cache.New[cache.Key, *analytics.SpecBounds](opts...),
		limits:       cache.New[cache.Key, *LimitsRecord](opts...),
		logger:       logger.With("component", "source.cache"),
	}
}

// Measurements returns cached measurements for (entity, window label) or loads them
func (s *CachedSource) Measurements(ctx context.Context, entityID string, window Window) (*MeasurementSet, error) {
	key := cache.Key{ResourceType: ResourceMeasurements, EntityID: entityID, Window: window.Label}
	if set, ok := s.measurements.Get(key); ok {
		return set, nil
	}

	start := time.Now()
	set, err := s.inner.Measurements(ctx, entityID, window)
	if err != nil {
		return nil, err
	}
	s.measurements.Put(key, set)

	s.logger.Debug("Loaded measurements", "key", key.String(), "samples", set.Series.Len(),
		"duration_ms", time.Since(start).Milliseconds())
	return set, nil
}

// SpecBounds returns cached spec bounds or loads them
func (s *CachedSource) SpecBounds(ctx context.Context, entityID string) (*analytics.SpecBounds, error) {
	key := cache.Key{ResourceType: ResourceSpec, EntityID: entityID}
	if bounds, ok := s.specs.Get(key); ok {
		return bounds, nil
	}

	bounds, err := s.inner.SpecBounds(ctx, entityID)
	if err != nil {
		return nil, err
	}
	s.specs.Put(key, bounds)
	return bounds, nil
}

// ControlLimits returns cached control limits or loads them
func (s *CachedSource) ControlLimits(ctx context.Context, entityID string) (*LimitsRecord, error) {
	key := cache.Key{ResourceType: ResourceLimits, EntityID: entityID}
	if rec, ok := s.limits.Get(key); ok {
		return rec, nil
	}

	rec, err := s.inner.ControlLimits(ctx, entityID)
	if err != nil {
		return nil, err
	}
	s.limits.Put(key, rec)
	return rec, nil
}

// InvalidateAll drops every cached entry
func (s *CachedSource) InvalidateAll() {
	s.measurements.InvalidateAll()
	s.specs.InvalidateAll()
	s.limits.InvalidateAll()
	s.logger.Info("Cache invalidated")
}

// InvalidateEntity drops the cached entries of one entity and returns how many were removed
func (s *CachedSource) InvalidateEntity(entityID string) int {
	match := func(k cache.Key) bool { return k.EntityID == entityID }
	removed := s.measurements.DeleteFunc(match) + s.specs.DeleteFunc(match) + s.limits.DeleteFunc(match)
	s.logger.Info("Entity cache invalidated", "entity_id", entityID, "removed", removed)
	return removed
}

// Stats returns per-resource cache statistics
func (s *CachedSource) Stats() map[string]cache.Stats {
	return map[string]cache.Stats{
		ResourceMeasurements: s.measurements.Stats(),
		ResourceSpec:         s.specs.Stats(),
		ResourceLimits:       s.limits.Stats(),
	}
}

var _ Source = (*CachedSource)(nil)
