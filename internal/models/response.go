package models

import (
	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/analytics/spc"
	"github.com/dicdwatch/dicdwatch/internal/cache"
)

// HealthResponse reports liveness and the local cache/bus state of the instance
type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	Version       string `json:"version"`
	NodeID        string `json:"node_id,omitempty"`
	Invalidation  string `json:"invalidation"` // "bus" or "local"
	CachedEntries int    `json:"cached_entries"`
}

// PatternsResponse represents mapped pattern highlights
type PatternsResponse struct {
	Zones      *spc.Zones                   `json:"zones,omitempty"`
	Detected   bool                         `json:"detected"`
	Highlights []spc.Highlight              `json:"highlights"`
	Positions  []int                        `json:"positions"`
	Rejected   []analytics.PatternViolation `json:"rejected,omitempty"`
}

// QuantileResponse represents a normal quantile lookup
type QuantileResponse struct {
	P float64 `json:"p"`
	Z float64 `json:"z"`
}

// CapabilityResponse represents a capability classification. Value is nil when
// the index was missing or not finite.
type CapabilityResponse struct {
	Value *float64           `json:"value"`
	Band  spc.CapabilityBand `json:"band"`
}

// InvalidateResponse represents the outcome of a cache invalidation
type InvalidateResponse struct {
	Scope     string `json:"scope"` // all or entity
	EntityID  string `json:"entity_id,omitempty"`
	Removed   int    `json:"removed"`
	Published bool   `json:"published"`
}

// CacheStatsResponse represents per-resource cache statistics
type CacheStatsResponse struct {
	Caches map[string]cache.Stats `json:"caches"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
