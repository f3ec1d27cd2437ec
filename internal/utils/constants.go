package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

const (
	// SourceFetchTimeout bounds a single read from the measurement store
	SourceFetchTimeout = 10 * time.Second

	// PublishTimeout bounds publishing one invalidation event
	PublishTimeout = 5 * time.Second

	// ShutdownTimeout bounds graceful HTTP shutdown
	ShutdownTimeout = 10 * time.Second
)

// =============================================================================
// Query Constants
// =============================================================================

const (
	// DateLayout is the date-only layout accepted for start_time/end_time
	DateLayout = "2006-01-02"

	// MaxInlineSamples caps the series size accepted by the inline analysis endpoints
	MaxInlineSamples = 100000

	// MaxHistogramBins caps the histogram_bins option
	MaxHistogramBins = 1000

	// MaxCurvePoints caps the curve_points option
	MaxCurvePoints = 10000
)

// =============================================================================
// Retry and Backoff Constants
// =============================================================================

const (
	// DefaultRetryBackoff is the pause after a failed bus read before retrying
	DefaultRetryBackoff = time.Second

	// BusBlockTimeout is how long a stream read blocks waiting for events
	BusBlockTimeout = time.Second
)

// =============================================================================
// Invalidation Bus Type Constants
// =============================================================================

// BusType represents the transport carrying cache invalidation events
type BusType string

const (
	// BusTypeNone disables cross-instance invalidation
	BusTypeNone BusType = "none"

	// BusTypeNATS represents NATS core pub/sub
	BusTypeNATS BusType = "nats"

	// BusTypeRedis represents Redis Streams
	BusTypeRedis BusType = "redis"

	// BusTypeKafka represents Apache Kafka
	BusTypeKafka BusType = "kafka"

	// BusTypeMemory represents the in-process broker (single instance, tests)
	BusTypeMemory BusType = "memory"
)
