package analytics

import "errors"

// Errors returned by the analytics packages. All of them are scoped to a single
// statistic: callers report that statistic as unavailable and keep going.
var (
	// ErrInsufficientData means fewer samples than the statistic requires
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerateDistribution means the series has zero variance
	ErrDegenerateDistribution = errors.New("degenerate distribution")

	// ErrInvalidLimits means the control limits are flat, inverted or not finite
	ErrInvalidLimits = errors.New("invalid control limits")

	// ErrDomain means an argument is outside the function's domain
	ErrDomain = errors.New("argument outside domain")

	// ErrInvalidSpecBounds means lsl >= usl
	ErrInvalidSpecBounds = errors.New("invalid spec bounds")

	// ErrUnsupportedSubgroupSize means no control-chart constants exist for the size
	ErrUnsupportedSubgroupSize = errors.New("unsupported subgroup size")

	// ErrMisalignedSubgroups means the subgroup series does not align 1:1 with the samples
	ErrMisalignedSubgroups = errors.New("subgroups not aligned with samples")
)
