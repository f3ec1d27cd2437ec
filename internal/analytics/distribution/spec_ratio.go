package distribution

import (
	"fmt"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
)

// InSpecBand is a display tier for the in-spec ratio
type InSpecBand string

const (
	InSpecExcellent InSpecBand = "excellent" // >= 99.73% (3 sigma)
	InSpecGood      InSpecBand = "good"      // >= 95% (2 sigma)
	InSpecWarning   InSpecBand = "warning"   // >= 68% (1 sigma)
	InSpecCritical  InSpecBand = "critical"
)

// Sigma-equivalent coverage thresholds
const (
	OneSigmaCoverage   = 0.68
	TwoSigmaCoverage   = 0.95
	ThreeSigmaCoverage = 0.9973
)

// InSpecResult reports how many samples fall within the spec bounds
type InSpecResult struct {
	InSpec int        `json:"in_spec"`
	Total  int        `json:"total"`
	Ratio  float64    `json:"ratio"`
	Band   InSpecBand `json:"band"`
}

// ClassifyInSpecRatio maps a ratio in [0, 1] to its display band
func ClassifyInSpecRatio(ratio float64) InSpecBand {
	switch {
	case ratio >= ThreeSigmaCoverage:
		return InSpecExcellent
	case ratio >= TwoSigmaCoverage:
		return InSpecGood
	case ratio >= OneSigmaCoverage:
		return InSpecWarning
	default:
		return InSpecCritical
	}
}

// InSpecRatio counts the fraction of values within [LSL, USL]
func InSpecRatio(values []float64, bounds analytics.SpecBounds) (*InSpecResult, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: in-spec ratio of empty series", analytics.ErrInsufficientData)
	}

	inSpec := 0
	for _, v := range values {
		if bounds.Contains(v) {
			inSpec++
		}
	}

	ratio := float64(inSpec) / float64(len(values))
	return &InSpecResult{
		InSpec: inSpec,
		Total:  len(values),
		Ratio:  ratio,
		Band:   ClassifyInSpecRatio(ratio),
	}, nil
}
