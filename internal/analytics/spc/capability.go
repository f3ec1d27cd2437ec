package spc

import "github.com/dicdwatch/dicdwatch/internal/analytics"

// CapabilityBand is the quality tier of a capability index
type CapabilityBand string

const (
	CapabilityExcellent   CapabilityBand = "excellent"
	CapabilityAdequate    CapabilityBand = "adequate"
	CapabilityMarginal    CapabilityBand = "marginal"
	CapabilityPoor        CapabilityBand = "poor"
	CapabilityUnavailable CapabilityBand = "unavailable"
)

// Band thresholds, inclusive lower bounds
const (
	ExcellentCapability = 1.33
	AdequateCapability  = 1.00
	MarginalCapability  = 0.67
)

// ClassifyCapability maps Cp, Cpk, Pp or Ppk to its band. A non-finite index is
// unavailable rather than poor.
func ClassifyCapability(index float64) CapabilityBand {
	if !analytics.IsFinite(index) {
		return CapabilityUnavailable
	}
	switch {
	case index >= ExcellentCapability:
		return CapabilityExcellent
	case index >= AdequateCapability:
		return CapabilityAdequate
	case index >= MarginalCapability:
		return CapabilityMarginal
	default:
		return CapabilityPoor
	}
}

// CapabilityIndices are backend-computed indices; nil means not reported.
type CapabilityIndices struct {
	Cp  *float64 `json:"cp,omitempty"`
	Cpk *float64 `json:"cpk,omitempty"`
	Pp  *float64 `json:"pp,omitempty"`
	Ppk *float64 `json:"ppk,omitempty"`
}

// CapabilityBands holds one band per index
type CapabilityBands struct {
	Cp  CapabilityBand `json:"cp"`
	Cpk CapabilityBand `json:"cpk"`
	Pp  CapabilityBand `json:"pp"`
	Ppk CapabilityBand `json:"ppk"`
}

// ClassifyIndices classifies every index uniformly
func ClassifyIndices(idx CapabilityIndices) CapabilityBands {
	return CapabilityBands{
		Cp:  classifyOptional(idx.Cp),
		Cpk: classifyOptional(idx.Cpk),
		Pp:  classifyOptional(idx.Pp),
		Ppk: classifyOptional(idx.Ppk),
	}
}

func classifyOptional(v *float64) CapabilityBand {
	if v == nil {
		return CapabilityUnavailable
	}
	return ClassifyCapability(*v)
}
