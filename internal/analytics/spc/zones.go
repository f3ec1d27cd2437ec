// Package spc derives control-chart analytics from a sample series and its
// control limits: sigma zones, pattern-rule highlighting, range charts and
// capability classification.
package spc

import (
	"fmt"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
)

// Zones are the sigma bands around the center line. Sigma is derived from the
// upper half of the control band, (UCL - CL) / 3.
type Zones struct {
	CL         float64 `json:"cl"`
	UCL        float64 `json:"ucl"`
	LCL        float64 `json:"lcl"`
	Sigma      float64 `json:"sigma"`
	ZoneAUpper float64 `json:"zone_a_upper"`
	ZoneALower float64 `json:"zone_a_lower"`
	ZoneBUpper float64 `json:"zone_b_upper"`
	ZoneBLower float64 `json:"zone_b_lower"`
}

// CalculateZones derives zone boundaries from control limits
func CalculateZones(limits analytics.ControlLimits) (Zones, error) {
	if err := limits.Validate(); err != nil {
		return Zones{}, err
	}
	if limits.UCL <= limits.CL {
		return Zones{}, fmt.Errorf("%w: ucl %.4f must be above cl %.4f", analytics.ErrInvalidLimits, limits.UCL, limits.CL)
	}

	sigma := (limits.UCL - limits.CL) / 3
	return Zones{
		CL:         limits.CL,
		UCL:        limits.UCL,
		LCL:        limits.LCL,
		Sigma:      sigma,
		ZoneAUpper: limits.CL + 2*sigma,
		ZoneALower: limits.CL - 2*sigma,
		ZoneBUpper: limits.CL + sigma,
		ZoneBLower: limits.CL - sigma,
	}, nil
}

// Zone names a band around the center line
type Zone string

const (
	ZoneC      Zone = "C"      // within 1 sigma
	ZoneB      Zone = "B"      // 1 to 2 sigma
	ZoneA      Zone = "A"      // 2 to 3 sigma
	ZoneBeyond Zone = "beyond" // outside the control limits
)

// Side is the position of a value relative to the center line
type Side int

const (
	SideBelow  Side = -1
	SideCenter Side = 0
	SideAbove  Side = 1
)

// Position locates a single value within the zones
type Position struct {
	Zone Zone
	Side Side
}

// Classify returns the zone and side of v. Boundary values belong to the inner zone.
func (z Zones) Classify(v float64) Position {
	var side Side
	switch {
	case v > z.CL:
		side = SideAbove
	case v < z.CL:
		side = SideBelow
	}

	switch {
	case v > z.UCL || v < z.LCL:
		return Position{Zone: ZoneBeyond, Side: side}
	case v > z.ZoneAUpper || v < z.ZoneALower:
		return Position{Zone: ZoneA, Side: side}
	case v > z.ZoneBUpper || v < z.ZoneBLower:
		return Position{Zone: ZoneB, Side: side}
	default:
		return Position{Zone: ZoneC, Side: side}
	}
}

// AtLeast reports whether the position is in zone or further out
func (p Position) AtLeast(zone Zone) bool {
	return zoneRank(p.Zone) >= zoneRank(zone)
}

func zoneRank(z Zone) int {
	switch z {
	case ZoneB:
		return 1
	case ZoneA:
		return 2
	case ZoneBeyond:
		return 3
	default:
		return 0
	}
}
