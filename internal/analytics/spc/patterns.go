package spc

import (
	"fmt"
	"sort"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
)

// Highlight is a rule violation resolved into concrete sample positions.
type Highlight struct {
	Rule      int    `json:"rule"`
	RuleName  string `json:"rule_name"`
	Start     int    `json:"start"`
	Positions []int  `json:"positions"`
	Rationale string `json:"rationale"`
	Clipped   bool   `json:"clipped"`
}

// MapViolation resolves a violation into the positions it implicates. The window
// [position, position+span-1] is clipped to [0, seriesLen): positions past either
// end are dropped, never wrapped. zones may be nil, in which case the rationale
// omits boundary values.
func MapViolation(v analytics.PatternViolation, seriesLen int, zones *Zones) (Highlight, error) {
	rule := Rule(v.Rule)
	spec, ok := ruleTable[rule]
	if !ok {
		return Highlight{}, fmt.Errorf("unknown pattern rule: %d", v.Rule)
	}

	span := spec.span
	if v.Length > 0 {
		span = v.Length
	}

	start, end := clipWindow(v.Position, span, seriesLen)

	h := Highlight{
		Rule:      v.Rule,
		RuleName:  spec.name,
		Start:     v.Position,
		Positions: make([]int, 0, end-start),
		Rationale: spec.describe(zones),
		Clipped:   start != v.Position || end-start != span,
	}
	for p := start; p < end; p++ {
		h.Positions = append(h.Positions, p)
	}
	return h, nil
}

// clipWindow intersects [pos, pos+span) with [0, seriesLen) and returns the
// bounds, with end >= start. span is positive. The sum is only formed when it
// cannot overflow.
func clipWindow(pos, span, seriesLen int) (start, end int) {
	if seriesLen <= 0 || pos >= seriesLen {
		return 0, 0
	}
	if pos < 0 {
		end = pos + span
		if end <= 0 {
			return 0, 0
		}
		if end > seriesLen {
			end = seriesLen
		}
		return 0, end
	}
	if span >= seriesLen-pos {
		return pos, seriesLen
	}
	return pos, pos + span
}

// MapViolations resolves every violation, skipping unknown rules. The second
// return value lists the violations that could not be mapped.
func MapViolations(violations []analytics.PatternViolation, seriesLen int, zones *Zones) ([]Highlight, []analytics.PatternViolation) {
	highlights := make([]Highlight, 0, len(violations))
	var rejected []analytics.PatternViolation

	for _, v := range violations {
		h, err := MapViolation(v, seriesLen, zones)
		if err != nil {
			rejected = append(rejected, v)
			continue
		}
		highlights = append(highlights, h)
	}
	return highlights, rejected
}

// HighlightedPositions returns the sorted union of all highlighted positions
func HighlightedPositions(highlights []Highlight) []int {
	seen := make(map[int]struct{})
	for _, h := range highlights {
		for _, p := range h.Positions {
			seen[p] = struct{}{}
		}
	}

	positions := make([]int, 0, len(seen))
	for p := range seen {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	return positions
}
