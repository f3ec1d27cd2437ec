package spc

import (
	"sort"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
)

// DetectViolations evaluates the eight pattern rules over values. Run rules report
// the start of each qualifying run once; the window rules (5, 6) report the first
// qualifying point of a window and skip windows overlapping a reported one.
// Results are ordered by position, then rule.
func DetectViolations(values []float64, zones Zones) []analytics.PatternViolation {
	n := len(values)
	if n == 0 {
		return nil
	}

	positions := make([]Position, n)
	for i, v := range values {
		positions[i] = zones.Classify(v)
	}

	var out []analytics.PatternViolation
	add := func(rule Rule, starts []int) {
		for _, s := range starts {
			out = append(out, analytics.PatternViolation{Rule: int(rule), Position: s})
		}
	}

	// Rule 1
	for i, p := range positions {
		if p.Zone == ZoneBeyond {
			out = append(out, analytics.PatternViolation{Rule: int(RuleBeyondLimits), Position: i})
		}
	}

	// Rule 2
	sides := make([]int, n)
	for i, p := range positions {
		sides[i] = int(p.Side)
	}
	add(RuleSameSide, runStarts(sides, RuleSameSide.Span()))

	// Rule 3: 5 consecutive same-sign steps cover 6 points
	steps := stepSigns(values)
	add(RuleTrend, runStarts(steps, RuleTrend.Span()-1))

	// Rule 4: 12 consecutive sign flips cover 13 steps and 14 points
	if len(steps) > 1 {
		flips := make([]int, len(steps)-1)
		for i := range flips {
			if steps[i] != 0 && steps[i] == -steps[i+1] {
				flips[i] = 1
			}
		}
		add(RuleAlternating, runStarts(flips, RuleAlternating.Span()-2))
	}

	// Rules 5 and 6
	add(RuleZoneA, windowHits(positions, 3, 2, ZoneA))
	add(RuleZoneB, windowHits(positions, 5, 4, ZoneB))

	// Rule 7
	inC := make([]int, n)
	outC := make([]int, n)
	for i, p := range positions {
		if p.Zone == ZoneC {
			inC[i] = 1
		} else {
			outC[i] = 1
		}
	}
	add(RuleStratification, runStarts(inC, RuleStratification.Span()))

	// Rule 8
	add(RuleMixture, runStarts(outC, RuleMixture.Span()))

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

// runStarts returns the start of every run of equal non-zero keys at least minLen long
func runStarts(keys []int, minLen int) []int {
	var starts []int
	runStart := 0
	for i := 0; i <= len(keys); i++ {
		if i < len(keys) && i > runStart && keys[i] == keys[runStart] {
			continue
		}
		if i > runStart && keys[runStart] != 0 && i-runStart >= minLen {
			starts = append(starts, runStart)
		}
		runStart = i
	}
	return starts
}

// stepSigns returns the sign of each consecutive difference
func stepSigns(values []float64) []int {
	if len(values) < 2 {
		return nil
	}
	signs := make([]int, len(values)-1)
	for i := range signs {
		switch d := values[i+1] - values[i]; {
		case d > 0:
			signs[i] = 1
		case d < 0:
			signs[i] = -1
		}
	}
	return signs
}

// windowHits finds windows of size w holding at least k points in zone or beyond
// on the same side. It reports the first qualifying point of each window; the
// highlighted span is then taken from the rule table, so for 2-of-3 and 4-of-5
// it may include a point outside the zone and omit a later qualifying one.
func windowHits(positions []Position, w, k int, zone Zone) []int {
	var hits []int
	next := 0
	for s := 0; s+w <= len(positions); s++ {
		if s < next {
			continue
		}
		for _, side := range []Side{SideAbove, SideBelow} {
			count, first := 0, -1
			for i := s; i < s+w; i++ {
				if positions[i].Side == side && positions[i].AtLeast(zone) {
					count++
					if first < 0 {
						first = i
					}
				}
			}
			if count >= k {
				hits = append(hits, first)
				next = s + w
				break
			}
		}
	}
	return hits
}
