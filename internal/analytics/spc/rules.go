package spc

import "fmt"

// Rule identifies a Western-Electric style pattern rule, 1 through 8.
type Rule int

const (
	RuleBeyondLimits   Rule = 1 // single point beyond 3 sigma
	RuleSameSide       Rule = 2 // 9 points on one side of center
	RuleTrend          Rule = 3 // 6 points steadily increasing or decreasing
	RuleAlternating    Rule = 4 // 14 points alternating up and down
	RuleZoneA          Rule = 5 // 2 of 3 points in zone A or beyond, same side
	RuleZoneB          Rule = 6 // 4 of 5 points in zone B or beyond, same side
	RuleStratification Rule = 7 // 15 points inside zone C
	RuleMixture        Rule = 8 // 8 points outside zone C
)

type ruleSpec struct {
	name     string
	span     int
	describe func(z *Zones) string
}

var ruleTable = map[Rule]ruleSpec{
	RuleBeyondLimits: {
		name: "beyond_limits",
		span: 1,
		describe: func(z *Zones) string {
			if z == nil {
				return "Point beyond the control limits"
			}
			return fmt.Sprintf("Point beyond the control limits (above UCL %.4f or below LCL %.4f)", z.UCL, z.LCL)
		},
	},
	RuleSameSide: {
		name: "same_side",
		span: 9,
		describe: func(z *Zones) string {
			return "9 consecutive points on the same side of the center line"
		},
	},
	RuleTrend: {
		name: "trend",
		span: 6,
		describe: func(z *Zones) string {
			return "6 consecutive points steadily increasing or decreasing"
		},
	},
	RuleAlternating: {
		name: "alternating",
		span: 14,
		describe: func(z *Zones) string {
			return "14 consecutive points alternating up and down"
		},
	},
	RuleZoneA: {
		name: "zone_a",
		span: 2,
		describe: func(z *Zones) string {
			if z == nil {
				return "2 of 3 consecutive points in zone A or beyond on the same side"
			}
			return fmt.Sprintf("2 of 3 consecutive points in zone A or beyond on the same side (above %.4f or below %.4f)",
				z.ZoneAUpper, z.ZoneALower)
		},
	},
	RuleZoneB: {
		name: "zone_b",
		span: 4,
		describe: func(z *Zones) string {
			if z == nil {
				return "4 of 5 consecutive points in zone B or beyond on the same side"
			}
			return fmt.Sprintf("4 of 5 consecutive points in zone B or beyond on the same side (above %.4f or below %.4f)",
				z.ZoneBUpper, z.ZoneBLower)
		},
	},
	RuleStratification: {
		name: "stratification",
		span: 15,
		describe: func(z *Zones) string {
			if z == nil {
				return "15 consecutive points within zone C"
			}
			return fmt.Sprintf("15 consecutive points within zone C (between %.4f and %.4f)", z.ZoneBLower, z.ZoneBUpper)
		},
	},
	RuleMixture: {
		name: "mixture",
		span: 8,
		describe: func(z *Zones) string {
			if z == nil {
				return "8 consecutive points outside zone C on either side"
			}
			return fmt.Sprintf("8 consecutive points outside zone C on either side (above %.4f or below %.4f)",
				z.ZoneBUpper, z.ZoneBLower)
		},
	},
}

// Valid reports whether r is one of the eight known rules
func (r Rule) Valid() bool {
	_, ok := ruleTable[r]
	return ok
}

// Name returns the rule's short identifier
func (r Rule) Name() string {
	if spec, ok := ruleTable[r]; ok {
		return spec.name
	}
	return fmt.Sprintf("rule_%d", int(r))
}

// Span returns the number of consecutive points the rule highlights
func (r Rule) Span() int {
	return ruleTable[r].span
}

// Rules returns all rules in ascending order
func Rules() []Rule {
	return []Rule{
		RuleBeyondLimits, RuleSameSide, RuleTrend, RuleAlternating,
		RuleZoneA, RuleZoneB, RuleStratification, RuleMixture,
	}
}
