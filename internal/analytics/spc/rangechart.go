package spc

import (
	"fmt"
	"math"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
)

// RangeChartMode tells how the range series was derived
type RangeChartMode string

const (
	RangeModeSubgroup    RangeChartMode = "subgroup"
	RangeModeMovingRange RangeChartMode = "moving_range"
)

// chartConstants are the d2/d3 bias factors for the range of a normal subgroup
type chartConstants struct {
	d2 float64
	d3 float64
}

var rangeConstants = map[int]chartConstants{
	2:  {d2: 1.128, d3: 0.853},
	3:  {d2: 1.693, d3: 0.888},
	4:  {d2: 2.059, d3: 0.880},
	5:  {d2: 2.326, d3: 0.864},
	6:  {d2: 2.534, d3: 0.848},
	7:  {d2: 2.704, d3: 0.833},
	8:  {d2: 2.847, d3: 0.820},
	9:  {d2: 2.970, d3: 0.808},
	10: {d2: 3.078, d3: 0.797},
}

// RangeChart is an R-chart series with its own limits. LCL is nil unless the
// computed lower limit is strictly positive.
type RangeChart struct {
	Mode         RangeChartMode `json:"mode"`
	SubgroupSize int            `json:"subgroup_size"`
	Ranges       []float64      `json:"ranges"`
	CenterLine   float64        `json:"center_line"`
	UCL          float64        `json:"ucl"`
	LCL          *float64       `json:"lcl,omitempty"`
	D2           float64        `json:"d2"`
	D3           float64        `json:"d3"`
}

// BuildRangeChart derives the range series and its limits. Subgroup mode is used
// when subgroups are present (at least two positions wide); otherwise the moving
// range of values is used.
func BuildRangeChart(values []float64, subgroups analytics.SubgroupSeries) (*RangeChart, error) {
	var (
		ranges []float64
		mode   RangeChartMode
		size   int
	)

	if subgroups.Len() > 0 && subgroups.Size() >= 2 {
		if subgroups.Len() != len(values) {
			return nil, fmt.Errorf("%w: %d subgroups for %d samples",
				analytics.ErrMisalignedSubgroups, subgroups.Len(), len(values))
		}
		ranges = SubgroupRanges(subgroups)
		mode = RangeModeSubgroup
		size = subgroups.Size()
	} else {
		mr, err := MovingRanges(values)
		if err != nil {
			return nil, err
		}
		ranges = mr
		mode = RangeModeMovingRange
		size = 2
	}

	consts, ok := rangeConstants[size]
	if !ok {
		return nil, fmt.Errorf("%w: no d2/d3 constants for subgroup size %d",
			analytics.ErrUnsupportedSubgroupSize, size)
	}

	rBar := 0.0
	for _, r := range ranges {
		rBar += r
	}
	rBar /= float64(len(ranges))

	spread := 3 * rBar * consts.d3 / consts.d2
	chart := &RangeChart{
		Mode:         mode,
		SubgroupSize: size,
		Ranges:       ranges,
		CenterLine:   rBar,
		UCL:          rBar + spread,
		D2:           consts.d2,
		D3:           consts.d3,
	}
	if lcl := rBar - spread; lcl > 0 {
		chart.LCL = &lcl
	}
	return chart, nil
}

// SubgroupRanges returns max - min over the finite positions of each subgroup.
// Subgroups with fewer than two readings have range 0.
func SubgroupRanges(subgroups analytics.SubgroupSeries) []float64 {
	ranges := make([]float64, len(subgroups))
	for i, g := range subgroups {
		lo, hi := math.Inf(1), math.Inf(-1)
		count := 0
		for _, v := range g {
			if !analytics.IsFinite(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			count++
		}
		if count >= 2 {
			ranges[i] = hi - lo
		}
	}
	return ranges
}

// MovingRanges returns |v[i] - v[i-1]|; index 0 repeats index 1.
func MovingRanges(values []float64) ([]float64, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: moving range needs 2 samples, got %d",
			analytics.ErrInsufficientData, len(values))
	}

	ranges := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		ranges[i] = math.Abs(values[i] - values[i-1])
	}
	ranges[0] = ranges[1]
	return ranges, nil
}
