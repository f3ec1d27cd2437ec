package distribution

import (
	"fmt"
	"math"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinCurvePoints is the smallest number of points a normal overlay is sampled at
const MinCurvePoints = 100

// Bin is one equal-width histogram bucket, [Lower, Upper) except the last bin
// which also includes Upper.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is a frequency histogram over the observed range
type Histogram struct {
	Bins     []Bin `json:"bins"`
	MaxCount int   `json:"max_count"`
}

// SturgesBins returns ceil(log2 n) + 1, the default bin count for n samples
func SturgesBins(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

// NewHistogram buckets values into equal-width bins spanning [min, max].
// bins <= 0 selects Sturges' rule. A constant series collapses into one bin.
func NewHistogram(values []float64, bins int) (*Histogram, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: histogram of empty series", analytics.ErrInsufficientData)
	}
	if bins <= 0 {
		bins = SturgesBins(len(values))
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if hi == lo {
		return &Histogram{
			Bins:     []Bin{{Lower: lo, Upper: hi, Count: len(values)}},
			MaxCount: len(values),
		}, nil
	}

	width := (hi - lo) / float64(bins)
	h := &Histogram{Bins: make([]Bin, bins)}
	for i := range h.Bins {
		h.Bins[i].Lower = lo + float64(i)*width
		h.Bins[i].Upper = lo + float64(i+1)*width
	}
	h.Bins[bins-1].Upper = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		h.Bins[idx].Count++
	}

	for _, b := range h.Bins {
		if b.Count > h.MaxCount {
			h.MaxCount = b.Count
		}
	}
	return h, nil
}

// CurvePoint is one sample of the scaled normal overlay
type CurvePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NormalCurve samples the normal PDF over mean ± 4·stdDev and rescales it so its
// peak equals maxHistCount, making it comparable to a frequency histogram.
func NormalCurve(mean, stdDev float64, maxHistCount, points int) ([]CurvePoint, error) {
	if !analytics.IsFinite(mean) || !analytics.IsFinite(stdDev) {
		return nil, fmt.Errorf("%w: mean and standard deviation must be finite", analytics.ErrDomain)
	}
	if stdDev <= 0 {
		return nil, fmt.Errorf("%w: normal curve needs positive standard deviation, got %v",
			analytics.ErrDegenerateDistribution, stdDev)
	}
	if points < MinCurvePoints {
		points = MinCurvePoints
	}

	dist := distuv.Normal{Mu: mean, Sigma: stdDev}
	start := mean - 4*stdDev
	step := 8 * stdDev / float64(points-1)

	curve := make([]CurvePoint, points)
	maxPdf := 0.0
	for i := range curve {
		x := start + float64(i)*step
		y := dist.Prob(x)
		curve[i] = CurvePoint{X: x, Y: y}
		if y > maxPdf {
			maxPdf = y
		}
	}

	scale := float64(maxHistCount) / maxPdf
	for i := range curve {
		curve[i].Y *= scale
	}
	return curve, nil
}
