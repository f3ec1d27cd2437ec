// Package distribution computes distribution-shape statistics for a measurement
// series: moments, histogram with a scaled normal overlay, boxplot statistics,
// Q-Q pairs and the in-spec ratio.
package distribution

import (
	"fmt"
	"math"
	"sort"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
)

// Abramowitz & Stegun 26.2.23 coefficients
const (
	asC0 = 2.515517
	asC1 = 0.802853
	asC2 = 0.010328
	asD1 = 1.432788
	asD2 = 0.189269
	asD3 = 0.001308
)

// NormalQuantile approximates the inverse CDF of the standard normal distribution.
// Absolute error is below 4.5e-4. The result is exactly antisymmetric about 0.5.
func NormalQuantile(p float64) (float64, error) {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return math.NaN(), fmt.Errorf("%w: normal quantile requires 0 < p < 1, got %v", analytics.ErrDomain, p)
	}

	if p <= 0.5 {
		return -upperTailQuantile(p), nil
	}
	return upperTailQuantile(1 - p), nil
}

// upperTailQuantile returns x such that Q(x) = q for 0 < q <= 0.5
func upperTailQuantile(q float64) float64 {
	t := math.Sqrt(-2 * math.Log(q))
	num := asC0 + asC1*t + asC2*t*t
	den := 1 + asD1*t + asD2*t*t + asD3*t*t*t
	return t - num/den
}

// QQPoint pairs an observed value with its theoretical normal quantile.
type QQPoint struct {
	Theoretical float64 `json:"theoretical"`
	Sample      float64 `json:"sample"`
}

// QQPoints builds normal Q-Q plot pairs. The i-th sorted value (0-indexed) is paired
// with mean + z((i+0.5)/n) * stdDev.
func QQPoints(values []float64) ([]QQPoint, error) {
	mean, err := Mean(values)
	if err != nil {
		return nil, err
	}
	stdDev, err := StdDev(values)
	if err != nil {
		return nil, err
	}
	if stdDev == 0 {
		return nil, fmt.Errorf("%w: q-q plot of constant series", analytics.ErrDegenerateDistribution)
	}

	sorted := sortedCopy(values)
	n := float64(len(sorted))
	points := make([]QQPoint, len(sorted))
	for i, v := range sorted {
		z, err := NormalQuantile((float64(i) + 0.5) / n)
		if err != nil {
			return nil, err
		}
		points[i] = QQPoint{
			Theoretical: mean + z*stdDev,
			Sample:      v,
		}
	}
	return points, nil
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
