package distribution

import (
	"fmt"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: mean of empty series", analytics.ErrInsufficientData)
	}
	return stat.Mean(values, nil), nil
}

// StdDev calculates the sample standard deviation (n-1 denominator)
func StdDev(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, fmt.Errorf("%w: standard deviation needs 2 samples, got %d",
			analytics.ErrInsufficientData, len(values))
	}
	return stat.StdDev(values, nil), nil
}

// Median returns the middle value, averaging the two middle values for even n.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: median of empty series", analytics.ErrInsufficientData)
	}
	return medianOfSorted(sortedCopy(values)), nil
}

func medianOfSorted(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Skewness calculates the sample skewness (standardized third moment).
func Skewness(values []float64) (float64, error) {
	if len(values) < 3 {
		return 0, fmt.Errorf("%w: skewness needs 3 samples, got %d",
			analytics.ErrInsufficientData, len(values))
	}
	if err := requireSpread(values); err != nil {
		return 0, err
	}
	return stat.Skew(values, nil), nil
}

// Kurtosis calculates the sample excess kurtosis (standardized fourth moment minus 3).
func Kurtosis(values []float64) (float64, error) {
	if len(values) < 4 {
		return 0, fmt.Errorf("%w: kurtosis needs 4 samples, got %d",
			analytics.ErrInsufficientData, len(values))
	}
	if err := requireSpread(values); err != nil {
		return 0, err
	}
	return stat.ExKurtosis(values, nil), nil
}

func requireSpread(values []float64) error {
	first := values[0]
	for _, v := range values[1:] {
		if v != first {
			return nil
		}
	}
	return fmt.Errorf("%w: all %d samples equal %v",
		analytics.ErrDegenerateDistribution, len(values), first)
}
