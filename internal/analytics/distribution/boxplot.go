package distribution

import (
	"fmt"
	"math"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
)

// WhiskerFactor is the IQR multiple used for the whisker fences
const WhiskerFactor = 1.5

// BoxplotStats summarizes a series for a box-and-whisker plot.
type BoxplotStats struct {
	Min          float64   `json:"min"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Max          float64   `json:"max"`
	IQR          float64   `json:"iqr"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []float64 `json:"outliers"`
}

// Boxplot computes boxplot statistics.
//
// Quartiles use nearest-rank indexing, sorted[floor(n*0.25)] and sorted[floor(n*0.75)].
// Whiskers are the Tukey fences clamped to the observed range; outliers lie
// strictly outside the whiskers, in ascending order.
func Boxplot(values []float64) (*BoxplotStats, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: boxplot of empty series", analytics.ErrInsufficientData)
	}

	sorted := sortedCopy(values)
	n := len(sorted)

	q1 := sorted[int(math.Floor(float64(n)*0.25))]
	q3 := sorted[int(math.Floor(float64(n)*0.75))]
	iqr := q3 - q1

	bs := &BoxplotStats{
		Min:          sorted[0],
		Q1:           q1,
		Median:       medianOfSorted(sorted),
		Q3:           q3,
		Max:          sorted[n-1],
		IQR:          iqr,
		LowerWhisker: math.Max(sorted[0], q1-WhiskerFactor*iqr),
		UpperWhisker: math.Min(sorted[n-1], q3+WhiskerFactor*iqr),
		Outliers:     []float64{},
	}

	for _, v := range sorted {
		if v < bs.LowerWhisker || v > bs.UpperWhisker {
			bs.Outliers = append(bs.Outliers, v)
		}
	}
	return bs, nil
}
