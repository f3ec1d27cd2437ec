package distribution

import (
	"github.com/dicdwatch/dicdwatch/internal/analytics"
)

// Options tunes the summary
type Options struct {
	// HistogramBins is the bin count; <= 0 selects Sturges' rule
	HistogramBins int

	// CurvePoints is the normal overlay resolution, at least MinCurvePoints
	CurvePoints int
}

// DefaultOptions returns default summary options
func DefaultOptions() Options {
	return Options{
		HistogramBins: 0,
		CurvePoints:   MinCurvePoints,
	}
}

// Summary is the full distribution analysis of one series. A nil field could not
// be computed; the reason is recorded in Unavailable under the field's JSON name.
type Summary struct {
	Count       int               `json:"count"`
	Mean        *float64          `json:"mean"`
	StdDev      *float64          `json:"std_dev"`
	Median      *float64          `json:"median"`
	Skewness    *float64          `json:"skewness"`
	Kurtosis    *float64          `json:"kurtosis"`
	Histogram   *Histogram        `json:"histogram"`
	NormalCurve []CurvePoint      `json:"normal_curve"`
	Boxplot     *BoxplotStats     `json:"boxplot"`
	QQ          []QQPoint         `json:"qq"`
	InSpec      *InSpecResult     `json:"in_spec"`
	Unavailable map[string]string `json:"unavailable,omitempty"`
}

// Summarize runs every distribution statistic over values. It never fails as a
// whole. bounds may be nil, in which case the in-spec ratio is omitted.
func Summarize(values []float64, bounds *analytics.SpecBounds, opts Options) *Summary {
	s := &Summary{
		Count:       len(values),
		Unavailable: make(map[string]string),
	}

	s.Mean = s.scalar("mean", Mean, values)
	s.StdDev = s.scalar("std_dev", StdDev, values)
	s.Median = s.scalar("median", Median, values)
	s.Skewness = s.scalar("skewness", Skewness, values)
	s.Kurtosis = s.scalar("kurtosis", Kurtosis, values)

	if h, err := NewHistogram(values, opts.HistogramBins); err != nil {
		s.Unavailable["histogram"] = err.Error()
	} else {
		s.Histogram = h
	}

	switch {
	case s.Mean == nil || s.StdDev == nil || s.Histogram == nil:
		s.Unavailable["normal_curve"] = s.firstReason("std_dev", "mean", "histogram")
	default:
		curve, err := NormalCurve(*s.Mean, *s.StdDev, s.Histogram.MaxCount, opts.CurvePoints)
		if err != nil {
			s.Unavailable["normal_curve"] = err.Error()
		} else {
			s.NormalCurve = curve
		}
	}

	if b, err := Boxplot(values); err != nil {
		s.Unavailable["boxplot"] = err.Error()
	} else {
		s.Boxplot = b
	}

	if qq, err := QQPoints(values); err != nil {
		s.Unavailable["qq"] = err.Error()
	} else {
		s.QQ = qq
	}

	if bounds == nil {
		s.Unavailable["in_spec"] = "spec bounds not provided"
	} else if r, err := InSpecRatio(values, *bounds); err != nil {
		s.Unavailable["in_spec"] = err.Error()
	} else {
		s.InSpec = r
	}

	if len(s.Unavailable) == 0 {
		s.Unavailable = nil
	}
	return s
}

func (s *Summary) scalar(field string, fn func([]float64) (float64, error), values []float64) *float64 {
	v, err := fn(values)
	if err != nil {
		s.Unavailable[field] = err.Error()
		return nil
	}
	return &v
}

func (s *Summary) firstReason(fields ...string) string {
	for _, f := range fields {
		if reason, ok := s.Unavailable[f]; ok {
			return reason
		}
	}
	return "prerequisite statistic unavailable"
}
