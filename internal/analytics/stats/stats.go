// Package stats computes descriptive statistics over sample sequences.
package stats

import (
	"math"
	"sort"

	"github.com/soltixdb/insight/internal/analytics"
)

// Summary holds descriptive statistics for one sample sequence. Every field
// is zero when Count is zero; callers must treat Count == 0 as insufficient
// data regardless of the other fields.
type Summary struct {
	Count                  int     `json:"count"`
	Min                    float64 `json:"min"`
	Max                    float64 `json:"max"`
	Mean                   float64 `json:"mean"`
	StdDev                 float64 `json:"stddev"`
	Median                 float64 `json:"median"`
	Percentile95           float64 `json:"percentile95"`
	Range                  float64 `json:"range"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
	Skewness               float64 `json:"skewness"`
}

// Empty reports whether the summary was computed over no samples
func (s Summary) Empty() bool {
	return s.Count == 0
}

// Aggregates carries pre-computed values returned by the upstream store
// alongside the samples. Nil fields are computed locally.
type Aggregates struct {
	Median       *float64 `json:"median,omitempty"`
	Percentile95 *float64 `json:"percentile95,omitempty"`
}

// Summarize computes every statistic locally. Pure; never fails.
func Summarize(samples analytics.SampleSequence) Summary {
	return SummarizeWithAggregates(samples, Aggregates{})
}

// SummarizeWithAggregates is Summarize but takes median and 95th percentile
// verbatim from agg when present. Skewness follows whichever median is used.
func SummarizeWithAggregates(samples analytics.SampleSequence, agg Aggregates) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	values := samples.Values()
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, stdDev := MeanStdDev(values)

	s := Summary{
		Count:  len(values),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		StdDev: stdDev,
	}
	s.Range = s.Max - s.Min
	if math.IsInf(s.Range, 1) {
		s.Range = math.MaxFloat64
	}

	if agg.Median != nil {
		s.Median = *agg.Median
	} else {
		s.Median = medianSorted(sorted)
	}

	if agg.Percentile95 != nil {
		s.Percentile95 = *agg.Percentile95
	} else {
		s.Percentile95 = percentileSorted(sorted, 95)
	}

	if mean > 0 {
		s.CoefficientOfVariation = stdDev / mean
	}

	// Pearson's second skewness coefficient
	if stdDev != 0 {
		s.Skewness = 3 * (mean - s.Median) / stdDev
	}

	return s
}

// MeanStdDev returns the mean and population standard deviation (divide by
// n). Values are scaled by a power of two near the largest magnitude before
// summing, so any set of finite inputs yields finite results and smaller
// inputs round exactly as an unscaled sum would. The mean is kept within
// [min, max] and a constant set has a standard deviation of exactly zero.
func MeanStdDev(values []float64) (mean, stdDev float64) {
	if len(values) == 0 {
		return 0, 0
	}

	lo, hi := values[0], values[0]
	var maxAbs float64
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if lo == hi {
		return lo, 0
	}
	_, exp := math.Frexp(maxAbs)
	scale := math.Ldexp(1, exp-1)

	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v / scale
	}
	scaledMean := sum / n

	var varianceSum float64
	for _, v := range values {
		diff := v/scale - scaledMean
		varianceSum += diff * diff
	}

	mean = math.Min(math.Max(scaledMean*scale, lo), hi)
	stdDev = math.Sqrt(varianceSum/n) * scale
	return mean, stdDev
}

// Median sorts a copy and takes the middle element, averaging the two middle
// elements for even counts.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return medianSorted(sorted)
}

// PercentileNearestRank returns the p-th percentile (0 < p <= 100) using the
// nearest-rank method: the value at rank ceil(p/100 * n).
func PercentileNearestRank(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	// Halve first so two large values cannot overflow
	return sorted[n/2-1]/2 + sorted[n/2]/2
}

func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}
