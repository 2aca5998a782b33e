package anomaly

import (
	"fmt"
	"math"
)

// outlierHeuristic flags samples whose z-score exceeds OutlierSigma
type outlierHeuristic struct{}

func (outlierHeuristic) kind() Kind {
	return KindStatisticalOutlier
}

func (outlierHeuristic) evaluate(in input, th Thresholds) *Finding {
	if in.stdDev == 0 {
		// All values equal the mean; nothing can deviate
		return nil
	}

	limit := th.OutlierSigma * in.stdDev
	var outliers []OutlierPoint

	for _, s := range in.samples {
		if math.Abs(s.Value-in.mean) > limit {
			z := CalculateZScore(s.Value, in.mean, in.stdDev)
			outliers = append(outliers, OutlierPoint{
				Timestamp: s.Timestamp,
				Value:     s.Value,
				ZScore:    z,
				Deviation: FormatSigma(z),
			})
		}
	}

	if len(outliers) == 0 {
		return nil
	}

	severity := SeverityMedium
	if float64(len(outliers))/float64(len(in.samples)) > th.OutlierHighRatio {
		severity = SeverityHigh
	}

	listed := outliers
	if len(listed) > th.MaxOutlierDetails {
		listed = listed[:th.MaxOutlierDetails]
	}

	return &Finding{
		Kind:     KindStatisticalOutlier,
		Message:  fmt.Sprintf("Found %d statistical outliers (more than %.1fσ from the mean)", len(outliers), th.OutlierSigma),
		Severity: severity,
		Count:    intPtr(len(outliers)),
		Detail: OutlierDetail{
			Mean:      in.mean,
			StdDev:    in.stdDev,
			Threshold: th.OutlierSigma,
			Outliers:  listed,
		},
	}
}

// CalculateZScore calculates Z-Score for a single value given mean and stdDev
func CalculateZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	diff := value - mean
	if math.IsInf(diff, 0) {
		return value/stdDev - mean/stdDev
	}
	return diff / stdDev
}
