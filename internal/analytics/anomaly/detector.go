package anomaly

import (
	"fmt"
	"math"

	"github.com/soltixdb/insight/internal/analytics"
	"github.com/soltixdb/insight/internal/analytics/stats"
)

// input is the validated data and baseline every heuristic sees
type input struct {
	samples analytics.SampleSequence
	mean    float64
	stdDev  float64
}

// heuristic is one independent check over the baseline
type heuristic interface {
	kind() Kind
	evaluate(in input, th Thresholds) *Finding
}

// Detector runs the outlier, spike and flatline heuristics. It holds no
// per-call state and is safe for concurrent use.
type Detector struct {
	thresholds Thresholds
	heuristics []heuristic
}

// NewDetector creates a detector with the given thresholds
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{
		thresholds: thresholds,
		heuristics: []heuristic{
			outlierHeuristic{},
			spikeHeuristic{},
			flatlineHeuristic{},
		},
	}
}

// Thresholds returns the detector tuning
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// Detect never fails. Unusable input comes back as a report whose only
// finding is insufficient_data or no_valid_data; callers check
// Findings[0].Kind (or Degraded) rather than an error.
func (d *Detector) Detect(samples analytics.SampleSequence, metricName string) *Report {
	th := d.thresholds

	if len(samples) < th.MinSamples {
		return &Report{
			Metric:      metricName,
			SampleCount: len(samples),
			Findings: []Finding{{
				Kind:     KindInsufficientData,
				Message:  fmt.Sprintf("Insufficient data for anomaly detection: %d samples, need at least %d", len(samples), th.MinSamples),
				Severity: SeverityInfo,
				Detail: DataDetail{
					SampleCount: len(samples),
					ValidCount:  len(samples.Finite()),
					Required:    th.MinSamples,
				},
			}},
			OverallSeverity: OverallNormal,
			Confidence:      0,
			Recommendations: []string{
				fmt.Sprintf("Collect at least %d samples%s before running anomaly detection", th.MinSamples, forMetric(metricName)),
			},
		}
	}

	valid := samples.Finite()
	if len(valid) == 0 {
		findings := []Finding{{
			Kind:     KindNoValidData,
			Message:  "No valid numeric data found",
			Severity: SeverityMedium,
			Detail: DataDetail{
				SampleCount: len(samples),
				ValidCount:  0,
				Required:    th.MinSamples,
			},
		}}
		return &Report{
			Metric:          metricName,
			SampleCount:     len(samples),
			Findings:        findings,
			OverallSeverity: rollup(findings),
			Confidence:      0,
			Recommendations: []string{
				fmt.Sprintf("Check that the query%s returns numeric values", forMetric(metricName)),
			},
		}
	}

	// Baseline is recomputed here so the detector does not depend on how
	// the caller summarized the data
	mean, stdDev := stats.MeanStdDev(valid.Values())
	in := input{samples: valid, mean: mean, stdDev: stdDev}

	findings := make([]Finding, 0, len(d.heuristics))
	for _, h := range d.heuristics {
		if f := h.evaluate(in, th); f != nil {
			findings = append(findings, *f)
		}
	}

	return &Report{
		Metric:          metricName,
		SampleCount:     len(samples),
		Baseline:        stats.Summarize(valid),
		Findings:        findings,
		OverallSeverity: rollup(findings),
		Confidence:      confidence(len(valid), th),
		Recommendations: recommendations(findings, metricName),
	}
}

// rollup: high if any finding is high, else medium if any is medium, else
// low if any non-informational finding exists, else normal.
func rollup(findings []Finding) OverallSeverity {
	var hasMedium, hasOther bool
	for _, f := range findings {
		switch f.Severity {
		case SeverityHigh:
			return OverallHigh
		case SeverityMedium:
			hasMedium = true
		case SeverityInfo:
		default:
			hasOther = true
		}
	}
	switch {
	case hasMedium:
		return OverallMedium
	case hasOther:
		return OverallLow
	default:
		return OverallNormal
	}
}

// confidence depends on sample volume only
func confidence(validCount int, th Thresholds) float64 {
	c := float64(validCount) / th.ConfidenceDivisor
	return math.Min(math.Max(c, th.MinConfidence), th.MaxConfidence)
}

func recommendations(findings []Finding, metricName string) []string {
	if len(findings) == 0 {
		return []string{
			fmt.Sprintf("No anomalies detected%s; behavior looks normal for the analyzed window", forMetric(metricName)),
		}
	}

	recs := []string{
		fmt.Sprintf("Review the detected anomalies and consider configuring alerts%s", forMetric(metricName)),
	}
	for _, f := range findings {
		if f.Kind == KindSpike {
			recs = append(recs, "Investigate the cause of the sudden spikes; check for traffic bursts, deploys or batch jobs at those times")
			break
		}
	}
	return recs
}

func forMetric(name string) string {
	if name == "" {
		return ""
	}
	return " for " + name
}
