// Package anomaly classifies a sample sequence as normal, noisy, spiking or
// flatlined using fixed-form heuristics over a mean/stddev baseline.
package anomaly

import (
	"fmt"

	"github.com/soltixdb/insight/internal/analytics/stats"
)

// Kind identifies what a finding reports
type Kind string

const (
	KindStatisticalOutlier Kind = "statistical_outlier"
	KindSpike              Kind = "spike_detection"
	KindFlatline           Kind = "flatline_detection"
	KindInsufficientData   Kind = "insufficient_data"
	KindNoValidData        Kind = "no_valid_data"
)

// IsDegraded reports whether the kind signals unusable input rather than a
// detection
func (k Kind) IsDegraded() bool {
	return k == KindInsufficientData || k == KindNoValidData
}

// Severity ranks a single finding
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// OverallSeverity ranks a whole report
type OverallSeverity string

const (
	OverallNormal OverallSeverity = "normal"
	OverallLow    OverallSeverity = "low"
	OverallMedium OverallSeverity = "medium"
	OverallHigh   OverallSeverity = "high"
)

// Finding is one heuristic's verdict. Detail holds a kind-specific payload.
type Finding struct {
	Kind     Kind        `json:"kind"`
	Message  string      `json:"message"`
	Severity Severity    `json:"severity"`
	Detail   interface{} `json:"detail,omitempty"`
	Count    *int        `json:"count,omitempty"`
}

// Report is built fresh for every Detect call and never mutated afterwards
type Report struct {
	Metric          string          `json:"metric,omitempty"`
	SampleCount     int             `json:"sample_count"`
	Baseline        stats.Summary   `json:"baseline"`
	Findings        []Finding       `json:"findings"`
	OverallSeverity OverallSeverity `json:"overall_severity"`
	Confidence      float64         `json:"confidence"`
	Recommendations []string        `json:"recommendations"`
}

// HasFinding reports whether any finding of the given kind exists
func (r *Report) HasFinding(kind Kind) bool {
	for _, f := range r.Findings {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// Degraded reports whether the report carries an insufficient_data or
// no_valid_data verdict instead of an analysis
func (r *Report) Degraded() bool {
	return len(r.Findings) > 0 && r.Findings[0].Kind.IsDegraded()
}

// OutlierPoint is one sample flagged by the outlier heuristic
type OutlierPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
	ZScore    float64 `json:"z_score"`
	Deviation string  `json:"deviation"` // z-score with a σ suffix, e.g. "3.00σ"
}

// OutlierDetail is the payload of a statistical_outlier finding
type OutlierDetail struct {
	Mean      float64        `json:"mean"`
	StdDev    float64        `json:"stddev"`
	Threshold float64        `json:"threshold_sigma"`
	Outliers  []OutlierPoint `json:"outliers"`
}

// SpikePoint is one sample-to-sample jump flagged by the spike heuristic
type SpikePoint struct {
	Timestamp     int64   `json:"timestamp"`
	Value         float64 `json:"value"`
	PreviousValue float64 `json:"previous_value"`
	Ratio         float64 `json:"ratio"`
}

// SpikeDetail is the payload of a spike_detection finding
type SpikeDetail struct {
	RatioThreshold float64      `json:"ratio_threshold"`
	Spikes         []SpikePoint `json:"spikes"`
}

// FlatlineDetail is the payload of a flatline_detection finding
type FlatlineDetail struct {
	WindowSize  int     `json:"window_size"`
	LocalMean   float64 `json:"local_mean"`
	LocalStdDev float64 `json:"local_stddev"`
	GlobalMean  float64 `json:"global_mean"`
}

// DataDetail is the payload of insufficient_data and no_valid_data findings
type DataDetail struct {
	SampleCount int `json:"sample_count"`
	ValidCount  int `json:"valid_count"`
	Required    int `json:"required"`
}

// FormatSigma renders a z-score with the σ suffix used in finding details
func FormatSigma(z float64) string {
	return fmt.Sprintf("%.2fσ", z)
}

func intPtr(v int) *int {
	return &v
}
