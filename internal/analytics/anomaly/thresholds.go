package anomaly

import "fmt"

// Thresholds holds every tunable of the detector in one place
type Thresholds struct {
	// MinSamples below this count the report is insufficient_data
	MinSamples int `mapstructure:"min_samples" json:"min_samples"`

	// OutlierSigma flags |value-mean| > OutlierSigma*stddev
	OutlierSigma float64 `mapstructure:"outlier_sigma" json:"outlier_sigma"`
	// OutlierHighRatio escalates outliers to high severity above this share of samples
	OutlierHighRatio float64 `mapstructure:"outlier_high_ratio" json:"outlier_high_ratio"`
	// MaxOutlierDetails caps the outliers listed in the finding detail
	MaxOutlierDetails int `mapstructure:"max_outlier_details" json:"max_outlier_details"`

	// SpikeRatio flags current > previous*SpikeRatio when previous > 0
	SpikeRatio float64 `mapstructure:"spike_ratio" json:"spike_ratio"`
	// MaxSpikeDetails caps the spikes listed in the finding detail
	MaxSpikeDetails int `mapstructure:"max_spike_details" json:"max_spike_details"`

	// FlatlineWindow is the number of most recent samples inspected
	FlatlineWindow int `mapstructure:"flatline_window" json:"flatline_window"`
	// FlatlineMinWindow the window must hold more than this many samples
	FlatlineMinWindow int `mapstructure:"flatline_min_window" json:"flatline_min_window"`
	// FlatlineRatio flags localStdDev < globalMean*FlatlineRatio
	FlatlineRatio float64 `mapstructure:"flatline_ratio" json:"flatline_ratio"`

	// Confidence is clamp(validCount/ConfidenceDivisor, MinConfidence, MaxConfidence)
	ConfidenceDivisor float64 `mapstructure:"confidence_divisor" json:"confidence_divisor"`
	MinConfidence     float64 `mapstructure:"min_confidence" json:"min_confidence"`
	MaxConfidence     float64 `mapstructure:"max_confidence" json:"max_confidence"`
}

// DefaultThresholds returns the stock detector tuning
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSamples:        10,
		OutlierSigma:      2.5,
		OutlierHighRatio:  0.10,
		MaxOutlierDetails: 5,
		SpikeRatio:        3,
		MaxSpikeDetails:   3,
		FlatlineWindow:    20,
		FlatlineMinWindow: 10,
		FlatlineRatio:     0.01,
		ConfidenceDivisor: 100,
		MinConfidence:     0.3,
		MaxConfidence:     0.9,
	}
}

// Validate validates detector thresholds
func (t Thresholds) Validate() error {
	if t.MinSamples < 1 {
		return fmt.Errorf("min_samples must be at least 1, got %d", t.MinSamples)
	}
	if t.OutlierSigma <= 0 {
		return fmt.Errorf("outlier_sigma must be positive, got %v", t.OutlierSigma)
	}
	if t.OutlierHighRatio < 0 || t.OutlierHighRatio > 1 {
		return fmt.Errorf("outlier_high_ratio must be within [0,1], got %v", t.OutlierHighRatio)
	}
	if t.SpikeRatio <= 1 {
		return fmt.Errorf("spike_ratio must be greater than 1, got %v", t.SpikeRatio)
	}
	if t.MaxOutlierDetails < 0 || t.MaxSpikeDetails < 0 {
		return fmt.Errorf("detail caps must not be negative")
	}
	if t.FlatlineWindow < 1 {
		return fmt.Errorf("flatline_window must be at least 1, got %d", t.FlatlineWindow)
	}
	if t.FlatlineMinWindow < 0 || t.FlatlineMinWindow >= t.FlatlineWindow {
		return fmt.Errorf("flatline_min_window must be within [0, flatline_window), got %d", t.FlatlineMinWindow)
	}
	if t.FlatlineRatio <= 0 {
		return fmt.Errorf("flatline_ratio must be positive, got %v", t.FlatlineRatio)
	}
	if t.ConfidenceDivisor <= 0 {
		return fmt.Errorf("confidence_divisor must be positive, got %v", t.ConfidenceDivisor)
	}
	if t.MinConfidence < 0 || t.MaxConfidence > 1 || t.MinConfidence > t.MaxConfidence {
		return fmt.Errorf("confidence bounds must satisfy 0 <= min <= max <= 1, got [%v, %v]",
			t.MinConfidence, t.MaxConfidence)
	}
	return nil
}
