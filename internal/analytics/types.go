// Package analytics provides common types shared by the analysis engine:
// intents, samples and sample sequences.
package analytics

import (
	"math"
	"sort"
	"strings"
)

// Operation is the aggregation a user asked for
type Operation string

const (
	OperationMean  Operation = "mean"
	OperationSum   Operation = "sum"
	OperationMax   Operation = "max"
	OperationMin   Operation = "min"
	OperationCount Operation = "count"
	OperationRaw   Operation = "raw" // No aggregation, wildcard projection
)

// Valid reports whether o is one of the declared operations
func (o Operation) Valid() bool {
	switch o {
	case OperationMean, OperationSum, OperationMax, OperationMin, OperationCount, OperationRaw:
		return true
	}
	return false
}

// Purpose selects the query policy
type Purpose string

const (
	PurposeStandard         Purpose = "standard"
	PurposeAnomalyDetection Purpose = "anomaly_detection"
)

// Well-known time range labels. Any other label is treated as custom.
const (
	TimeRange1h  = "1h"
	TimeRange24h = "24h"
	TimeRange7d  = "7d"
	TimeRange30d = "30d"
)

// Intent describes what a user wants analyzed. It is produced upstream and
// treated as immutable by the engine.
type Intent struct {
	MetricNames []string  `json:"metric_names"`
	Operation   Operation `json:"operation"`
	TimeRange   string    `json:"time_range"`
	Purpose     Purpose   `json:"purpose"`
}

// Normalize returns a copy with trimmed, de-duplicated metric names.
// Order of first appearance is preserved.
func (i Intent) Normalize() Intent {
	seen := make(map[string]struct{}, len(i.MetricNames))
	names := make([]string, 0, len(i.MetricNames))
	for _, name := range i.MetricNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	out := i
	out.MetricNames = names
	out.TimeRange = strings.TrimSpace(i.TimeRange)
	return out
}

// IsAnomalyDetection reports whether the intent uses the anomaly query policy
func (i Intent) IsAnomalyDetection() bool {
	return i.Purpose == PurposeAnomalyDetection
}

// Sample is a single numeric observation
type Sample struct {
	Timestamp      int64    `json:"timestamp"` // epoch millis
	Value          float64  `json:"value"`
	SecondaryValue *float64 `json:"secondary_value,omitempty"` // companion aggregate, e.g. stddev
}

// SampleSequence is an ordered run of samples, oldest first
type SampleSequence []Sample

// Values extracts just the values from the sequence
func (s SampleSequence) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Len returns the number of samples
func (s SampleSequence) Len() int {
	return len(s)
}

// Finite returns the samples whose value is a finite real number
func (s SampleSequence) Finite() SampleSequence {
	out := make(SampleSequence, 0, len(s))
	for _, p := range s {
		if IsFinite(p.Value) {
			out = append(out, p)
		}
	}
	return out
}

// SortByTime orders samples by timestamp ascending. Equal timestamps keep
// their input order.
func (s SampleSequence) SortByTime() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Timestamp < s[j].Timestamp
	})
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
