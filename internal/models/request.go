package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soltixdb/insight/internal/analytics"
	"github.com/soltixdb/insight/internal/analytics/series"
	"github.com/soltixdb/insight/internal/analytics/stats"
)

// Validation errors shared by the request types
var (
	ErrNoMetrics      = errors.New("intent must name at least one metric")
	ErrMissingMetric  = errors.New("metric name is required")
	ErrMissingResults = errors.New("results are required")
	ErrNoRequests     = errors.New("requests are required")
	ErrTooManyJobs    = errors.New("too many requests in batch")
)

// MaxBatchRequests caps the analyses accepted in one batch submission
const MaxBatchRequests = 100

// PlanRequest asks for query parameters and rendered queries for an intent
type PlanRequest struct {
	Intent analytics.Intent `json:"intent"`
}

// Validate checks the request after normalizing the intent in place
func (r *PlanRequest) Validate() error {
	r.Intent = r.Intent.Normalize()
	if len(r.Intent.MetricNames) == 0 {
		return ErrNoMetrics
	}
	return nil
}

// MetricData is the raw result set returned by the upstream store for one
// metric, plus any aggregates the store computed alongside it
type MetricData struct {
	Metric     string            `json:"metric"`
	Data       series.ResultSet  `json:"data"`
	Aggregates *stats.Aggregates `json:"aggregates,omitempty"`
}

// Validate trims the metric name in place and checks that it is set
func (m *MetricData) Validate() error {
	m.Metric = strings.TrimSpace(m.Metric)
	if m.Metric == "" {
		return ErrMissingMetric
	}
	return nil
}

// AnalyzeRequest carries an intent and one result set per metric
type AnalyzeRequest struct {
	Intent  analytics.Intent `json:"intent"`
	Results []MetricData     `json:"results"`
}

// Validate normalizes the intent and checks each result set
func (r *AnalyzeRequest) Validate() error {
	r.Intent = r.Intent.Normalize()
	if len(r.Intent.MetricNames) == 0 {
		return ErrNoMetrics
	}
	if len(r.Results) == 0 {
		return ErrMissingResults
	}
	for i := range r.Results {
		if err := r.Results[i].Validate(); err != nil {
			return fmt.Errorf("results[%d]: %w", i, err)
		}
	}
	return nil
}

// ResultFor returns the result set for a metric, or nil
func (r *AnalyzeRequest) ResultFor(metric string) *MetricData {
	for i := range r.Results {
		if strings.TrimSpace(r.Results[i].Metric) == metric {
			return &r.Results[i]
		}
	}
	return nil
}

// DetectRequest runs anomaly detection over a single result set
type DetectRequest struct {
	Metric string           `json:"metric"`
	Data   series.ResultSet `json:"data"`
}

// Validate trims the metric name in place and checks that it is set
func (r *DetectRequest) Validate() error {
	r.Metric = strings.TrimSpace(r.Metric)
	if r.Metric == "" {
		return ErrMissingMetric
	}
	return nil
}

// StatisticsRequest summarizes a single result set
type StatisticsRequest = MetricData

// CompareRequest compares two metrics
type CompareRequest struct {
	MetricA MetricData `json:"metric_a"`
	MetricB MetricData `json:"metric_b"`
}

// Validate checks both sides
func (r *CompareRequest) Validate() error {
	if err := r.MetricA.Validate(); err != nil {
		return fmt.Errorf("metric_a: %w", err)
	}
	if err := r.MetricB.Validate(); err != nil {
		return fmt.Errorf("metric_b: %w", err)
	}
	return nil
}

// BatchAnalyzeRequest queues several analyses at once
type BatchAnalyzeRequest struct {
	Requests []AnalyzeRequest `json:"requests"`
}

// Validate checks the batch size and every request in it
func (r *BatchAnalyzeRequest) Validate() error {
	if len(r.Requests) == 0 {
		return ErrNoRequests
	}
	if len(r.Requests) > MaxBatchRequests {
		return fmt.Errorf("%w: %d > %d", ErrTooManyJobs, len(r.Requests), MaxBatchRequests)
	}
	for i := range r.Requests {
		if err := r.Requests[i].Validate(); err != nil {
			return fmt.Errorf("requests[%d]: %w", i, err)
		}
	}
	return nil
}
