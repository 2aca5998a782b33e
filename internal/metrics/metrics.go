// Package metrics exposes Prometheus collectors for the analysis service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soltixdb/insight/internal/analytics/anomaly"
)

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds every collector on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	FindingsTotal    *prometheus.CounterVec
	SamplesExtracted prometheus.Counter
	JobsTotal        *prometheus.CounterVec
}

// New creates the collectors plus the Go runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_analyses_total",
				Help: "Total number of analysis operations",
			},
			[]string{"operation", "status"},
		),

		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insight_analysis_duration_seconds",
				Help:    "Analysis operation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .5, 1},
			},
			[]string{"operation"},
		),

		FindingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_findings_total",
				Help: "Total number of anomaly findings emitted",
			},
			[]string{"kind", "severity"},
		),

		SamplesExtracted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "insight_samples_extracted_total",
				Help: "Total number of valid samples extracted from result sets",
			},
		),

		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_jobs_total",
				Help: "Total number of queued analysis jobs processed",
			},
			[]string{"status"},
		),
	}
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAnalysis records one operation outcome and its latency
func (m *Metrics) ObserveAnalysis(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.AnalysesTotal.WithLabelValues(operation, status).Inc()
	m.AnalysisDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// RecordReport counts the findings of an anomaly report
func (m *Metrics) RecordReport(report *anomaly.Report) {
	if m == nil || report == nil {
		return
	}
	for _, f := range report.Findings {
		m.FindingsTotal.WithLabelValues(string(f.Kind), string(f.Severity)).Inc()
	}
}

// AddSamples counts extracted samples
func (m *Metrics) AddSamples(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SamplesExtracted.Add(float64(n))
}

// RecordJob counts one processed job by status
func (m *Metrics) RecordJob(status string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(status).Inc()
}
