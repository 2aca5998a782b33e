package services

import (
	"context"
	"errors"
	"time"

	"github.com/soltixdb/insight/internal/analytics"
	"github.com/soltixdb/insight/internal/analytics/anomaly"
	"github.com/soltixdb/insight/internal/analytics/compare"
	"github.com/soltixdb/insight/internal/analytics/query"
	"github.com/soltixdb/insight/internal/analytics/series"
	"github.com/soltixdb/insight/internal/analytics/stats"
	"github.com/soltixdb/insight/internal/logging"
	"github.com/soltixdb/insight/internal/metrics"
	"github.com/soltixdb/insight/internal/models"
)

// Operation names used for logging and metrics
const (
	OpPlan       = "plan"
	OpAnalyze    = "analyze"
	OpDetect     = "detect"
	OpStatistics = "statistics"
	OpCompare    = "compare"
)

// AnalysisService wires the engine components together. It holds no
// per-request state and is safe for concurrent use.
type AnalysisService struct {
	logger        *logging.Logger
	parameterizer *query.Parameterizer
	detector      *anomaly.Detector
	metrics       *metrics.Metrics
}

// NewAnalysisService creates a new AnalysisService. A nil parameterizer or
// detector falls back to the defaults; nil metrics disables recording.
func NewAnalysisService(
	logger *logging.Logger,
	parameterizer *query.Parameterizer,
	detector *anomaly.Detector,
	m *metrics.Metrics,
) *AnalysisService {
	if parameterizer == nil {
		parameterizer = query.NewParameterizer(query.DefaultDialect(), query.DefaultLimits())
	}
	if detector == nil {
		detector = anomaly.NewDetector(anomaly.DefaultThresholds())
	}
	return &AnalysisService{
		logger:        logger,
		parameterizer: parameterizer,
		detector:      detector,
		metrics:       m,
	}
}

// Dialect names the query language Plan renders
func (s *AnalysisService) Dialect() string {
	return s.parameterizer.Dialect.Name
}

// MinSamples is the sample count below which detection reports insufficient data
func (s *AnalysisService) MinSamples() int {
	return s.detector.Thresholds().MinSamples
}

// MetricPlan is the query plan for one metric
type MetricPlan struct {
	Metric          string                `json:"metric"`
	Parameters      query.QueryParameters `json:"parameters"`
	Lookback        string                `json:"lookback"`
	BucketInterval  string                `json:"bucket_interval"`
	Query           string                `json:"query"`
	StatisticsQuery string                `json:"statistics_query"`
}

// PlanResult is the plan for every metric of an intent
type PlanResult struct {
	Intent  analytics.Intent `json:"intent"`
	Dialect string           `json:"dialect"`
	Metrics []MetricPlan     `json:"metrics"`
}

// MetricAnalysis is the outcome for one metric
type MetricAnalysis struct {
	Metric      string          `json:"metric"`
	SampleCount int             `json:"sample_count"`
	Summary     stats.Summary   `json:"summary"`
	Anomaly     *anomaly.Report `json:"anomaly,omitempty"`
}

// AnalysisResult is the outcome of Analyze
type AnalysisResult struct {
	Intent     analytics.Intent          `json:"intent"`
	Metrics    []MetricAnalysis          `json:"metrics"`
	Comparison *compare.ComparisonResult `json:"comparison,omitempty"`
}

// StatisticsResult is the outcome of Statistics
type StatisticsResult struct {
	Metric      string        `json:"metric"`
	SampleCount int           `json:"sample_count"`
	Summary     stats.Summary `json:"summary"`
}

// Plan derives query parameters for an intent and renders the data and
// statistics queries for each metric in the configured dialect
func (s *AnalysisService) Plan(ctx context.Context, intent analytics.Intent) (*PlanResult, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, OpPlan, startTime, cancelled(err))
	}

	req := models.PlanRequest{Intent: intent}
	if err := req.Validate(); err != nil {
		return nil, s.fail(ctx, OpPlan, startTime, NewServiceError(CodeInvalidIntent, err.Error()))
	}
	intent = req.Intent

	params := s.parameterizer.Parameterize(intent)
	plans := make([]MetricPlan, 0, len(intent.MetricNames))
	for _, metric := range intent.MetricNames {
		q, err := s.parameterizer.Render(metric, params)
		if err != nil {
			return nil, s.fail(ctx, OpPlan, startTime, renderError(err, s.parameterizer.Dialect.Name))
		}
		statsQuery, err := s.parameterizer.RenderStatistics(metric, params)
		if err != nil {
			return nil, s.fail(ctx, OpPlan, startTime, renderError(err, s.parameterizer.Dialect.Name))
		}

		plans = append(plans, MetricPlan{
			Metric:          metric,
			Parameters:      params,
			Lookback:        query.FormatDuration(params.Lookback),
			BucketInterval:  query.FormatDuration(params.BucketInterval),
			Query:           q,
			StatisticsQuery: statsQuery,
		})
	}

	s.succeed(ctx, OpPlan, startTime,
		"metrics", len(plans),
		"purpose", intent.Purpose,
		"lookback", query.FormatDuration(params.Lookback))

	return &PlanResult{
		Intent:  intent,
		Dialect: s.dialectName(),
		Metrics: plans,
	}, nil
}

// Analyze summarizes each metric of the intent, runs anomaly detection when
// the intent asks for it and compares the first two metrics when there are
// at least two
func (s *AnalysisService) Analyze(ctx context.Context, req *models.AnalyzeRequest) (*AnalysisResult, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, OpAnalyze, startTime, cancelled(err))
	}
	if req == nil {
		return nil, s.fail(ctx, OpAnalyze, startTime, NewServiceError(CodeInvalidRequest, "request is required"))
	}
	if err := req.Validate(); err != nil {
		code := CodeInvalidIntent
		if !errors.Is(err, models.ErrNoMetrics) {
			code = CodeInvalidRequest
		}
		return nil, s.fail(ctx, OpAnalyze, startTime, NewServiceError(code, err.Error()))
	}

	intent := req.Intent
	analyses := make([]MetricAnalysis, 0, len(intent.MetricNames))
	findings := 0

	for _, metric := range intent.MetricNames {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(ctx, OpAnalyze, startTime, cancelled(err))
		}

		data := req.ResultFor(metric)
		if data == nil {
			return nil, s.fail(ctx, OpAnalyze, startTime, NewServiceErrorWithDetails(
				CodeMissingResultSet,
				"no result set supplied for metric "+metric,
				map[string]interface{}{"metric": metric},
			))
		}

		samples, svcErr := s.extract(metric, data.Data)
		if svcErr != nil {
			return nil, s.fail(ctx, OpAnalyze, startTime, svcErr)
		}

		analysis := MetricAnalysis{
			Metric:      metric,
			SampleCount: samples.Len(),
			Summary:     stats.Summarize(samples),
		}
		if intent.IsAnomalyDetection() {
			analysis.Anomaly = s.detector.Detect(samples, metric)
			s.metrics.RecordReport(analysis.Anomaly)
			findings += len(analysis.Anomaly.Findings)
		}
		analyses = append(analyses, analysis)
	}

	result := &AnalysisResult{
		Intent:  intent,
		Metrics: analyses,
	}
	if len(analyses) >= 2 {
		cmp := compare.Compare(
			analyses[0].Metric, analyses[0].Summary,
			analyses[1].Metric, analyses[1].Summary,
		)
		result.Comparison = &cmp
	}

	s.succeed(ctx, OpAnalyze, startTime,
		"metrics", len(analyses),
		"purpose", intent.Purpose,
		"findings", findings)

	return result, nil
}

// Detect runs anomaly detection over a single result set. Unusable data
// still yields a report; only an undecodable result set is an error.
func (s *AnalysisService) Detect(ctx context.Context, req *models.DetectRequest) (*anomaly.Report, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, OpDetect, startTime, cancelled(err))
	}
	if req == nil {
		return nil, s.fail(ctx, OpDetect, startTime, NewServiceError(CodeInvalidRequest, "request is required"))
	}
	if err := req.Validate(); err != nil {
		return nil, s.fail(ctx, OpDetect, startTime, NewServiceError(CodeInvalidRequest, err.Error()))
	}

	samples, svcErr := s.extract(req.Metric, req.Data)
	if svcErr != nil {
		return nil, s.fail(ctx, OpDetect, startTime, svcErr)
	}

	report := s.detector.Detect(samples, req.Metric)
	s.metrics.RecordReport(report)

	s.succeed(ctx, OpDetect, startTime,
		"metric", req.Metric,
		"samples", report.SampleCount,
		"overall_severity", report.OverallSeverity)

	return report, nil
}

// Statistics summarizes a single result set. Median and 95th percentile
// computed by the upstream store are used verbatim when supplied.
func (s *AnalysisService) Statistics(ctx context.Context, req *models.StatisticsRequest) (*StatisticsResult, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, OpStatistics, startTime, cancelled(err))
	}
	if req == nil {
		return nil, s.fail(ctx, OpStatistics, startTime, NewServiceError(CodeInvalidRequest, "request is required"))
	}
	if err := req.Validate(); err != nil {
		return nil, s.fail(ctx, OpStatistics, startTime, NewServiceError(CodeInvalidRequest, err.Error()))
	}

	samples, svcErr := s.extract(req.Metric, req.Data)
	if svcErr != nil {
		return nil, s.fail(ctx, OpStatistics, startTime, svcErr)
	}

	var agg stats.Aggregates
	if req.Aggregates != nil {
		agg = *req.Aggregates
	}
	summary := stats.SummarizeWithAggregates(samples, agg)

	s.succeed(ctx, OpStatistics, startTime,
		"metric", req.Metric,
		"samples", summary.Count)

	return &StatisticsResult{
		Metric:      req.Metric,
		SampleCount: samples.Len(),
		Summary:     summary,
	}, nil
}

// Compare summarizes two result sets and compares them
func (s *AnalysisService) Compare(ctx context.Context, req *models.CompareRequest) (*compare.ComparisonResult, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, OpCompare, startTime, cancelled(err))
	}
	if req == nil {
		return nil, s.fail(ctx, OpCompare, startTime, NewServiceError(CodeInvalidRequest, "request is required"))
	}
	if err := req.Validate(); err != nil {
		return nil, s.fail(ctx, OpCompare, startTime, NewServiceError(CodeInvalidRequest, err.Error()))
	}

	samplesA, svcErr := s.extract(req.MetricA.Metric, req.MetricA.Data)
	if svcErr != nil {
		return nil, s.fail(ctx, OpCompare, startTime, svcErr)
	}
	samplesB, svcErr := s.extract(req.MetricB.Metric, req.MetricB.Data)
	if svcErr != nil {
		return nil, s.fail(ctx, OpCompare, startTime, svcErr)
	}

	result := compare.Compare(
		req.MetricA.Metric, stats.Summarize(samplesA),
		req.MetricB.Metric, stats.Summarize(samplesB),
	)

	s.succeed(ctx, OpCompare, startTime,
		"metric_a", req.MetricA.Metric,
		"metric_b", req.MetricB.Metric,
		"insights", len(result.Insights))

	return &result, nil
}

// extract decodes the wire result set and normalizes it into samples
func (s *AnalysisService) extract(metric string, data series.ResultSet) (analytics.SampleSequence, *ServiceError) {
	shape, err := data.ToShape()
	if err != nil {
		return nil, NewServiceErrorWithDetails(CodeInvalidResultSet, err.Error(), map[string]interface{}{
			"metric": metric,
		})
	}

	samples := series.Extract(shape)
	s.metrics.AddSamples(samples.Len())
	return samples, nil
}

func (s *AnalysisService) dialectName() string {
	if s.parameterizer.Dialect.Name == "" {
		return query.DialectInfluxQL
	}
	return s.parameterizer.Dialect.Name
}

func (s *AnalysisService) succeed(ctx context.Context, op string, startTime time.Time, fields ...interface{}) {
	latency := time.Since(startTime)
	s.metrics.ObserveAnalysis(op, startTime, nil)

	fields = append([]interface{}{"operation", op}, fields...)
	fields = append(fields, "latency_ms", latency.Milliseconds())
	s.logger.WithContext(ctx).Info("Analysis completed", fields...)
}

func (s *AnalysisService) fail(ctx context.Context, op string, startTime time.Time, svcErr *ServiceError) error {
	latency := time.Since(startTime)
	s.metrics.ObserveAnalysis(op, startTime, svcErr)

	s.logger.WithContext(ctx).Warn("Analysis failed",
		"operation", op,
		"code", svcErr.Code,
		"error", svcErr.Message,
		"latency_ms", latency.Milliseconds())
	return svcErr
}

func renderError(err error, dialect string) *ServiceError {
	if errors.Is(err, query.ErrUnsupportedDialect) {
		return NewServiceErrorWithDetails(CodeUnsupportedDialect, err.Error(), map[string]interface{}{
			"dialect": dialect,
		})
	}
	return NewServiceError(CodeInvalidRequest, err.Error())
}
