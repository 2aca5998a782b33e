package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/soltixdb/insight/internal/analytics"
	"github.com/soltixdb/insight/internal/analytics/anomaly"
	"github.com/soltixdb/insight/internal/analytics/query"
	"github.com/soltixdb/insight/internal/analytics/series"
	"github.com/soltixdb/insight/internal/analytics/stats"
	"github.com/soltixdb/insight/internal/logging"
	"github.com/soltixdb/insight/internal/metrics"
	"github.com/soltixdb/insight/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*AnalysisService, *metrics.Metrics) {
	m := metrics.New()
	return NewAnalysisService(logging.NewNop(), nil, nil, m), m
}

// rowsOf builds a row-tuple result set with one-minute spacing
func rowsOf(values ...float64) series.ResultSet {
	rows := make([][]interface{}, len(values))
	for i, v := range values {
		rows[i] = []interface{}{float64(1_700_000_000_000 + int64(i)*60_000), v}
	}
	return series.ResultSet{Shape: series.ShapeRows, Rows: rows}
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func requireServiceError(t *testing.T, err error, code string) *ServiceError {
	t.Helper()
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok, "expected ServiceError, got %T", err)
	assert.Equal(t, code, svcErr.Code)
	return svcErr
}

func TestPlan_StandardIntent(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Plan(context.Background(), analytics.Intent{
		MetricNames: []string{"cpu", " cpu ", "mem"},
		Operation:   analytics.OperationMean,
		TimeRange:   "1h",
		Purpose:     analytics.PurposeStandard,
	})
	require.NoError(t, err)

	assert.Equal(t, query.DialectInfluxQL, result.Dialect)
	assert.Equal(t, []string{"cpu", "mem"}, result.Intent.MetricNames)
	require.Len(t, result.Metrics, 2)

	plan := result.Metrics[0]
	assert.Equal(t, "cpu", plan.Metric)
	assert.Equal(t, "1h", plan.Lookback)
	assert.Equal(t, "5m", plan.BucketInterval)
	assert.Equal(t, 1000, plan.Parameters.RowLimit)
	assert.Equal(t, `SELECT mean(*) FROM "cpu" WHERE time > now() - 1h GROUP BY time(5m) fill(null) LIMIT 1000`, plan.Query)
	assert.Contains(t, plan.StatisticsQuery, `FROM "cpu"`)
}

func TestPlan_AnomalyIntentWidens(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Plan(context.Background(), analytics.Intent{
		MetricNames: []string{"latency"},
		Operation:   analytics.OperationMax,
		TimeRange:   "24h",
		Purpose:     analytics.PurposeAnomalyDetection,
	})
	require.NoError(t, err)

	plan := result.Metrics[0]
	assert.Equal(t, "7d", plan.Lookback)
	assert.Equal(t, "5m", plan.BucketInterval)
	assert.Equal(t, 2000, plan.Parameters.RowLimit)
	assert.Equal(t, "max", plan.Parameters.Aggregation)
}

func TestPlan_Errors(t *testing.T) {
	svc, m := newTestService()

	_, err := svc.Plan(context.Background(), analytics.Intent{MetricNames: []string{" ", ""}})
	requireServiceError(t, err, CodeInvalidIntent)

	sql := NewAnalysisService(logging.NewNop(),
		query.NewParameterizer(query.DialectConfig{Name: "sql"}, query.DefaultLimits()), nil, m)
	_, err = sql.Plan(context.Background(), analytics.Intent{MetricNames: []string{"cpu"}})
	svcErr := requireServiceError(t, err, CodeUnsupportedDialect)
	assert.Equal(t, "sql", svcErr.Details["dialect"])

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(OpPlan, metrics.StatusError)))
}

func TestOperations_CancelledContext(t *testing.T) {
	svc, _ := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Plan(ctx, analytics.Intent{MetricNames: []string{"cpu"}})
	requireServiceError(t, err, CodeCancelled)

	_, err = svc.Analyze(ctx, &models.AnalyzeRequest{})
	requireServiceError(t, err, CodeCancelled)

	_, err = svc.Detect(ctx, &models.DetectRequest{Metric: "cpu"})
	requireServiceError(t, err, CodeCancelled)

	_, err = svc.Statistics(ctx, &models.StatisticsRequest{Metric: "cpu"})
	requireServiceError(t, err, CodeCancelled)

	_, err = svc.Compare(ctx, &models.CompareRequest{})
	requireServiceError(t, err, CodeCancelled)
}

func TestAnalyze_StandardComparesFirstTwo(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Analyze(context.Background(), &models.AnalyzeRequest{
		Intent: analytics.Intent{
			MetricNames: []string{"cpu", "mem"},
			Operation:   analytics.OperationMean,
			TimeRange:   "1h",
			Purpose:     analytics.PurposeStandard,
		},
		Results: []models.MetricData{
			{Metric: "mem", Data: rowsOf(10, 10, 10, 10)},
			{Metric: "cpu", Data: rowsOf(20, 20, 20, 20)},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Metrics, 2)
	assert.Equal(t, "cpu", result.Metrics[0].Metric)
	assert.Equal(t, 20.0, result.Metrics[0].Summary.Mean)
	assert.Equal(t, 4, result.Metrics[0].SampleCount)
	assert.Nil(t, result.Metrics[0].Anomaly, "standard purpose skips detection")

	require.NotNil(t, result.Comparison)
	assert.Equal(t, []string{"cpu has 2.0x higher average than mem"}, result.Comparison.Insights)
}

func TestAnalyze_MatchesTrimmedResultMetrics(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Analyze(context.Background(), &models.AnalyzeRequest{
		Intent: analytics.Intent{MetricNames: []string{"cpu"}, TimeRange: "1h"},
		Results: []models.MetricData{
			{Metric: " cpu ", Data: rowsOf(1, 2, 3)},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Metrics, 1)
	assert.Equal(t, "cpu", result.Metrics[0].Metric)
	assert.Equal(t, 3, result.Metrics[0].SampleCount)
}

func TestStatistics_LargeValuesStayFinite(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Statistics(context.Background(), &models.StatisticsRequest{
		Metric: "huge",
		Data:   rowsOf(constant(1e308, 12)...),
	})
	require.NoError(t, err)
	assert.Equal(t, 1e308, result.Summary.Mean)
	assert.Equal(t, 0.0, result.Summary.StdDev)

	_, err = json.Marshal(result)
	assert.NoError(t, err)
}

func TestAnalyze_AnomalyDetection(t *testing.T) {
	svc, m := newTestService()

	result, err := svc.Analyze(context.Background(), &models.AnalyzeRequest{
		Intent: analytics.Intent{
			MetricNames: []string{"queue_depth"},
			TimeRange:   "1h",
			Purpose:     analytics.PurposeAnomalyDetection,
		},
		Results: []models.MetricData{
			{Metric: "queue_depth", Data: rowsOf(constant(5, 25)...)},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Metrics, 1)
	report := result.Metrics[0].Anomaly
	require.NotNil(t, report)
	assert.True(t, report.HasFinding(anomaly.KindFlatline))
	assert.Equal(t, anomaly.OverallMedium, report.OverallSeverity)
	assert.Nil(t, result.Comparison)

	assert.Equal(t, 25.0, testutil.ToFloat64(m.SamplesExtracted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(OpAnalyze, metrics.StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.FindingsTotal.WithLabelValues(string(anomaly.KindFlatline), string(anomaly.SeverityMedium))))
}

func TestAnalyze_EmptyResultIsInsufficientData(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Analyze(context.Background(), &models.AnalyzeRequest{
		Intent: analytics.Intent{
			MetricNames: []string{"cpu"},
			Purpose:     analytics.PurposeAnomalyDetection,
		},
		Results: []models.MetricData{{Metric: "cpu"}},
	})
	require.NoError(t, err)

	analysis := result.Metrics[0]
	assert.Equal(t, 0, analysis.SampleCount)
	assert.True(t, analysis.Summary.Empty())
	require.Len(t, analysis.Anomaly.Findings, 1)
	assert.Equal(t, anomaly.KindInsufficientData, analysis.Anomaly.Findings[0].Kind)
}

func TestAnalyze_Errors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *models.AnalyzeRequest
		code string
	}{
		{"nil request", nil, CodeInvalidRequest},
		{"no metrics", &models.AnalyzeRequest{Results: []models.MetricData{{Metric: "cpu"}}}, CodeInvalidIntent},
		{"no results", &models.AnalyzeRequest{Intent: analytics.Intent{MetricNames: []string{"cpu"}}}, CodeInvalidRequest},
		{
			"unnamed result",
			&models.AnalyzeRequest{
				Intent:  analytics.Intent{MetricNames: []string{"cpu"}},
				Results: []models.MetricData{{}},
			},
			CodeInvalidRequest,
		},
		{
			"missing result set",
			&models.AnalyzeRequest{
				Intent:  analytics.Intent{MetricNames: []string{"cpu", "mem"}},
				Results: []models.MetricData{{Metric: "cpu", Data: rowsOf(1)}},
			},
			CodeMissingResultSet,
		},
		{
			"unknown shape",
			&models.AnalyzeRequest{
				Intent:  analytics.Intent{MetricNames: []string{"cpu"}},
				Results: []models.MetricData{{Metric: "cpu", Data: series.ResultSet{Shape: "matrix"}}},
			},
			CodeInvalidResultSet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Analyze(ctx, tt.req)
			requireServiceError(t, err, tt.code)
		})
	}
}

func TestDetect(t *testing.T) {
	svc, _ := newTestService()

	report, err := svc.Detect(context.Background(), &models.DetectRequest{
		Metric: "errors",
		Data:   rowsOf(append(constant(1, 9), 10)...),
	})
	require.NoError(t, err)

	assert.Equal(t, "errors", report.Metric)
	assert.True(t, report.HasFinding(anomaly.KindSpike))
	assert.Equal(t, anomaly.OverallHigh, report.OverallSeverity)

	_, err = svc.Detect(context.Background(), &models.DetectRequest{})
	requireServiceError(t, err, CodeInvalidRequest)
}

func TestStatistics_UsesUpstreamAggregates(t *testing.T) {
	svc, _ := newTestService()
	median := 2.5
	p95 := 9.0

	result, err := svc.Statistics(context.Background(), &models.StatisticsRequest{
		Metric: "cpu",
		Data: series.ResultSet{
			Shape:   series.ShapeColumnar,
			Columns: []string{"time", "mean_value"},
			Values: []interface{}{
				"2024-01-01T00:00:00Z", 1.0,
				"2024-01-01T00:01:00Z", 2.0,
				"2024-01-01T00:02:00Z", 3.0,
			},
		},
		Aggregates: &stats.Aggregates{Median: &median, Percentile95: &p95},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.SampleCount)
	assert.Equal(t, 2.0, result.Summary.Mean)
	assert.Equal(t, 2.5, result.Summary.Median)
	assert.Equal(t, 9.0, result.Summary.Percentile95)
}

func TestStatistics_LocalWithoutAggregates(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Statistics(context.Background(), &models.StatisticsRequest{
		Metric: "cpu",
		Data:   rowsOf(4, 1, 3, 2),
	})
	require.NoError(t, err)

	assert.Equal(t, 2.5, result.Summary.Median)
	assert.Equal(t, 4.0, result.Summary.Percentile95)
	assert.Equal(t, 3.0, result.Summary.Range)
}

func TestCompare(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Compare(context.Background(), &models.CompareRequest{
		MetricA: models.MetricData{Metric: "a", Data: rowsOf(10, 10, 10)},
		MetricB: models.MetricData{Metric: "b", Data: rowsOf(10, 0, 20)},
	})
	require.NoError(t, err)

	assert.Equal(t, "a", result.MetricA.Name)
	assert.Equal(t, []string{
		"a and b have similar averages",
		"b shows much higher variability than a",
	}, result.Insights)

	_, err = svc.Compare(context.Background(), &models.CompareRequest{MetricA: models.MetricData{Metric: "a"}})
	svcErr := requireServiceError(t, err, CodeInvalidRequest)
	assert.Contains(t, svcErr.Message, "metric_b")
}
