package worker

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/soltixdb/insight/internal/analytics"
	"github.com/soltixdb/insight/internal/analytics/anomaly"
	"github.com/soltixdb/insight/internal/analytics/series"
	"github.com/soltixdb/insight/internal/compression"
	"github.com/soltixdb/insight/internal/config"
	"github.com/soltixdb/insight/internal/logging"
	"github.com/soltixdb/insight/internal/metrics"
	"github.com/soltixdb/insight/internal/models"
	"github.com/soltixdb/insight/internal/queue"
	"github.com/soltixdb/insight/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	requestSubject = "test.analyze.requests"
	resultSubject  = "test.analyze.results"
)

type resultCollector struct {
	mu      sync.Mutex
	frames  [][]byte
	results []*JobResult
}

func (c *resultCollector) handle(data []byte) error {
	result, err := DecodeResult(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	c.results = append(c.results, result)
	return nil
}

func (c *resultCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func (c *resultCollector) get(i int) (*JobResult, []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[i], c.frames[i]
}

func setupWorker(t *testing.T, cfg config.WorkerConfig) (*Worker, queue.Queue, *metrics.Metrics, *resultCollector) {
	t.Helper()

	q, err := queue.NewQueue(config.QueueConfig{Type: "memory"}, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	cfg.RequestSubject = requestSubject
	cfg.ResultSubject = resultSubject

	m := metrics.New()
	svc := services.NewAnalysisService(logging.NewNop(), nil, nil, m)
	w := New(logging.NewNop(), q, svc, m, cfg)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	c := &resultCollector{}
	require.NoError(t, q.Subscribe(resultSubject, c.handle))

	return w, q, m, c
}

func flatlineRequest(metric string) *models.AnalyzeRequest {
	rows := make([][]interface{}, 25)
	for i := range rows {
		rows[i] = []interface{}{int64(1_700_000_000_000 + i*60_000), 5.0}
	}
	return &models.AnalyzeRequest{
		Intent: analytics.Intent{
			MetricNames: []string{metric},
			TimeRange:   "1h",
			Purpose:     analytics.PurposeAnomalyDetection,
		},
		Results: []models.MetricData{
			{Metric: metric, Data: series.ResultSet{Shape: series.ShapeRows, Rows: rows}},
		},
	}
}

func TestWorker_SubmitAndProcess(t *testing.T) {
	w, _, m, c := setupWorker(t, config.WorkerConfig{JobTimeout: time.Second})

	jobID, err := w.Submit(context.Background(), flatlineRequest("queue_depth"))
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	result, frame := c.get(0)
	assert.Equal(t, jobID, result.ID)
	assert.Nil(t, result.Error)
	require.NotNil(t, result.Result)
	require.Len(t, result.Result.Metrics, 1)
	assert.True(t, result.Result.Metrics[0].Anomaly.HasFinding(anomaly.KindFlatline))
	assert.False(t, result.CompletedAt.IsZero())
	assert.Equal(t, byte(compression.None), frame[0])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues(JobCompleted)))
}

func TestWorker_CompressesLargeResults(t *testing.T) {
	w, _, _, c := setupWorker(t, config.WorkerConfig{
		JobTimeout:      time.Second,
		Compress:        true,
		CompressMinSize: 64,
	})

	_, err := w.Submit(context.Background(), flatlineRequest("cpu"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	result, frame := c.get(0)
	assert.Equal(t, byte(compression.Snappy), frame[0])
	require.NotNil(t, result.Result)
	assert.Equal(t, "cpu", result.Result.Metrics[0].Metric)
}

func TestWorker_ServiceErrorIsPublished(t *testing.T) {
	_, q, m, c := setupWorker(t, config.WorkerConfig{JobTimeout: time.Second})

	// Bypass Submit validation to exercise the worker's error path
	data, err := json.Marshal(Job{
		ID: "job-missing",
		Request: models.AnalyzeRequest{
			Intent:  analytics.Intent{MetricNames: []string{"cpu", "mem"}},
			Results: []models.MetricData{{Metric: "cpu"}},
		},
	})
	require.NoError(t, err)
	frame, err := compression.Frame(compression.None, data)
	require.NoError(t, err)
	require.NoError(t, q.Publish(context.Background(), requestSubject, frame))

	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	result, _ := c.get(0)
	assert.Equal(t, "job-missing", result.ID)
	assert.Nil(t, result.Result)
	require.NotNil(t, result.Error)
	assert.Equal(t, services.CodeMissingResultSet, result.Error.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues(JobFailed)))
}

func TestWorker_UnencodableResultIsReportedAsError(t *testing.T) {
	original := marshalJSON
	marshalJSON = func(v interface{}) ([]byte, error) {
		if r, ok := v.(JobResult); ok && r.Result != nil {
			return nil, errors.New("json: unsupported value: +Inf")
		}
		return original(v)
	}
	t.Cleanup(func() { marshalJSON = original })

	w, _, m, c := setupWorker(t, config.WorkerConfig{JobTimeout: time.Second})

	jobID, err := w.Submit(context.Background(), flatlineRequest("cpu"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	result, _ := c.get(0)
	assert.Equal(t, jobID, result.ID)
	assert.Nil(t, result.Result)
	require.NotNil(t, result.Error)
	assert.Equal(t, services.CodeInternalError, result.Error.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues(JobFailed)))
}

func TestWorker_LargeValuesProduceAResult(t *testing.T) {
	_, q, _, c := setupWorker(t, config.WorkerConfig{JobTimeout: time.Second})

	rows := make([][]interface{}, 12)
	for i := range rows {
		rows[i] = []interface{}{int64(1_700_000_000_000 + i*60_000), 1e308}
	}
	req := models.AnalyzeRequest{
		Intent: analytics.Intent{MetricNames: []string{"huge"}, Purpose: analytics.PurposeAnomalyDetection},
		Results: []models.MetricData{
			{Metric: "huge", Data: series.ResultSet{Shape: series.ShapeRows, Rows: rows}},
		},
	}
	data, err := json.Marshal(Job{ID: "job-huge", Request: req})
	require.NoError(t, err)
	frame, err := compression.Frame(compression.None, data)
	require.NoError(t, err)
	require.NoError(t, q.Publish(context.Background(), requestSubject, frame))

	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	result, _ := c.get(0)
	assert.Nil(t, result.Error)
	require.NotNil(t, result.Result)
	summary := result.Result.Metrics[0].Summary
	assert.False(t, math.IsInf(summary.Mean, 0))
	assert.Equal(t, 1e308, summary.Mean)
	assert.Zero(t, summary.StdDev)
}

func TestWorker_MalformedMessagesAreDropped(t *testing.T) {
	_, q, m, c := setupWorker(t, config.WorkerConfig{JobTimeout: time.Second})
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, requestSubject, []byte{}))
	require.NoError(t, q.Publish(ctx, requestSubject, []byte{0x7f, 'x'}))
	require.NoError(t, q.Publish(ctx, requestSubject, append([]byte{byte(compression.None)}, "{not json"...)))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.JobsTotal.WithLabelValues(JobMalformed)) == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, c.count())
}

func TestWorker_MissingJobIDIsAssigned(t *testing.T) {
	_, q, _, c := setupWorker(t, config.WorkerConfig{JobTimeout: time.Second})

	data, err := json.Marshal(Job{Request: *flatlineRequest("cpu")})
	require.NoError(t, err)
	frame, err := compression.Frame(compression.Snappy, data)
	require.NoError(t, err)
	require.NoError(t, q.Publish(context.Background(), requestSubject, frame))

	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	result, _ := c.get(0)
	assert.NotEmpty(t, result.ID)
}

func TestWorker_SubmitValidates(t *testing.T) {
	w, _, _, _ := setupWorker(t, config.WorkerConfig{})

	_, err := w.Submit(context.Background(), nil)
	require.Error(t, err)

	_, err = w.Submit(context.Background(), &models.AnalyzeRequest{})
	svcErr, ok := services.AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, services.CodeInvalidRequest, svcErr.Code)
}

func TestWorker_SubmitBatch(t *testing.T) {
	w, _, m, c := setupWorker(t, config.WorkerConfig{JobTimeout: time.Second})

	ids, err := w.SubmitBatch(context.Background(), []models.AnalyzeRequest{
		*flatlineRequest("cpu"),
		*flatlineRequest("mem"),
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	require.Eventually(t, func() bool { return c.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	byID := map[string]string{}
	for i := 0; i < 2; i++ {
		result, _ := c.get(i)
		require.NotNil(t, result.Result)
		byID[result.ID] = result.Result.Metrics[0].Metric
	}
	assert.Equal(t, map[string]string{ids[0]: "cpu", ids[1]: "mem"}, byID)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues(JobCompleted)))
}

func TestWorker_SubmitBatchValidatesEveryRequest(t *testing.T) {
	w, _, _, c := setupWorker(t, config.WorkerConfig{})

	_, err := w.SubmitBatch(context.Background(), []models.AnalyzeRequest{
		*flatlineRequest("cpu"),
		{Intent: analytics.Intent{MetricNames: []string{"mem"}}},
	})
	svcErr, ok := services.AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, services.CodeInvalidRequest, svcErr.Code)
	assert.Contains(t, svcErr.Message, "requests[1]")

	// Nothing from a rejected batch reaches the queue
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, c.count())
}

func TestWorker_StartStopIdempotent(t *testing.T) {
	w, _, _, _ := setupWorker(t, config.WorkerConfig{})

	assert.NoError(t, w.Start())
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Start())
}

func TestDecodeJob_RoundTrip(t *testing.T) {
	req := flatlineRequest("cpu")
	data, err := json.Marshal(Job{ID: "abc", Request: *req})
	require.NoError(t, err)
	frame, err := compression.FrameAbove(1, data)
	require.NoError(t, err)

	job, err := DecodeJob(frame)
	require.NoError(t, err)
	assert.Equal(t, "abc", job.ID)
	assert.Equal(t, []string{"cpu"}, job.Request.Intent.MetricNames)
	// Numbers decode as json.Number so epoch millis survive intact
	assert.Equal(t, json.Number("1700000000000"), job.Request.Results[0].Data.Rows[0][0])
}
