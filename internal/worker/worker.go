// Package worker runs analysis jobs delivered over the message queue and
// publishes their results.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/insight/internal/compression"
	"github.com/soltixdb/insight/internal/config"
	"github.com/soltixdb/insight/internal/logging"
	"github.com/soltixdb/insight/internal/metrics"
	"github.com/soltixdb/insight/internal/models"
	"github.com/soltixdb/insight/internal/queue"
	"github.com/soltixdb/insight/internal/services"
	"github.com/soltixdb/insight/internal/utils"
)

// Job status label values
const (
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobMalformed = "malformed"
)

// marshalJSON encodes envelopes; replaced in tests
var marshalJSON = json.Marshal

// Job is the envelope published on the request subject
type Job struct {
	ID          string                `json:"id"`
	Request     models.AnalyzeRequest `json:"request"`
	SubmittedAt time.Time             `json:"submitted_at"`
}

// JobResult is the envelope published on the result subject. Exactly one
// of Result and Error is set.
type JobResult struct {
	ID          string                   `json:"id"`
	Result      *services.AnalysisResult `json:"result,omitempty"`
	Error       *services.ServiceError   `json:"error,omitempty"`
	CompletedAt time.Time                `json:"completed_at"`
}

// Worker consumes jobs from the request subject
type Worker struct {
	logger   *logging.Logger
	queue    queue.Queue
	analysis *services.AnalysisService
	metrics  *metrics.Metrics
	cfg      config.WorkerConfig

	mu      sync.Mutex
	running bool
}

// New creates a worker. Start must be called before jobs are consumed;
// Submit works either way.
func New(
	logger *logging.Logger,
	q queue.Queue,
	analysis *services.AnalysisService,
	m *metrics.Metrics,
	cfg config.WorkerConfig,
) *Worker {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = utils.DefaultRequestTimeout
	}
	return &Worker{
		logger:   logger.With("component", "worker"),
		queue:    q,
		analysis: analysis,
		metrics:  m,
		cfg:      cfg,
	}
}

// Start subscribes to the request subject
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	if err := w.queue.Subscribe(w.cfg.RequestSubject, w.handleJob); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", w.cfg.RequestSubject, err)
	}
	w.running = true

	w.logger.Info("Worker started",
		"request_subject", w.cfg.RequestSubject,
		"result_subject", w.cfg.ResultSubject,
		"job_timeout", w.cfg.JobTimeout.String())
	return nil
}

// Stop unsubscribes from the request subject. The queue itself is owned by
// the caller and stays open.
func (w *Worker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false

	if err := w.queue.Unsubscribe(w.cfg.RequestSubject); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", w.cfg.RequestSubject, err)
	}

	w.logger.Info("Worker stopped")
	return nil
}

// Submit validates the request, wraps it in a job and publishes it. It
// returns the job id that the result will carry.
func (w *Worker) Submit(ctx context.Context, req *models.AnalyzeRequest) (string, error) {
	if req == nil {
		return "", services.NewServiceError(services.CodeInvalidRequest, "request is required")
	}
	if err := req.Validate(); err != nil {
		return "", services.NewServiceError(services.CodeInvalidRequest, err.Error())
	}

	job := Job{
		ID:          uuid.NewString(),
		Request:     *req,
		SubmittedAt: time.Now().UTC(),
	}

	frame, err := w.encode(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode job: %w", err)
	}
	if err := w.queue.Publish(ctx, w.cfg.RequestSubject, frame); err != nil {
		return "", fmt.Errorf("failed to publish job: %w", err)
	}

	w.logger.WithContext(ctx).Info("Job submitted",
		"job_id", job.ID,
		"metrics", len(req.Intent.MetricNames),
		"bytes", len(frame))
	return job.ID, nil
}

// SubmitBatch validates every request before publishing any of them, then
// publishes the jobs in one batch. Job ids are returned in request order.
func (w *Worker) SubmitBatch(ctx context.Context, reqs []models.AnalyzeRequest) ([]string, error) {
	batch := models.BatchAnalyzeRequest{Requests: reqs}
	if err := batch.Validate(); err != nil {
		return nil, services.NewServiceError(services.CodeInvalidRequest, err.Error())
	}

	now := time.Now().UTC()
	ids := make([]string, len(reqs))
	messages := make([]queue.BatchMessage, len(reqs))
	for i := range reqs {
		job := Job{ID: uuid.NewString(), Request: reqs[i], SubmittedAt: now}
		frame, err := w.encode(job)
		if err != nil {
			return nil, fmt.Errorf("failed to encode job %d: %w", i, err)
		}
		ids[i] = job.ID
		messages[i] = queue.BatchMessage{Subject: w.cfg.RequestSubject, Data: frame}
	}

	published, err := w.queue.PublishBatch(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to publish batch (%d/%d published): %w", published, len(messages), err)
	}
	if published < len(messages) {
		return nil, fmt.Errorf("failed to publish batch: %d/%d published", published, len(messages))
	}

	w.logger.WithContext(ctx).Info("Job batch submitted", "jobs", len(ids))
	return ids, nil
}

// handleJob runs one job. Malformed messages are acknowledged and dropped;
// only a failure to publish the result asks the backend to redeliver.
func (w *Worker) handleJob(data []byte) error {
	job, err := DecodeJob(data)
	if err != nil {
		w.logger.Warn("Dropping malformed job",
			"error", err,
			"data_len", len(data))
		w.metrics.RecordJob(JobMalformed)
		return nil
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
	defer cancel()
	ctx = logging.WithJobID(ctx, job.ID)

	result := JobResult{ID: job.ID}
	analysis, err := w.analysis.Analyze(ctx, &job.Request)
	if err != nil {
		svcErr, ok := services.AsServiceError(err)
		if !ok {
			svcErr = services.NewServiceError(services.CodeInternalError, err.Error())
		}
		result.Error = svcErr
	} else {
		result.Result = analysis
	}
	result.CompletedAt = time.Now().UTC()

	frame, err := w.encode(result)
	if err != nil {
		// The submitter still gets an answer for this job id
		w.logger.WithContext(ctx).Error("Failed to encode job result", "error", err)
		result.Result = nil
		result.Error = services.NewServiceError(services.CodeInternalError, "failed to encode analysis result")
		if frame, err = w.encode(result); err != nil {
			w.metrics.RecordJob(JobFailed)
			return nil
		}
	}

	pubCtx, pubCancel := context.WithTimeout(context.Background(), utils.QueueConnectTimeout)
	defer pubCancel()
	if err := w.queue.Publish(pubCtx, w.cfg.ResultSubject, frame); err != nil {
		w.logger.WithContext(ctx).Error("Failed to publish job result",
			"error", err,
			"subject", w.cfg.ResultSubject)
		w.metrics.RecordJob(JobFailed)
		return err
	}

	status := JobCompleted
	if result.Error != nil {
		status = JobFailed
	}
	w.metrics.RecordJob(status)
	return nil
}

// encode marshals v and frames it, compressing when enabled and the payload
// is large enough
func (w *Worker) encode(v interface{}) ([]byte, error) {
	data, err := marshalJSON(v)
	if err != nil {
		return nil, err
	}
	if !w.cfg.Compress {
		return compression.Frame(compression.None, data)
	}
	return compression.FrameAbove(w.cfg.CompressMinSize, data)
}

// DecodeJob unframes and decodes a job message
func DecodeJob(frame []byte) (*Job, error) {
	var job Job
	if err := decodeFrame(frame, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// DecodeResult unframes and decodes a result message
func DecodeResult(frame []byte) (*JobResult, error) {
	var result JobResult
	if err := decodeFrame(frame, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func decodeFrame(frame []byte, v interface{}) error {
	data, algo, err := compression.Unframe(frame)
	if err != nil {
		return fmt.Errorf("failed to unframe message: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s message: %w", algo, err)
	}
	return nil
}
