package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/insight/internal/logging"
	"github.com/soltixdb/insight/internal/middleware"
	"github.com/soltixdb/insight/internal/models"
	"github.com/soltixdb/insight/internal/services"
	"github.com/stretchr/testify/require"
)

type stubSubmitter struct {
	submitted []*models.AnalyzeRequest
	err       error
}

func (s *stubSubmitter) Submit(_ context.Context, req *models.AnalyzeRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.submitted = append(s.submitted, req)
	return "job-1", nil
}

func (s *stubSubmitter) SubmitBatch(_ context.Context, reqs []models.AnalyzeRequest) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	ids := make([]string, len(reqs))
	for i := range reqs {
		s.submitted = append(s.submitted, &reqs[i])
		ids[i] = fmt.Sprintf("job-%d", i+1)
	}
	return ids, nil
}

func newTestApp(submitter JobSubmitter) *fiber.App {
	logger := logging.NewNop()
	h := New(logger, services.NewAnalysisService(logger, nil, nil, nil), submitter)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
	})
	app.Get("/health", h.Health)
	app.Post("/v1/plan", h.Plan)
	app.Post("/v1/analyze", h.Analyze)
	app.Post("/v1/detect", h.Detect)
	app.Post("/v1/statistics", h.Statistics)
	app.Post("/v1/compare", h.Compare)
	app.Post("/v1/jobs", h.SubmitJob)
	app.Post("/v1/jobs/batch", h.SubmitJobs)
	app.Use(h.NotFound)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeError(t *testing.T, body []byte) models.ErrorDetail {
	t.Helper()
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	return errResp.Error
}
