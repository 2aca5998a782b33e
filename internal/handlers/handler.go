package handlers

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/insight/internal/logging"
	"github.com/soltixdb/insight/internal/models"
	"github.com/soltixdb/insight/internal/services"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// JobSubmitter queues analyses for the asynchronous worker
type JobSubmitter interface {
	Submit(ctx context.Context, req *models.AnalyzeRequest) (string, error)
	SubmitBatch(ctx context.Context, reqs []models.AnalyzeRequest) ([]string, error)
}

// Handler contains all HTTP handlers
type Handler struct {
	logger    *logging.Logger
	analysis  *services.AnalysisService
	submitter JobSubmitter
}

// New creates a new handler instance. submitter may be nil when the worker
// is disabled; job submission then answers 503.
func New(logger *logging.Logger, analysis *services.AnalysisService, submitter JobSubmitter) *Handler {
	return &Handler{
		logger:    logger,
		analysis:  analysis,
		submitter: submitter,
	}
}

// parseBody decodes the JSON body keeping numbers as json.Number, so epoch
// timestamps in result sets are not rounded through float64
func parseBody(c *fiber.Ctx, v interface{}) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return invalidJSON("request body is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return invalidJSON(err.Error())
	}
	return nil
}

func invalidJSON(reason string) error {
	return services.NewServiceErrorWithDetails(services.CodeInvalidJSON, "Failed to parse JSON body",
		map[string]interface{}{"error": reason})
}
