package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/insight/internal/models"
)

// Health reports liveness plus the dialect and detection floor the service
// answers with, and whether POST /v1/jobs is accepting work.
// GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{
		Status:     "ok",
		Version:    Version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Dialect:    h.analysis.Dialect(),
		MinSamples: h.analysis.MinSamples(),
		AsyncJobs:  h.submitter != nil,
	})
}

// NotFound renders unknown routes in the error envelope
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "no route for " + c.Method() + " " + c.Path(),
			Path:    c.Path(),
		},
	})
}
