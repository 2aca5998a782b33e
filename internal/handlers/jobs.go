package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/insight/internal/models"
	"github.com/soltixdb/insight/internal/services"
)

// SubmitJob queues an analysis for the worker and returns its job id. The
// result is published on the worker's result subject.
// POST /v1/jobs
func (h *Handler) SubmitJob(c *fiber.Ctx) error {
	if h.submitter == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "asynchronous analysis is disabled")
	}

	var req models.AnalyzeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	jobID, err := h.submitter.Submit(c.UserContext(), &req)
	if err != nil {
		h.logger.WithContext(c.UserContext()).Error("Failed to submit analysis job", "error", err)
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(models.SubmitResponse{JobID: jobID})
}

// SubmitJobs queues a batch of analyses in one publish round trip. Job ids
// are returned in request order.
// POST /v1/jobs/batch
func (h *Handler) SubmitJobs(c *fiber.Ctx) error {
	if h.submitter == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "asynchronous analysis is disabled")
	}

	var req models.BatchAnalyzeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		var details map[string]interface{}
		if errors.Is(err, models.ErrTooManyJobs) {
			details = map[string]interface{}{"max_requests": models.MaxBatchRequests}
		}
		return services.NewServiceErrorWithDetails(services.CodeInvalidRequest, err.Error(), details)
	}

	jobIDs, err := h.submitter.SubmitBatch(c.UserContext(), req.Requests)
	if err != nil {
		h.logger.WithContext(c.UserContext()).Error("Failed to submit analysis batch",
			"error", err,
			"requests", len(req.Requests))
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(models.BatchSubmitResponse{JobIDs: jobIDs})
}
