package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/insight/internal/models"
)

// Plan handles query planning
// POST /v1/plan
func (h *Handler) Plan(c *fiber.Ctx) error {
	var req models.PlanRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.analysis.Plan(c.UserContext(), req.Intent)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Analyze handles full analysis of an intent and its result sets
// POST /v1/analyze
func (h *Handler) Analyze(c *fiber.Ctx) error {
	var req models.AnalyzeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.analysis.Analyze(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Detect handles anomaly detection over one result set
// POST /v1/detect
func (h *Handler) Detect(c *fiber.Ctx) error {
	var req models.DetectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	report, err := h.analysis.Detect(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// Statistics handles descriptive statistics over one result set
// POST /v1/statistics
func (h *Handler) Statistics(c *fiber.Ctx) error {
	var req models.StatisticsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.analysis.Statistics(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Compare handles comparison of two result sets
// POST /v1/compare
func (h *Handler) Compare(c *fiber.Ctx) error {
	var req models.CompareRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.analysis.Compare(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
