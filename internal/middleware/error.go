package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/soltixdb/insight/internal/logging"
	"github.com/soltixdb/insight/internal/models"
	"github.com/soltixdb/insight/internal/services"
)

// StatusForCode maps a service error code to an HTTP status
func StatusForCode(code string) int {
	switch code {
	case services.CodeInvalidIntent, services.CodeInvalidRequest, services.CodeInvalidJSON,
		services.CodeMissingResultSet, services.CodeInvalidResultSet,
		services.CodeUnsupportedDialect:
		return fiber.StatusBadRequest
	case services.CodeCancelled:
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error returned by a handler in the standard
// envelope. Service errors keep their code; fiber errors get a code derived
// from the status text.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		detail := models.ErrorDetail{
			Code:    services.CodeInternalError,
			Message: "Internal Server Error",
			Path:    c.Path(),
		}
		status := fiber.StatusInternalServerError

		if svcErr, ok := services.AsServiceError(err); ok {
			status = StatusForCode(svcErr.Code)
			detail.Code = svcErr.Code
			detail.Message = svcErr.Message
			detail.Details = svcErr.Details
		} else if e, ok := err.(*fiber.Error); ok {
			status = e.Code
			detail.Code = codeForStatus(e.Code)
			detail.Message = e.Message
		}

		fields := []interface{}{
			"path", c.Path(),
			"method", c.Method(),
			"status", status,
			"code", detail.Code,
			"error", err,
		}
		if status >= fiber.StatusInternalServerError {
			logger.WithContext(c.UserContext()).Error("Request error", fields...)
		} else {
			logger.WithContext(c.UserContext()).Warn("Request rejected", fields...)
		}

		return c.Status(status).JSON(models.ErrorResponse{Error: detail})
	}
}

// codeForStatus turns 404 into NOT_FOUND, 418 into I'M_A_TEAPOT and so on
func codeForStatus(status int) string {
	msg := utils.StatusMessage(status)
	if msg == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(msg, " ", "_"))
}
