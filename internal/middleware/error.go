package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/dicdwatch/dicdwatch/internal/logging"
	"github.com/dicdwatch/dicdwatch/internal/models"
)

// statusCodes names the error code reported for framework-level failures
var statusCodes = map[int]string{
	fiber.StatusBadRequest:            "INVALID_REQUEST",
	fiber.StatusUnauthorized:          CodeUnauthorized,
	fiber.StatusNotFound:              "NOT_FOUND",
	fiber.StatusMethodNotAllowed:      "METHOD_NOT_ALLOWED",
	fiber.StatusRequestEntityTooLarge: "PAYLOAD_TOO_LARGE",
	fiber.StatusServiceUnavailable:    "SOURCE_ERROR",
}

// ErrorHandler renders errors that escape the handlers (framework errors,
// body-limit rejections, recovered panics) in the common error envelope.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			message = fe.Message
		}

		code, ok := statusCodes[status]
		if !ok {
			code = "INTERNAL_ERROR"
			if status < fiber.StatusInternalServerError {
				code = "ERROR"
			}
		}

		fields := []interface{}{
			"path", c.Path(),
			"method", c.Method(),
			"status", status,
			"request_id", c.GetRespHeader(logging.RequestIDHeader),
			"error", err,
		}
		if status >= fiber.StatusInternalServerError {
			logger.Error("Request error", fields...)
		} else {
			logger.Warn("Request rejected", fields...)
		}

		return c.Status(status).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    code,
				Message: message,
				Path:    c.Path(),
			},
		})
	}
}
