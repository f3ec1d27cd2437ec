package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dicdwatch/dicdwatch/internal/config"
	"github.com/dicdwatch/dicdwatch/internal/logging"
	"github.com/dicdwatch/dicdwatch/internal/models"
	"github.com/dicdwatch/dicdwatch/internal/services"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger   *logging.Logger
	location *time.Location
	analysis config.AnalysisConfig
	// Services
	analysisService *services.AnalysisService
	cacheService    *services.CacheService
}

// New creates a new handler instance
func New(logger *logging.Logger, analysisService *services.AnalysisService,
	cacheService *services.CacheService, cfg config.Config,
) *Handler {
	return &Handler{
		logger:          logger,
		location:        cfg.Source.LocationOrUTC(),
		analysis:        cfg.Analysis,
		analysisService: analysisService,
		cacheService:    cacheService,
	}
}

// badRequest renders a validation error produced by a models Validate method
func (h *Handler) badRequest(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	message := err.Error()
	if fiberErr, ok := err.(*fiber.Error); ok {
		status = fiberErr.Code
		message = fiberErr.Message
	}
	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    services.CodeInvalidRequest,
			Message: message,
		},
	})
}

// invalidJSON renders a body parse failure
func (h *Handler) invalidJSON(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INVALID_JSON",
			Message: "Failed to parse JSON body",
			Details: map[string]interface{}{"error": err.Error()},
		},
	})
}

// serviceError maps a service error to its HTTP status
func (h *Handler) serviceError(c *fiber.Ctx, err error) error {
	svcErr, ok := services.AsServiceError(err)
	if !ok {
		h.logger.WithContext(c.UserContext()).Error("Unexpected service failure", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: err.Error(),
			},
		})
	}

	status := fiber.StatusInternalServerError
	switch svcErr.Code {
	case services.CodeNotFound:
		status = fiber.StatusNotFound
	case services.CodeInvalidRequest:
		status = fiber.StatusBadRequest
	case services.CodeSourceError:
		status = fiber.StatusServiceUnavailable
	case services.CodePublishFailed:
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    svcErr.Code,
			Message: svcErr.Message,
			Details: svcErr.Details,
		},
	})
}
