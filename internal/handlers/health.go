package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dicdwatch/dicdwatch/internal/models"
	"github.com/dicdwatch/dicdwatch/internal/services"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Health reports liveness without touching the measurement store
func (h *Handler) Health(c *fiber.Ctx) error {
	resp := models.HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Version:      Version,
		Invalidation: "local",
	}
	if h.cacheService != nil {
		resp.NodeID = h.cacheService.NodeID()
		resp.CachedEntries = h.cacheService.CachedEntries()
		if h.cacheService.BusEnabled() {
			resp.Invalidation = "bus"
		}
	}
	return c.JSON(resp)
}

// NotFound answers unmatched routes
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    services.CodeNotFound,
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
