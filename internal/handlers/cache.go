package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dicdwatch/dicdwatch/internal/models"
	"github.com/dicdwatch/dicdwatch/internal/services"
)

// InvalidateCache drops cached source data here and on every other instance
// POST /v1/cache/invalidate
func (h *Handler) InvalidateCache(c *fiber.Ctx) error {
	var body models.InvalidateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return h.invalidJSON(c, err)
		}
	}

	resp, err := h.cacheService.Invalidate(c.UserContext(), &body)
	if err != nil {
		if svcErr, ok := services.AsServiceError(err); ok && svcErr.Code == services.CodePublishFailed {
			if svcErr.Details == nil {
				svcErr.Details = map[string]interface{}{}
			}
			svcErr.Details["removed"] = resp.Removed
		}
		return h.serviceError(c, err)
	}

	return c.JSON(resp)
}

// CacheStats returns per-resource cache statistics
// GET /v1/cache/stats
func (h *Handler) CacheStats(c *fiber.Ctx) error {
	return c.JSON(h.cacheService.Stats())
}
