package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/analytics/distribution"
	"github.com/dicdwatch/dicdwatch/internal/analytics/spc"
	"github.com/dicdwatch/dicdwatch/internal/models"
)

// Distribution handles distribution summaries
// POST /v1/analysis/distribution
func (h *Handler) Distribution(c *fiber.Ctx) error {
	var body models.DistributionRequest
	if err := c.BodyParser(&body); err != nil {
		return h.invalidJSON(c, err)
	}

	if err := body.Validate(); err != nil {
		return h.badRequest(c, err)
	}

	return c.JSON(h.analysisService.Distribution(&body))
}

// Patterns handles violation-to-position mapping
// POST /v1/analysis/patterns
func (h *Handler) Patterns(c *fiber.Ctx) error {
	var body models.PatternsRequest
	if err := c.BodyParser(&body); err != nil {
		return h.invalidJSON(c, err)
	}

	if err := body.Validate(); err != nil {
		return h.badRequest(c, err)
	}

	resp, err := h.analysisService.Patterns(&body)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(resp)
}

// Quantile handles standard normal quantile lookups
// GET /v1/analysis/quantile?p=0.975
func (h *Handler) Quantile(c *fiber.Ctx) error {
	p, err := strconv.ParseFloat(c.Query("p"), 64)
	if err != nil {
		return h.badRequest(c, errors.New("p must be a number in (0, 1)"))
	}

	z, err := distribution.NormalQuantile(p)
	if err != nil {
		code := "INVALID_REQUEST"
		if errors.Is(err, analytics.ErrDomain) {
			code = "DOMAIN_ERROR"
		}
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    code,
				Message: err.Error(),
			},
		})
	}

	return c.JSON(models.QuantileResponse{P: p, Z: z})
}

// ClassifyCapability handles capability index classification
// GET /v1/capability/classify?value=1.2
// A missing or non-finite value is classified as unavailable.
func (h *Handler) ClassifyCapability(c *fiber.Ctx) error {
	raw := c.Query("value")
	if raw == "" {
		return c.JSON(models.CapabilityResponse{Band: spc.CapabilityUnavailable})
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return h.badRequest(c, errors.New("value must be a number"))
	}

	resp := models.CapabilityResponse{Band: spc.ClassifyCapability(v)}
	if analytics.IsFinite(v) {
		resp.Value = &v
	}
	return c.JSON(resp)
}
