package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/analytics/distribution"
	"github.com/dicdwatch/dicdwatch/internal/logging"
	"github.com/dicdwatch/dicdwatch/internal/models"
	"github.com/dicdwatch/dicdwatch/internal/services"
)

// EntitySPC handles stored-data SPC analysis
// GET /v1/entities/:entity_id/spc?days=N or ?start_time=xxx&end_time=xxx
// Optional violations=rule:position[:length],... replaces rule detection.
func (h *Handler) EntitySPC(c *fiber.Ctx) error {
	input := models.NewEntitySPCQuery(
		c.Params("entity_id"),
		c.Query("days"),
		c.Query("start_time"),
		c.Query("end_time"),
	)

	if err := input.Validate(h.location, h.analysis.DefaultDays, h.analysis.MaxDays); err != nil {
		return h.badRequest(c, err)
	}

	violations, err := parseViolations(c.Query("violations"))
	if err != nil {
		return h.badRequest(c, err)
	}

	window, err := h.analysisService.ResolveWindow(input)
	if err != nil {
		return h.serviceError(c, err)
	}

	ctx := logging.WithEntityID(c.UserContext(), input.EntityID)
	report, err := h.analysisService.Analyze(ctx, services.AnalyzeRequest{
		EntityID:   input.EntityID,
		Window:     window,
		Violations: violations,
	})
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(report)
}

// AnalyzeSPC handles inline SPC analysis
// POST /v1/analysis/spc
func (h *Handler) AnalyzeSPC(c *fiber.Ctx) error {
	var body models.SPCRequest
	if err := c.BodyParser(&body); err != nil {
		return h.invalidJSON(c, err)
	}

	if err := body.Validate(); err != nil {
		return h.badRequest(c, err)
	}

	report := h.analysisService.Evaluate(services.AnalysisInput{
		Series:     body.Samples,
		Subgroups:  body.SubgroupSeries(),
		Spec:       body.Spec,
		Limits:     body.Limits,
		Violations: body.Violations,
		Capability: body.Capability,
		Options: &distribution.Options{
			HistogramBins: body.HistogramBins,
			CurvePoints:   body.CurvePoints,
		},
	})

	return c.JSON(report)
}

// parseViolations parses "rule:position[:length]" items separated by commas
func parseViolations(raw string) ([]analytics.PatternViolation, error) {
	if raw == "" {
		return nil, nil
	}

	items := strings.Split(raw, ",")
	out := make([]analytics.PatternViolation, 0, len(items))
	for _, item := range items {
		parts := strings.Split(strings.TrimSpace(item), ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: "violations must be rule:position[:length], got " + item,
			}
		}

		nums := make([]int, len(parts))
		for i, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, &fiber.Error{
					Code:    fiber.StatusBadRequest,
					Message: "violations must contain integers, got " + item,
				}
			}
			nums[i] = n
		}

		v := analytics.PatternViolation{Rule: nums[0], Position: nums[1]}
		if len(nums) == 3 {
			v.Length = nums[2]
		}
		out = append(out, v)
	}
	return out, nil
}
