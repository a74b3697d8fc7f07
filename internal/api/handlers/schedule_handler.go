package handlers

import (
	"github.com/dkrasov/postline/internal/service"
	"github.com/dkrasov/postline/internal/transfer"
	"github.com/gofiber/fiber/v2"
)

type ScheduleHandler struct {
	s service.SchedulerService
}

func NewScheduleHandler(s service.SchedulerService) *ScheduleHandler {
	return &ScheduleHandler{s: s}
}

// Generate builds the tenant's schedule. mode=extend (default) appends after
// the latest pending item; mode=regenerate drops pending items first. A
// shortfall comes back inside the result, not as an error.
func (h *ScheduleHandler) Generate(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	var result *service.ScheduleResult
	var err error

	switch req.Mode {
	case "regenerate":
		result, err = h.s.Regenerate(c.Context(), tenantID, req.Days)
	case "extend", "":
		result, err = h.s.ExtendSchedule(c.Context(), tenantID, req.Days)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "mode must be extend or regenerate",
		})
	}
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(result)
}
