package handlers

import (
	"github.com/dkrasov/postline/internal/service"
	"github.com/dkrasov/postline/internal/transfer"
	"github.com/gofiber/fiber/v2"
)

type RatioHandler struct {
	s service.RatioService
}

func NewRatioHandler(s service.RatioService) *RatioHandler {
	return &RatioHandler{s: s}
}

func (h *RatioHandler) GetCurrent(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	ratios, err := h.s.GetCurrent(c.Context(), tenantID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"ratios": ratios})
}

func (h *RatioHandler) UpdateRatios(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	var req transfer.RatiosUpdate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if err := h.s.SetRatios(c.Context(), tenantID, req.Ratios, c.Locals("tenant_id").(string)); err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *RatioHandler) History(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	rows, err := h.s.History(c.Context(), tenantID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"history": rows})
}
