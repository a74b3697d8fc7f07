package handlers

import (
	"strconv"

	"github.com/dkrasov/postline/internal/service"
	"github.com/gofiber/fiber/v2"
)

func GetTenantID(c *fiber.Ctx) int64 {
	tenantID, _ := strconv.Atoi(c.Locals("tenant_id").(string))
	return int64(tenantID)
}

// errorStatus maps core errors onto HTTP: validation problems are the
// caller's fault, everything else is ours.
func errorStatus(err error) int {
	if service.IsValidation(err) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
