package handlers

import (
	"strconv"

	"github.com/dkrasov/postline/internal/queue"
	"github.com/dkrasov/postline/internal/service"
	"github.com/dkrasov/postline/internal/transfer"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
)

type QueueHandler struct {
	qs     service.QueueService
	ds     service.DeliveryService
	ls     service.LockService
	client *asynq.Client
}

func NewQueueHandler(qs service.QueueService, ds service.DeliveryService, ls service.LockService, client *asynq.Client) *QueueHandler {
	return &QueueHandler{qs: qs, ds: ds, ls: ls, client: client}
}

func (h *QueueHandler) ListQueue(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	items, err := h.qs.List(c.Context(), tenantID, c.Query("status"))
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"items": items})
}

func (h *QueueHandler) ListHistory(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := h.qs.History(c.Context(), tenantID, limit)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"records": records})
}

// PostNow hands the item to the out-of-band delivery path. The response only
// confirms the enqueue; the claim decides who actually delivers.
func (h *QueueHandler) PostNow(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	var req transfer.PostNowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	err := queue.EnqueuePostNow(h.client, queue.PostNowPayload{
		TenantID:    tenantID,
		QueueItemID: req.QueueItemID,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to enqueue post-now task",
		})
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// Reject permanently locks a media item for this tenant.
func (h *QueueHandler) Reject(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	var req transfer.RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if err := h.ls.Reject(c.Context(), tenantID, req.MediaID); err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *QueueHandler) ListLocks(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	locks, err := h.ls.ListActive(c.Context(), tenantID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"locks": locks})
}

// RunDelivery forces a ProcessDue pass outside the tick, synchronously.
func (h *QueueHandler) RunDelivery(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)

	summary, err := h.ds.ProcessDue(c.Context(), tenantID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(summary)
}
