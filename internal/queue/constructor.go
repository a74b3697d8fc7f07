package queue

import (
	"github.com/dkrasov/postline/internal/service"
)

// Queue handles out-of-band delivery tasks. A "post now" action from the
// chat layer rides asynq and races the tick loop through the same per-item
// claim, so double delivery is impossible no matter which path wins.
type Queue struct {
	ds service.DeliveryService
}

func NewQueue(ds service.DeliveryService) *Queue {
	return &Queue{ds: ds}
}

const TaskTypePostNow = "queue:post_now"

type PostNowPayload struct {
	TenantID    int64 `json:"tenant_id"`
	QueueItemID int64 `json:"queue_item_id"`
}
