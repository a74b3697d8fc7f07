package queue

import (
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

func EnqueuePostNow(asynqClient *asynq.Client, payload PostNowPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePostNow, taskPayload)

	_, err = asynqClient.Enqueue(task)
	if err != nil {
		return err
	}

	slog.Info("post-now task enqueued",
		slog.Int64("tenant_id", payload.TenantID),
		slog.Int64("queue_item_id", payload.QueueItemID),
	)
	return nil
}
