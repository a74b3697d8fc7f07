package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dkrasov/postline/internal/service"
	"github.com/hibiken/asynq"
)

func (q *Queue) HandlePostNowTask(ctx context.Context, task *asynq.Task) error {
	var payload PostNowPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	summary, err := q.ds.ProcessItem(ctx, payload.TenantID, payload.QueueItemID)
	if err != nil {
		if service.IsValidation(err) {
			// The item is gone or belongs to someone else; retrying the
			// task cannot fix that.
			slog.Info(err.Error())
			return nil
		}
		return err
	}

	if summary.Skipped > 0 {
		// Another owner (a tick, or a second button press) got there first.
		slog.Info("post-now skipped, item already claimed",
			slog.Int64("queue_item_id", payload.QueueItemID),
		)
	}
	return nil
}
