package channel

import (
	"context"
	"log/slog"

	"github.com/dkrasov/postline/internal/models"
)

// NotifyChannel is the secondary, manual channel. It records a notification
// for a human operator who completes the delivery out-of-band; from the
// pipeline's point of view a successful notification is a terminal success.
type NotifyChannel struct {
	logger *slog.Logger
}

func NewNotifyChannel(logger *slog.Logger) *NotifyChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyChannel{logger: logger}
}

func (c *NotifyChannel) Name() string { return "manual" }

func (c *NotifyChannel) Deliver(ctx context.Context, media *models.MediaItem, tenant *models.TenantConfig) error {
	if err := ctx.Err(); err != nil {
		return Hard(err)
	}

	c.logger.Warn("manual delivery required",
		slog.Int64("tenant_id", tenant.TenantID),
		slog.Int64("media_id", media.ID),
		slog.String("fingerprint", media.Fingerprint),
	)
	return nil
}
