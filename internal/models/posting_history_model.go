package models

import "time"

// PostingHistory is append-only: exactly one row per terminal queue item
// outcome, success or failure. Rows are never mutated.
type PostingHistory struct {
	ID             int64     `db:"id" json:"id"`
	TenantID       int64     `db:"tenant_id" json:"tenant_id"`
	MediaID        int64     `db:"media_id" json:"media_id"`
	QueueItemID    int64     `db:"queue_item_id" json:"queue_item_id"`
	PostedAt       time.Time `db:"posted_at" json:"posted_at"`
	Status         string    `db:"status" json:"status"`
	DeliveryMethod string    `db:"delivery_method" json:"delivery_method"`
	Success        bool      `db:"success" json:"success"`
	RetryCount     int       `db:"retry_count" json:"retry_count"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
}

const (
	DeliveryMethodWebhook = "webhook"
	DeliveryMethodManual  = "manual"
	DeliveryMethodDryRun  = "dry_run"
)
