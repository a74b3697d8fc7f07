package models

import "time"

type QueueItem struct {
	ID           int64     `db:"id" json:"id"`
	TenantID     int64     `db:"tenant_id" json:"tenant_id"`
	MediaID      int64     `db:"media_id" json:"media_id"`
	BatchID      string    `db:"batch_id" json:"batch_id"`
	ScheduledFor time.Time `db:"scheduled_for" json:"scheduled_for"`
	Status       string    `db:"status" json:"status"` // pending, processing, posted, failed
	AttemptCount int       `db:"attempt_count" json:"attempt_count"`
	LastError    string    `db:"last_error" json:"last_error"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusPosted     = "posted"
	QueueStatusFailed     = "failed"
)
