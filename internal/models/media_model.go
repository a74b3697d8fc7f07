package models

import "time"

// MediaItem is owned by the ingestion layer. The core reads it and only
// ever increments TimesPosted after a successful delivery.
type MediaItem struct {
	ID          int64     `db:"id" json:"id"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	Category    string    `db:"category" json:"category"`
	TimesPosted int       `db:"times_posted" json:"times_posted"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
