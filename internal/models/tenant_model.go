package models

import "time"

// TenantConfig is owned by the settings layer; the core only reads it.
// Window hours are UTC; WindowEndHour <= WindowStartHour means the window
// wraps past midnight.
type TenantConfig struct {
	TenantID        int64     `db:"tenant_id" json:"tenant_id"`
	PostsPerDay     int       `db:"posts_per_day" json:"posts_per_day"`
	WindowStartHour int       `db:"window_start_hour" json:"window_start_hour"`
	WindowEndHour   int       `db:"window_end_hour" json:"window_end_hour"`
	IsPaused        bool      `db:"is_paused" json:"is_paused"`
	DryRun          bool      `db:"dry_run" json:"dry_run"`
	PrimaryEnabled  bool      `db:"primary_enabled" json:"primary_enabled"`
	WebhookURL      string    `db:"webhook_url" json:"webhook_url"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
