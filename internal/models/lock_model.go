package models

import "time"

// MediaLock suppresses a media item from selection for one tenant.
// LockedUntil == nil is the only representation of a permanent lock;
// callers must never substitute a far-future sentinel date.
type MediaLock struct {
	ID          int64      `db:"id" json:"id"`
	TenantID    int64      `db:"tenant_id" json:"tenant_id"`
	MediaID     int64      `db:"media_id" json:"media_id"`
	LockedAt    time.Time  `db:"locked_at" json:"locked_at"`
	LockedUntil *time.Time `db:"locked_until" json:"locked_until"`
	Reason      string     `db:"reason" json:"reason"`
}

const (
	LockReasonPosted   = "posted"
	LockReasonRejected = "rejected"
)
