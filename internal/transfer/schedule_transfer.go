package transfer

type ScheduleRequest struct {
	Days int    `json:"days"`
	Mode string `json:"mode"` // extend (default) or regenerate
}

type PostNowRequest struct {
	QueueItemID int64 `json:"queue_item_id"`
}

type RejectRequest struct {
	MediaID int64 `json:"media_id"`
}

type RatiosUpdate struct {
	Ratios map[string]float64 `json:"ratios"`
}
