package models

import "time"

// CategoryRatio is a Type-2 slowly-changing-dimension row. Ratio changes
// close the current row and insert a new one; rows are never updated in
// place, so the full history of who changed what stays queryable.
type CategoryRatio struct {
	ID            int64      `db:"id" json:"id"`
	TenantID      int64      `db:"tenant_id" json:"tenant_id"`
	Category      string     `db:"category" json:"category"`
	Ratio         float64    `db:"ratio" json:"ratio"`
	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to"`
	IsCurrent     bool       `db:"is_current" json:"is_current"`
	ChangedBy     string     `db:"changed_by" json:"changed_by"`
}
