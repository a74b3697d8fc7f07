package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dkrasov/postline/internal/models"
)

type PostingHistoryRepository interface {
	Create(ctx context.Context, ph *models.PostingHistory) (int64, error)
	ListByTenant(ctx context.Context, tenantID int64, limit int) ([]*models.PostingHistory, error)
}

type postingHistoryRepository struct {
	db *sql.DB
}

func NewPostingHistoryRepository(db *sql.DB) PostingHistoryRepository {
	return &postingHistoryRepository{db: db}
}

func (r *postingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	query := `
		INSERT INTO posting_history (tenant_id, media_id, queue_item_id, posted_at, status, delivery_method, success, retry_count, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, ph.TenantID, ph.MediaID, ph.QueueItemID, ph.PostedAt,
		ph.Status, ph.DeliveryMethod, ph.Success, ph.RetryCount, ph.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postingHistoryRepository) ListByTenant(ctx context.Context, tenantID int64, limit int) ([]*models.PostingHistory, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, tenant_id, media_id, queue_item_id, posted_at, status, delivery_method, success, retry_count, error_message
		FROM posting_history
		WHERE tenant_id = $1
		ORDER BY posted_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var records []*models.PostingHistory
	for rows.Next() {
		var ph models.PostingHistory
		err := rows.Scan(&ph.ID, &ph.TenantID, &ph.MediaID, &ph.QueueItemID, &ph.PostedAt,
			&ph.Status, &ph.DeliveryMethod, &ph.Success, &ph.RetryCount, &ph.ErrorMessage)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		records = append(records, &ph)
	}
	return records, rows.Err()
}
