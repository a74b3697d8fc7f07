package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dkrasov/postline/internal/models"
)

// MediaRepository is the read side of the ingestion-owned media table.
// The only write the core performs is the times_posted increment.
type MediaRepository interface {
	GetByID(ctx context.Context, id int64) (*models.MediaItem, error)
	ListActive(ctx context.Context) ([]*models.MediaItem, error)
	ListActiveByCategory(ctx context.Context, category string) ([]*models.MediaItem, error)
	IncrementTimesPosted(ctx context.Context, id int64) error
}

type mediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) MediaRepository {
	return &mediaRepository{db: db}
}

const mediaColumns = `id, fingerprint, category, times_posted, is_active, created_at`

func (r *mediaRepository) GetByID(ctx context.Context, id int64) (*models.MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var m models.MediaItem
	err := row.Scan(&m.ID, &m.Fingerprint, &m.Category, &m.TimesPosted, &m.IsActive, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &m, nil
}

func (r *mediaRepository) ListActive(ctx context.Context) ([]*models.MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE is_active = true`
	return r.list(ctx, query)
}

func (r *mediaRepository) ListActiveByCategory(ctx context.Context, category string) ([]*models.MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE is_active = true AND category = $1`
	return r.list(ctx, query, category)
}

func (r *mediaRepository) list(ctx context.Context, query string, args ...any) ([]*models.MediaItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var items []*models.MediaItem
	for rows.Next() {
		var m models.MediaItem
		err := rows.Scan(&m.ID, &m.Fingerprint, &m.Category, &m.TimesPosted, &m.IsActive, &m.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

func (r *mediaRepository) IncrementTimesPosted(ctx context.Context, id int64) error {
	query := `UPDATE media_items SET times_posted = times_posted + 1 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
