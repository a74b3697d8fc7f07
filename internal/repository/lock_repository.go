package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/dkrasov/postline/internal/models"
)

type LockRepository interface {
	Create(ctx context.Context, lock *models.MediaLock) (int64, error)
	IsLocked(ctx context.Context, tenantID, mediaID int64, now time.Time) (bool, error)
	ListActiveMediaIDs(ctx context.Context, tenantID int64, now time.Time) ([]int64, error)
	ListActive(ctx context.Context, tenantID int64, now time.Time) ([]*models.MediaLock, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type lockRepository struct {
	db *sql.DB
}

func NewLockRepository(db *sql.DB) LockRepository {
	return &lockRepository{db: db}
}

func (r *lockRepository) Create(ctx context.Context, lock *models.MediaLock) (int64, error) {
	query := `
		INSERT INTO media_locks (tenant_id, media_id, locked_at, locked_until, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, lock.TenantID, lock.MediaID, lock.LockedAt, lock.LockedUntil, lock.Reason).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

// IsLocked reports whether a lock row exists with a null locked_until
// (permanent) or one still in the future.
func (r *lockRepository) IsLocked(ctx context.Context, tenantID, mediaID int64, now time.Time) (bool, error) {
	query := `
		SELECT 1 FROM media_locks
		WHERE tenant_id = $1 AND media_id = $2
		  AND (locked_until IS NULL OR locked_until > $3)
		LIMIT 1
	`

	var result int
	err := r.db.QueryRowContext(ctx, query, tenantID, mediaID, now).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *lockRepository) ListActiveMediaIDs(ctx context.Context, tenantID int64, now time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT media_id FROM media_locks
		WHERE tenant_id = $1
		  AND (locked_until IS NULL OR locked_until > $2)
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *lockRepository) ListActive(ctx context.Context, tenantID int64, now time.Time) ([]*models.MediaLock, error) {
	query := `
		SELECT id, tenant_id, media_id, locked_at, locked_until, reason FROM media_locks
		WHERE tenant_id = $1
		  AND (locked_until IS NULL OR locked_until > $2)
		ORDER BY locked_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var locks []*models.MediaLock
	for rows.Next() {
		var l models.MediaLock
		err := rows.Scan(&l.ID, &l.TenantID, &l.MediaID, &l.LockedAt, &l.LockedUntil, &l.Reason)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		locks = append(locks, &l)
	}
	return locks, rows.Err()
}

// PurgeExpired removes expired temporary locks. Permanent locks
// (locked_until IS NULL) are never purged.
func (r *lockRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM media_locks WHERE locked_until IS NOT NULL AND locked_until <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	count, _ := res.RowsAffected()
	return count, nil
}
