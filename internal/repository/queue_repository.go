package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/dkrasov/postline/internal/models"
)

type QueueRepository interface {
	GetByID(ctx context.Context, id int64) (*models.QueueItem, error)
	CreateBatch(ctx context.Context, items []*models.QueueItem) error
	ListByTenant(ctx context.Context, tenantID int64, status string) ([]*models.QueueItem, error)
	ListDue(ctx context.Context, tenantID int64, now time.Time) ([]*models.QueueItem, error)
	ListPendingMediaIDs(ctx context.Context, tenantID int64) ([]int64, error)
	LatestScheduled(ctx context.Context, tenantID int64) (*time.Time, error)
	Claim(ctx context.Context, id int64) (bool, error)
	Release(ctx context.Context, id int64, scheduledFor time.Time, attemptCount int, lastError string) error
	MarkPosted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, lastError string) error
	ShiftOverdue(ctx context.Context, tenantID int64, now time.Time, step time.Duration) (int64, error)
	ClearPending(ctx context.Context, tenantID int64) (int64, error)
	DeletePendingByMedia(ctx context.Context, tenantID, mediaID int64) (int64, error)
}

type queueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) QueueRepository {
	return &queueRepository{db: db}
}

const queueColumns = `id, tenant_id, media_id, batch_id, scheduled_for, status, attempt_count, last_error, created_at, updated_at`

func scanQueueItem(row interface{ Scan(...any) error }) (*models.QueueItem, error) {
	var item models.QueueItem
	err := row.Scan(&item.ID, &item.TenantID, &item.MediaID, &item.BatchID, &item.ScheduledFor,
		&item.Status, &item.AttemptCount, &item.LastError, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *queueRepository) GetByID(ctx context.Context, id int64) (*models.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_items WHERE id = $1`
	item, err := scanQueueItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return item, nil
}

// CreateBatch inserts a generation batch in one transaction so a schedule is
// never half-visible to a concurrent reader. Item IDs are filled in place.
func (r *queueRepository) CreateBatch(ctx context.Context, items []*models.QueueItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := `
		INSERT INTO queue_items (tenant_id, media_id, batch_id, scheduled_for, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	for _, item := range items {
		if err = tx.QueryRowContext(ctx, query, item.TenantID, item.MediaID, item.BatchID, item.ScheduledFor, item.Status).Scan(&item.ID); err != nil {
			slog.Info(err.Error())
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queueRepository) ListByTenant(ctx context.Context, tenantID int64, status string) ([]*models.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_items WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY scheduled_for ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectQueueItems(rows)
}

func (r *queueRepository) ListDue(ctx context.Context, tenantID int64, now time.Time) ([]*models.QueueItem, error) {
	query := `
		SELECT ` + queueColumns + ` FROM queue_items
		WHERE tenant_id = $1 AND status = $2 AND scheduled_for <= $3
		ORDER BY scheduled_for ASC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, models.QueueStatusPending, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectQueueItems(rows)
}

func collectQueueItems(rows *sql.Rows) ([]*models.QueueItem, error) {
	var items []*models.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *queueRepository) ListPendingMediaIDs(ctx context.Context, tenantID int64) ([]int64, error) {
	query := `
		SELECT media_id FROM queue_items
		WHERE tenant_id = $1 AND status IN ($2, $3)
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, models.QueueStatusPending, models.QueueStatusProcessing)
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

func (r *queueRepository) LatestScheduled(ctx context.Context, tenantID int64) (*time.Time, error) {
	query := `
		SELECT scheduled_for FROM queue_items
		WHERE tenant_id = $1 AND status = $2
		ORDER BY scheduled_for DESC
		LIMIT 1
	`

	var t time.Time
	err := r.db.QueryRowContext(ctx, query, tenantID, models.QueueStatusPending).Scan(&t)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &t, nil
}

// Claim is the compare-and-swap transition pending -> processing. It returns
// false when another owner (a concurrent tick, a post-now action, or another
// process instance) already claimed the item.
func (r *queueRepository) Claim(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE queue_items
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING id
	`

	var claimed int64
	err := r.db.QueryRowContext(ctx, query, models.QueueStatusProcessing, time.Now(), id, models.QueueStatusPending).Scan(&claimed)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return true, nil
}

// Release puts a claimed item back to pending with a new due time, used for
// retry-with-backoff after a recoverable failure.
func (r *queueRepository) Release(ctx context.Context, id int64, scheduledFor time.Time, attemptCount int, lastError string) error {
	query := `
		UPDATE queue_items
		SET status = $1, scheduled_for = $2, attempt_count = $3, last_error = $4, updated_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query, models.QueueStatusPending, scheduledFor, attemptCount, lastError, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queueRepository) MarkPosted(ctx context.Context, id int64) error {
	query := `
		UPDATE queue_items
		SET status = $1, last_error = '', updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, models.QueueStatusPosted, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queueRepository) MarkFailed(ctx context.Context, id int64, lastError string) error {
	query := `
		UPDATE queue_items
		SET status = $1, last_error = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.QueueStatusFailed, lastError, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ShiftOverdue advances every due pending item by whole multiples of step
// until it lands in the future, all in one transaction. Used for paused
// tenants so resuming never triggers a burst of simultaneous deliveries.
func (r *queueRepository) ShiftOverdue(ctx context.Context, tenantID int64, now time.Time, step time.Duration) (int64, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	selectQuery := `
		SELECT id, scheduled_for FROM queue_items
		WHERE tenant_id = $1 AND status = $2 AND scheduled_for <= $3
		ORDER BY scheduled_for ASC
		FOR UPDATE
	`
	rows, err := tx.QueryContext(ctx, selectQuery, tenantID, models.QueueStatusPending, now)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	type shift struct {
		id           int64
		scheduledFor time.Time
	}
	var shifts []shift
	for rows.Next() {
		var sh shift
		if err = rows.Scan(&sh.id, &sh.scheduledFor); err != nil {
			rows.Close()
			slog.Info(err.Error())
			return 0, err
		}
		shifts = append(shifts, sh)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	updateQuery := `UPDATE queue_items SET scheduled_for = $1, updated_at = $2 WHERE id = $3`
	for _, sh := range shifts {
		steps := int64(now.Sub(sh.scheduledFor)/step) + 1
		newTime := sh.scheduledFor.Add(time.Duration(steps) * step)
		if _, err = tx.ExecContext(ctx, updateQuery, newTime, time.Now(), sh.id); err != nil {
			slog.Info(err.Error())
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return int64(len(shifts)), nil
}

func (r *queueRepository) ClearPending(ctx context.Context, tenantID int64) (int64, error) {
	query := `DELETE FROM queue_items WHERE tenant_id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, tenantID, models.QueueStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	count, _ := res.RowsAffected()
	return count, nil
}

func (r *queueRepository) DeletePendingByMedia(ctx context.Context, tenantID, mediaID int64) (int64, error) {
	query := `DELETE FROM queue_items WHERE tenant_id = $1 AND media_id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, tenantID, mediaID, models.QueueStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	count, _ := res.RowsAffected()
	return count, nil
}
