package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"time"

	"github.com/dkrasov/postline/internal/models"
)

type RatioRepository interface {
	GetCurrent(ctx context.Context, tenantID int64) ([]*models.CategoryRatio, error)
	ListHistory(ctx context.Context, tenantID int64) ([]*models.CategoryRatio, error)
	ReplaceCurrent(ctx context.Context, tenantID int64, ratios map[string]float64, changedBy string, now time.Time) error
}

type ratioRepository struct {
	db *sql.DB
}

func NewRatioRepository(db *sql.DB) RatioRepository {
	return &ratioRepository{db: db}
}

const ratioColumns = `id, tenant_id, category, ratio, effective_from, effective_to, is_current, changed_by`

func (r *ratioRepository) GetCurrent(ctx context.Context, tenantID int64) ([]*models.CategoryRatio, error) {
	query := `SELECT ` + ratioColumns + ` FROM category_ratios WHERE tenant_id = $1 AND is_current = true`
	return r.list(ctx, query, tenantID)
}

func (r *ratioRepository) ListHistory(ctx context.Context, tenantID int64) ([]*models.CategoryRatio, error) {
	query := `SELECT ` + ratioColumns + ` FROM category_ratios WHERE tenant_id = $1 ORDER BY effective_from DESC`
	return r.list(ctx, query, tenantID)
}

func (r *ratioRepository) list(ctx context.Context, query string, tenantID int64) ([]*models.CategoryRatio, error) {
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ratios []*models.CategoryRatio
	for rows.Next() {
		var cr models.CategoryRatio
		err := rows.Scan(&cr.ID, &cr.TenantID, &cr.Category, &cr.Ratio, &cr.EffectiveFrom, &cr.EffectiveTo, &cr.IsCurrent, &cr.ChangedBy)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ratios = append(ratios, &cr)
	}
	return ratios, rows.Err()
}

// ReplaceCurrent closes every current row for the tenant and opens a new
// current row per category, all in one transaction so a concurrent reader
// never sees a half-applied ratio set (Type-2 SCD: no in-place updates).
func (r *ratioRepository) ReplaceCurrent(ctx context.Context, tenantID int64, ratios map[string]float64, changedBy string, now time.Time) error {
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

	closeQuery := `
		UPDATE category_ratios
		SET effective_to = $1, is_current = false
		WHERE tenant_id = $2 AND is_current = true
	`
	if _, err = tx.ExecContext(ctx, closeQuery, now, tenantID); err != nil {
		slog.Info(err.Error())
		return err
	}

	insertQuery := `
		INSERT INTO category_ratios (tenant_id, category, ratio, effective_from, is_current, changed_by)
		VALUES ($1, $2, $3, $4, true, $5)
	`

	categories := make([]string, 0, len(ratios))
	for category := range ratios {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		if _, err = tx.ExecContext(ctx, insertQuery, tenantID, category, ratios[category], now, changedBy); err != nil {
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
