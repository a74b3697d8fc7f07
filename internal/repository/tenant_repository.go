package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dkrasov/postline/internal/models"
)

// TenantRepository reads the settings-owned tenant configuration. The core
// never writes it; pause/dry-run flags arrive as data on every call.
type TenantRepository interface {
	GetConfig(ctx context.Context, tenantID int64) (*models.TenantConfig, error)
	ListActive(ctx context.Context) ([]*models.TenantConfig, error)
	ListPaused(ctx context.Context) ([]*models.TenantConfig, error)
}

type tenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) TenantRepository {
	return &tenantRepository{db: db}
}

const tenantColumns = `tenant_id, posts_per_day, window_start_hour, window_end_hour, is_paused, dry_run, primary_enabled, webhook_url, created_at, updated_at`

func scanTenant(row interface{ Scan(...any) error }) (*models.TenantConfig, error) {
	var t models.TenantConfig
	err := row.Scan(&t.TenantID, &t.PostsPerDay, &t.WindowStartHour, &t.WindowEndHour,
		&t.IsPaused, &t.DryRun, &t.PrimaryEnabled, &t.WebhookURL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepository) GetConfig(ctx context.Context, tenantID int64) (*models.TenantConfig, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenant_configs WHERE tenant_id = $1`
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return t, nil
}

func (r *tenantRepository) ListActive(ctx context.Context) ([]*models.TenantConfig, error) {
	return r.list(ctx, false)
}

func (r *tenantRepository) ListPaused(ctx context.Context) ([]*models.TenantConfig, error) {
	return r.list(ctx, true)
}

func (r *tenantRepository) list(ctx context.Context, paused bool) ([]*models.TenantConfig, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenant_configs WHERE is_paused = $1 ORDER BY tenant_id`
	rows, err := r.db.QueryContext(ctx, query, paused)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var tenants []*models.TenantConfig
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}
