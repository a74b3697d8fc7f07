package job

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dkrasov/postline/internal/repository"
	"github.com/dkrasov/postline/internal/service"
)

// TickJob is the tenant loop driver. On every tick it fans out ProcessDue
// over active tenants and RescheduleOverdue over paused ones. It holds no
// business logic of its own; it is an enumeration and fault-isolation
// boundary: one tenant's failure never blocks another's.
type TickJob struct {
	tr repository.TenantRepository
	ds service.DeliveryService
	ls service.LockService

	defaultTenantID int64
	concurrency     int

	running sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewTickJob(
	tr repository.TenantRepository,
	ds service.DeliveryService,
	ls service.LockService,
	defaultTenantID int64,
	concurrency int) *TickJob {
	if concurrency <= 0 {
		concurrency = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TickJob{
		tr:              tr,
		ds:              ds,
		ls:              ls,
		defaultTenantID: defaultTenantID,
		concurrency:     concurrency,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Shutdown stops new work from starting; per-item work already in flight is
// allowed to finish so no item is left in processing without a record.
func (j *TickJob) Shutdown() {
	j.cancel()
}

func (j *TickJob) Run() {
	// A slow tick must not overlap the next one.
	if !j.running.TryLock() {
		slog.Warn("previous tick still running, skipping")
		return
	}
	defer j.running.Unlock()

	ctx := j.ctx
	if ctx.Err() != nil {
		return
	}

	active, err := j.tr.ListActive(ctx)
	if err != nil {
		slog.Error("failed to list active tenants", slog.String("error", err.Error()))
		return
	}

	paused, err := j.tr.ListPaused(ctx)
	if err != nil {
		slog.Error("failed to list paused tenants", slog.String("error", err.Error()))
		return
	}

	if len(active) == 0 && len(paused) == 0 && j.defaultTenantID != 0 {
		// Legacy single-tenant mode: no tenant registry, one global queue.
		j.processTenant(ctx, j.defaultTenantID)
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, j.concurrency)

	for _, tenant := range active {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(tenantID int64) {
			defer wg.Done()
			defer func() { <-semaphore }()
			j.processTenant(ctx, tenantID)
		}(tenant.TenantID)
	}

	for _, tenant := range paused {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(tenantID int64) {
			defer wg.Done()
			defer func() { <-semaphore }()
			j.rescheduleTenant(ctx, tenantID)
		}(tenant.TenantID)
	}

	wg.Wait()
}

// PurgeLocks is wired to a slower cron cadence than Run.
func (j *TickJob) PurgeLocks() {
	ctx := j.ctx
	if ctx.Err() != nil {
		return
	}

	purged, err := j.ls.PurgeExpired(ctx)
	if err != nil {
		slog.Error("lock purge failed", slog.String("error", err.Error()))
		return
	}
	if purged > 0 {
		slog.Info("expired locks purged", slog.Int64("count", purged))
	}
}

func (j *TickJob) processTenant(ctx context.Context, tenantID int64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while processing tenant",
				slog.Int64("tenant_id", tenantID),
				slog.Any("panic", r),
			)
		}
	}()

	summary, err := j.ds.ProcessDue(ctx, tenantID)
	if err != nil {
		slog.Error("tenant delivery failed",
			slog.Int64("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return
	}

	if summary.Processed > 0 || summary.Skipped > 0 {
		slog.Info("tenant tick complete",
			slog.Int64("tenant_id", tenantID),
			slog.Int("processed", summary.Processed),
			slog.Int("delivered", summary.Delivered),
			slog.Int("retried", summary.Retried),
			slog.Int("failed", summary.Failed),
			slog.Int("skipped", summary.Skipped),
		)
	}
}

func (j *TickJob) rescheduleTenant(ctx context.Context, tenantID int64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while rescheduling tenant",
				slog.Int64("tenant_id", tenantID),
				slog.Any("panic", r),
			)
		}
	}()

	count, err := j.ds.RescheduleOverdue(ctx, tenantID)
	if err != nil {
		slog.Error("overdue reschedule failed",
			slog.Int64("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return
	}

	if count > 0 {
		slog.Info("overdue items rescheduled",
			slog.Int64("tenant_id", tenantID),
			slog.Int64("count", count),
		)
	}
}
