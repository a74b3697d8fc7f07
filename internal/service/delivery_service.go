package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dkrasov/postline/internal/channel"
	"github.com/dkrasov/postline/internal/locker"
	"github.com/dkrasov/postline/internal/models"
	"github.com/dkrasov/postline/internal/repository"
	"golang.org/x/time/rate"
)

const rescheduleStep = 24 * time.Hour

type DeliveryConfig struct {
	RetryCeiling int
	BackoffBase  time.Duration
	BackoffCap   time.Duration
	LockTTL      time.Duration
}

type DeliverySummary struct {
	Processed int `json:"processed"`
	Delivered int `json:"delivered"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

type DeliveryService interface {
	// ProcessDue delivers every due pending item for an active tenant, in
	// ascending scheduled order.
	ProcessDue(ctx context.Context, tenantID int64) (*DeliverySummary, error)
	// ProcessItem delivers a single item immediately (the manual "post now"
	// path). It goes through the same per-item claim as the tick loop.
	ProcessItem(ctx context.Context, tenantID, queueItemID int64) (*DeliverySummary, error)
	// RescheduleOverdue shifts a paused tenant's stale due items forward in
	// 24h steps so resuming does not trigger a delivery burst.
	RescheduleOverdue(ctx context.Context, tenantID int64) (int64, error)
}

type deliveryService struct {
	qr        repository.QueueRepository
	mr        repository.MediaRepository
	lr        repository.LockRepository
	hr        repository.PostingHistoryRepository
	tr        repository.TenantRepository
	primary   channel.Channel
	secondary channel.Channel
	locks     *locker.KeyedLock
	limiter   *rate.Limiter
	cfg       DeliveryConfig
}

func NewDeliveryService(
	qr repository.QueueRepository,
	mr repository.MediaRepository,
	lr repository.LockRepository,
	hr repository.PostingHistoryRepository,
	tr repository.TenantRepository,
	primary channel.Channel,
	secondary channel.Channel,
	locks *locker.KeyedLock,
	limiter *rate.Limiter,
	cfg DeliveryConfig) DeliveryService {
	if cfg.RetryCeiling <= 0 {
		cfg.RetryCeiling = 5
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 5 * time.Minute
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 6 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * 24 * time.Hour
	}
	return &deliveryService{
		qr:        qr,
		mr:        mr,
		lr:        lr,
		hr:        hr,
		tr:        tr,
		primary:   primary,
		secondary: secondary,
		locks:     locks,
		limiter:   limiter,
		cfg:       cfg,
	}
}

type itemOutcome int

const (
	outcomeSkipped itemOutcome = iota
	outcomeDelivered
	outcomeRetried
	outcomeFailed
)

func (s *deliveryService) ProcessDue(ctx context.Context, tenantID int64) (*DeliverySummary, error) {
	summary := &DeliverySummary{}

	cfg, err := s.tr.GetConfig(ctx, tenantID)
	if err != nil {
		return summary, err
	}
	if cfg == nil {
		return summary, ErrTenantNotConfigured
	}
	if cfg.IsPaused {
		return summary, nil
	}

	items, err := s.qr.ListDue(ctx, tenantID, time.Now().UTC())
	if err != nil {
		return summary, err
	}

	for _, item := range items {
		// Graceful shutdown: the item in flight finishes, but nothing new
		// starts once the context is gone.
		if ctx.Err() != nil {
			break
		}

		outcome, err := s.deliverOne(ctx, cfg, item)
		if err != nil {
			return summary, err
		}
		s.count(summary, outcome)
	}

	return summary, nil
}

func (s *deliveryService) ProcessItem(ctx context.Context, tenantID, queueItemID int64) (*DeliverySummary, error) {
	summary := &DeliverySummary{}

	item, err := s.qr.GetByID(ctx, queueItemID)
	if err != nil {
		return summary, err
	}
	if item == nil || item.TenantID != tenantID {
		return summary, &ValidationError{Reason: "queue item not found"}
	}

	cfg, err := s.tr.GetConfig(ctx, tenantID)
	if err != nil {
		return summary, err
	}
	if cfg == nil {
		return summary, ErrTenantNotConfigured
	}

	outcome, err := s.deliverOne(ctx, cfg, item)
	if err != nil {
		return summary, err
	}
	s.count(summary, outcome)
	return summary, nil
}

func (s *deliveryService) RescheduleOverdue(ctx context.Context, tenantID int64) (int64, error) {
	return s.qr.ShiftOverdue(ctx, tenantID, time.Now().UTC(), rescheduleStep)
}

func (s *deliveryService) count(summary *DeliverySummary, outcome itemOutcome) {
	switch outcome {
	case outcomeSkipped:
		summary.Skipped++
	case outcomeDelivered:
		summary.Processed++
		summary.Delivered++
	case outcomeRetried:
		summary.Processed++
		summary.Retried++
	case outcomeFailed:
		summary.Processed++
		summary.Failed++
	}
}

// deliverOne moves one queue item through processing to a terminal or retry
// state. The in-process keyed lock plus the database claim guarantee that no
// two paths (tick loop, post-now, another instance) finalize the same item.
func (s *deliveryService) deliverOne(ctx context.Context, tenant *models.TenantConfig, item *models.QueueItem) (itemOutcome, error) {
	if !s.locks.TryAcquire(item.ID) {
		return outcomeSkipped, nil
	}
	defer s.locks.Release(item.ID)

	claimed, err := s.qr.Claim(ctx, item.ID)
	if err != nil {
		return outcomeSkipped, err
	}
	if !claimed {
		// Another owner already resolved it; next tick picks up whatever
		// is left.
		return outcomeSkipped, nil
	}

	media, err := s.mr.GetByID(ctx, item.MediaID)
	if err != nil {
		return outcomeSkipped, err
	}
	if media == nil {
		return s.fail(ctx, item, "", errors.New("media item no longer exists"))
	}

	method, derr := s.attemptDelivery(ctx, tenant, media)
	if derr != nil {
		return s.fail(ctx, item, method, derr)
	}

	if err := s.finalizeSuccess(ctx, tenant, item, media, method); err != nil {
		return outcomeSkipped, err
	}

	slog.Info("queue item delivered",
		slog.Int64("tenant_id", tenant.TenantID),
		slog.Int64("queue_item_id", item.ID),
		slog.Int64("media_id", media.ID),
		slog.String("method", method),
	)
	return outcomeDelivered, nil
}

// attemptDelivery runs the hybrid delivery: primary channel first, and on a
// recoverable primary error the secondary (manual notification) channel,
// whose success is terminal success for the item. No lock is held across
// these calls beyond the per-item one.
func (s *deliveryService) attemptDelivery(ctx context.Context, tenant *models.TenantConfig, media *models.MediaItem) (string, error) {
	if tenant.DryRun {
		// Every step runs except the external call.
		return models.DeliveryMethodDryRun, nil
	}

	if !tenant.PrimaryEnabled {
		return s.secondary.Name(), s.secondary.Deliver(ctx, media, tenant)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return s.primary.Name(), channel.Recoverable(err)
		}
	}

	err := s.primary.Deliver(ctx, media, tenant)
	if err == nil {
		return s.primary.Name(), nil
	}
	if channel.Classify(err) != channel.ClassRecoverable {
		return s.primary.Name(), err
	}

	slog.Warn("primary delivery failed, falling back to manual channel",
		slog.Int64("tenant_id", tenant.TenantID),
		slog.Int64("media_id", media.ID),
		slog.String("error", err.Error()),
	)
	return s.secondary.Name(), s.secondary.Deliver(ctx, media, tenant)
}

func (s *deliveryService) finalizeSuccess(ctx context.Context, tenant *models.TenantConfig, item *models.QueueItem, media *models.MediaItem, method string) error {
	now := time.Now().UTC()

	if err := s.mr.IncrementTimesPosted(ctx, media.ID); err != nil {
		return err
	}

	until := now.Add(s.cfg.LockTTL)
	_, err := s.lr.Create(ctx, &models.MediaLock{
		TenantID:    tenant.TenantID,
		MediaID:     media.ID,
		LockedAt:    now,
		LockedUntil: &until,
		Reason:      models.LockReasonPosted,
	})
	if err != nil {
		return err
	}

	_, err = s.hr.Create(ctx, &models.PostingHistory{
		TenantID:       tenant.TenantID,
		MediaID:        media.ID,
		QueueItemID:    item.ID,
		PostedAt:       now,
		Status:         models.QueueStatusPosted,
		DeliveryMethod: method,
		Success:        true,
		RetryCount:     item.AttemptCount,
	})
	if err != nil {
		return err
	}

	return s.qr.MarkPosted(ctx, item.ID)
}

// fail applies the retry policy: recoverable errors are retried with
// exponential backoff until the ceiling; hard errors and exhausted retries
// become terminal with exactly one history row.
func (s *deliveryService) fail(ctx context.Context, item *models.QueueItem, method string, derr error) (itemOutcome, error) {
	attempts := item.AttemptCount + 1

	if channel.Classify(derr) == channel.ClassRecoverable && attempts < s.cfg.RetryCeiling {
		backoff := calculateBackoff(s.cfg.BackoffBase, s.cfg.BackoffCap, item.AttemptCount)
		retryAt := time.Now().UTC().Add(backoff)

		if err := s.qr.Release(ctx, item.ID, retryAt, attempts, derr.Error()); err != nil {
			return outcomeSkipped, err
		}

		slog.Warn("delivery failed, retry scheduled",
			slog.Int64("queue_item_id", item.ID),
			slog.Int("attempt", attempts),
			slog.Time("retry_at", retryAt),
			slog.String("error", derr.Error()),
		)
		return outcomeRetried, nil
	}

	if err := s.qr.MarkFailed(ctx, item.ID, derr.Error()); err != nil {
		return outcomeSkipped, err
	}

	_, err := s.hr.Create(ctx, &models.PostingHistory{
		TenantID:       item.TenantID,
		MediaID:        item.MediaID,
		QueueItemID:    item.ID,
		PostedAt:       time.Now().UTC(),
		Status:         models.QueueStatusFailed,
		DeliveryMethod: method,
		Success:        false,
		RetryCount:     attempts,
		ErrorMessage:   derr.Error(),
	})
	if err != nil {
		return outcomeSkipped, err
	}

	slog.Error("delivery failed terminally",
		slog.Int64("queue_item_id", item.ID),
		slog.Int("attempts", attempts),
		slog.String("error", derr.Error()),
	)
	return outcomeFailed, nil
}

// calculateBackoff is base*2^attempts capped, so retries spread out quickly
// but never beyond the cap.
func calculateBackoff(base, cap time.Duration, attempts int) time.Duration {
	delay := base
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay > cap {
			return cap
		}
	}
	return delay
}
