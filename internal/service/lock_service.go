package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dkrasov/postline/internal/models"
	"github.com/dkrasov/postline/internal/repository"
)

type LockService interface {
	// Reject permanently suppresses a media item for a tenant ("never post
	// this again") and drops any pending queue entries for it.
	Reject(ctx context.Context, tenantID, mediaID int64) error
	ListActive(ctx context.Context, tenantID int64) ([]*models.MediaLock, error)
	// PurgeExpired removes expired temporary locks so the table does not
	// grow without bound. Selection filters them out anyway; this is
	// housekeeping, not correctness.
	PurgeExpired(ctx context.Context) (int64, error)
}

type lockService struct {
	lr repository.LockRepository
	qr repository.QueueRepository
	mr repository.MediaRepository
}

func NewLockService(lr repository.LockRepository, qr repository.QueueRepository, mr repository.MediaRepository) LockService {
	return &lockService{lr: lr, qr: qr, mr: mr}
}

func (s *lockService) Reject(ctx context.Context, tenantID, mediaID int64) error {
	media, err := s.mr.GetByID(ctx, mediaID)
	if err != nil {
		return err
	}
	if media == nil {
		return &ValidationError{Reason: "media item not found"}
	}

	// LockedUntil stays nil: that is the only representation of permanent.
	_, err = s.lr.Create(ctx, &models.MediaLock{
		TenantID: tenantID,
		MediaID:  mediaID,
		LockedAt: time.Now().UTC(),
		Reason:   models.LockReasonRejected,
	})
	if err != nil {
		return err
	}

	removed, err := s.qr.DeletePendingByMedia(ctx, tenantID, mediaID)
	if err != nil {
		return err
	}

	slog.Info("media rejected",
		slog.Int64("tenant_id", tenantID),
		slog.Int64("media_id", mediaID),
		slog.Int64("queue_items_removed", removed),
	)
	return nil
}

func (s *lockService) ListActive(ctx context.Context, tenantID int64) ([]*models.MediaLock, error) {
	return s.lr.ListActive(ctx, tenantID, time.Now().UTC())
}

func (s *lockService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.lr.PurgeExpired(ctx, time.Now().UTC())
}
