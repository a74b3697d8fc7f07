package service

import (
	"context"

	"github.com/dkrasov/postline/internal/models"
	"github.com/dkrasov/postline/internal/repository"
)

// QueueService exposes the read-only queue and history views the chat layer
// renders. It performs no transitions.
type QueueService interface {
	List(ctx context.Context, tenantID int64, status string) ([]*models.QueueItem, error)
	History(ctx context.Context, tenantID int64, limit int) ([]*models.PostingHistory, error)
}

type queueService struct {
	qr repository.QueueRepository
	hr repository.PostingHistoryRepository
}

func NewQueueService(qr repository.QueueRepository, hr repository.PostingHistoryRepository) QueueService {
	return &queueService{qr: qr, hr: hr}
}

func (s *queueService) List(ctx context.Context, tenantID int64, status string) ([]*models.QueueItem, error) {
	switch status {
	case "", models.QueueStatusPending, models.QueueStatusProcessing, models.QueueStatusPosted, models.QueueStatusFailed:
	default:
		return nil, &ValidationError{Reason: "unknown queue status"}
	}
	return s.qr.ListByTenant(ctx, tenantID, status)
}

func (s *queueService) History(ctx context.Context, tenantID int64, limit int) ([]*models.PostingHistory, error) {
	return s.hr.ListByTenant(ctx, tenantID, limit)
}
