package service

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/dkrasov/postline/internal/models"
	"github.com/dkrasov/postline/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ScheduleResult reports how a generation batch went. Shortfall > 0 means the
// eligible pool ran out before every slot was filled; that is a valid partial
// outcome, not an error.
type ScheduleResult struct {
	BatchID   string              `json:"batch_id"`
	Requested int                 `json:"requested"`
	Scheduled int                 `json:"scheduled"`
	Shortfall int                 `json:"shortfall"`
	Cleared   int64               `json:"cleared,omitempty"`
	Items     []*models.QueueItem `json:"items"`
}

type SchedulerService interface {
	// GenerateSchedule appends queue items for the next `days` days. It only
	// ever adds; clearing existing items is the caller's concern.
	GenerateSchedule(ctx context.Context, tenantID int64, days int, from *time.Time) (*ScheduleResult, error)
	// ExtendSchedule appends after the latest already-scheduled item.
	ExtendSchedule(ctx context.Context, tenantID int64, days int) (*ScheduleResult, error)
	// Regenerate drops the tenant's pending items and generates from now.
	Regenerate(ctx context.Context, tenantID int64, days int) (*ScheduleResult, error)
}

type schedulerService struct {
	tr        repository.TenantRepository
	mr        repository.MediaRepository
	qr        repository.QueueRepository
	lr        repository.LockRepository
	rr        repository.RatioRepository
	maxJitter time.Duration
}

func NewSchedulerService(
	tr repository.TenantRepository,
	mr repository.MediaRepository,
	qr repository.QueueRepository,
	lr repository.LockRepository,
	rr repository.RatioRepository,
	maxJitter time.Duration) SchedulerService {
	return &schedulerService{
		tr:        tr,
		mr:        mr,
		qr:        qr,
		lr:        lr,
		rr:        rr,
		maxJitter: maxJitter,
	}
}

func (s *schedulerService) GenerateSchedule(ctx context.Context, tenantID int64, days int, from *time.Time) (*ScheduleResult, error) {
	if days <= 0 {
		return nil, &ValidationError{Reason: "days must be positive"}
	}

	cfg, err := s.tr.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrTenantNotConfigured
	}
	if cfg.PostsPerDay <= 0 {
		return nil, &ValidationError{Reason: "posts per day must be positive"}
	}

	now := time.Now().UTC()
	base := now
	if from != nil {
		base = from.UTC()
	}

	slots := computeSlots(base, days, cfg.PostsPerDay, cfg.WindowStartHour, cfg.WindowEndHour, s.maxJitter)
	total := len(slots)

	selected, err := s.selectMedia(ctx, tenantID, total, now)
	if err != nil {
		return nil, err
	}

	// Category fill order must not leak into the visible posting order.
	rand.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	batchID, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	items := make([]*models.QueueItem, 0, len(selected))
	for i, media := range selected {
		items = append(items, &models.QueueItem{
			TenantID:     tenantID,
			MediaID:      media.ID,
			BatchID:      batchID,
			ScheduledFor: slots[i],
			Status:       models.QueueStatusPending,
		})
	}
	if err := s.qr.CreateBatch(ctx, items); err != nil {
		return nil, err
	}

	result := &ScheduleResult{
		BatchID:   batchID,
		Requested: total,
		Scheduled: len(items),
		Shortfall: total - len(items),
		Items:     items,
	}

	slog.Info("schedule generated",
		slog.Int64("tenant_id", tenantID),
		slog.String("batch_id", batchID),
		slog.Int("requested", result.Requested),
		slog.Int("scheduled", result.Scheduled),
		slog.Int("shortfall", result.Shortfall),
	)

	return result, nil
}

func (s *schedulerService) ExtendSchedule(ctx context.Context, tenantID int64, days int) (*ScheduleResult, error) {
	latest, err := s.qr.LatestScheduled(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.GenerateSchedule(ctx, tenantID, days, latest)
}

func (s *schedulerService) Regenerate(ctx context.Context, tenantID int64, days int) (*ScheduleResult, error) {
	cleared, err := s.qr.ClearPending(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result, err := s.GenerateSchedule(ctx, tenantID, days, nil)
	if err != nil {
		return nil, err
	}
	result.Cleared = cleared
	return result, nil
}

// selectMedia picks up to total media items honoring category ratios, locks,
// already-queued exclusion and the never-posted-first ranking. Categories
// whose pool runs dry spill into a global fallback pool.
func (s *schedulerService) selectMedia(ctx context.Context, tenantID int64, total int, now time.Time) ([]*models.MediaItem, error) {
	excluded := make(map[int64]struct{})

	// Fail closed: if the lock state cannot be read the whole generation
	// aborts rather than risking a double post.
	lockedIDs, err := s.lr.ListActiveMediaIDs(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}
	for _, id := range lockedIDs {
		excluded[id] = struct{}{}
	}

	pendingIDs, err := s.qr.ListPendingMediaIDs(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, id := range pendingIDs {
		excluded[id] = struct{}{}
	}

	ratioRows, err := s.rr.GetCurrent(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ratios := make(map[string]float64, len(ratioRows))
	for _, row := range ratioRows {
		ratios[row.Category] = row.Ratio
	}

	selected := make([]*models.MediaItem, 0, total)
	chosen := make(map[int64]struct{})

	take := func(pool []*models.MediaItem, n int) {
		for _, item := range rankCandidates(pool) {
			if n <= 0 || len(selected) >= total {
				return
			}
			if _, ok := chosen[item.ID]; ok {
				continue
			}
			chosen[item.ID] = struct{}{}
			selected = append(selected, item)
			n--
		}
	}

	if len(ratios) == 0 {
		// No category constraint configured: one global pool.
		pool, err := s.eligiblePool(ctx, "", excluded)
		if err != nil {
			return nil, err
		}
		take(pool, total)
		return selected, nil
	}

	counts := allocateSlots(ratios, total)
	for _, category := range categoriesByRatio(ratios) {
		pool, err := s.eligiblePool(ctx, category, excluded)
		if err != nil {
			return nil, err
		}
		take(pool, counts[category])
	}

	// Spill the per-category shortfall into any remaining eligible media.
	if len(selected) < total {
		pool, err := s.eligiblePool(ctx, "", excluded)
		if err != nil {
			return nil, err
		}
		take(pool, total-len(selected))
	}

	return selected, nil
}

func (s *schedulerService) eligiblePool(ctx context.Context, category string, excluded map[int64]struct{}) ([]*models.MediaItem, error) {
	var items []*models.MediaItem
	var err error

	if category == "" {
		items, err = s.mr.ListActive(ctx)
	} else {
		items, err = s.mr.ListActiveByCategory(ctx, category)
	}
	if err != nil {
		return nil, err
	}

	pool := make([]*models.MediaItem, 0, len(items))
	for _, item := range items {
		if _, ok := excluded[item.ID]; ok {
			continue
		}
		pool = append(pool, item)
	}
	return pool, nil
}
