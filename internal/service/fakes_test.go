package service

import (
	"context"
	"sort"
	"time"

	"github.com/dkrasov/postline/internal/models"
)

// In-memory repository fakes. They implement the same contracts as the
// postgres repositories, including ErrNoRows-as-nil semantics.

type fakeMediaRepo struct {
	items map[int64]*models.MediaItem
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{items: make(map[int64]*models.MediaItem)}
}

func (f *fakeMediaRepo) add(id int64, category string, timesPosted int) *models.MediaItem {
	item := &models.MediaItem{ID: id, Fingerprint: "fp", Category: category, TimesPosted: timesPosted, IsActive: true}
	f.items[id] = item
	return item
}

func (f *fakeMediaRepo) GetByID(ctx context.Context, id int64) (*models.MediaItem, error) {
	return f.items[id], nil
}

func (f *fakeMediaRepo) ListActive(ctx context.Context) ([]*models.MediaItem, error) {
	return f.list(""), nil
}

func (f *fakeMediaRepo) ListActiveByCategory(ctx context.Context, category string) ([]*models.MediaItem, error) {
	return f.list(category), nil
}

func (f *fakeMediaRepo) list(category string) []*models.MediaItem {
	var out []*models.MediaItem
	for _, item := range f.items {
		if !item.IsActive {
			continue
		}
		if category != "" && item.Category != category {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeMediaRepo) IncrementTimesPosted(ctx context.Context, id int64) error {
	if item, ok := f.items[id]; ok {
		item.TimesPosted++
	}
	return nil
}

type fakeQueueRepo struct {
	nextID int64
	items  map[int64]*models.QueueItem
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{items: make(map[int64]*models.QueueItem)}
}

func (f *fakeQueueRepo) add(tenantID, mediaID int64, scheduledFor time.Time, status string, attempts int) *models.QueueItem {
	f.nextID++
	item := &models.QueueItem{
		ID:           f.nextID,
		TenantID:     tenantID,
		MediaID:      mediaID,
		ScheduledFor: scheduledFor,
		Status:       status,
		AttemptCount: attempts,
	}
	f.items[item.ID] = item
	return item
}

func (f *fakeQueueRepo) GetByID(ctx context.Context, id int64) (*models.QueueItem, error) {
	return f.items[id], nil
}

func (f *fakeQueueRepo) CreateBatch(ctx context.Context, items []*models.QueueItem) error {
	for _, item := range items {
		f.nextID++
		item.ID = f.nextID
		f.items[item.ID] = item
	}
	return nil
}

func (f *fakeQueueRepo) ListByTenant(ctx context.Context, tenantID int64, status string) ([]*models.QueueItem, error) {
	var out []*models.QueueItem
	for _, item := range f.items {
		if item.TenantID != tenantID {
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		out = append(out, item)
	}
	sortBySchedule(out)
	return out, nil
}

func (f *fakeQueueRepo) ListDue(ctx context.Context, tenantID int64, now time.Time) ([]*models.QueueItem, error) {
	var out []*models.QueueItem
	for _, item := range f.items {
		if item.TenantID == tenantID && item.Status == models.QueueStatusPending && !item.ScheduledFor.After(now) {
			out = append(out, item)
		}
	}
	sortBySchedule(out)
	return out, nil
}

func sortBySchedule(items []*models.QueueItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].ScheduledFor.Before(items[j].ScheduledFor) })
}

func (f *fakeQueueRepo) ListPendingMediaIDs(ctx context.Context, tenantID int64) ([]int64, error) {
	var ids []int64
	for _, item := range f.items {
		if item.TenantID == tenantID && (item.Status == models.QueueStatusPending || item.Status == models.QueueStatusProcessing) {
			ids = append(ids, item.MediaID)
		}
	}
	return ids, nil
}

func (f *fakeQueueRepo) LatestScheduled(ctx context.Context, tenantID int64) (*time.Time, error) {
	var latest *time.Time
	for _, item := range f.items {
		if item.TenantID != tenantID || item.Status != models.QueueStatusPending {
			continue
		}
		t := item.ScheduledFor
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest, nil
}

func (f *fakeQueueRepo) Claim(ctx context.Context, id int64) (bool, error) {
	item, ok := f.items[id]
	if !ok || item.Status != models.QueueStatusPending {
		return false, nil
	}
	item.Status = models.QueueStatusProcessing
	return true, nil
}

func (f *fakeQueueRepo) Release(ctx context.Context, id int64, scheduledFor time.Time, attemptCount int, lastError string) error {
	item := f.items[id]
	item.Status = models.QueueStatusPending
	item.ScheduledFor = scheduledFor
	item.AttemptCount = attemptCount
	item.LastError = lastError
	return nil
}

func (f *fakeQueueRepo) MarkPosted(ctx context.Context, id int64) error {
	f.items[id].Status = models.QueueStatusPosted
	return nil
}

func (f *fakeQueueRepo) MarkFailed(ctx context.Context, id int64, lastError string) error {
	f.items[id].Status = models.QueueStatusFailed
	f.items[id].LastError = lastError
	return nil
}

func (f *fakeQueueRepo) ShiftOverdue(ctx context.Context, tenantID int64, now time.Time, step time.Duration) (int64, error) {
	var count int64
	for _, item := range f.items {
		if item.TenantID != tenantID || item.Status != models.QueueStatusPending || item.ScheduledFor.After(now) {
			continue
		}
		steps := int64(now.Sub(item.ScheduledFor)/step) + 1
		item.ScheduledFor = item.ScheduledFor.Add(time.Duration(steps) * step)
		count++
	}
	return count, nil
}

func (f *fakeQueueRepo) ClearPending(ctx context.Context, tenantID int64) (int64, error) {
	var count int64
	for id, item := range f.items {
		if item.TenantID == tenantID && item.Status == models.QueueStatusPending {
			delete(f.items, id)
			count++
		}
	}
	return count, nil
}

func (f *fakeQueueRepo) DeletePendingByMedia(ctx context.Context, tenantID, mediaID int64) (int64, error) {
	var count int64
	for id, item := range f.items {
		if item.TenantID == tenantID && item.MediaID == mediaID && item.Status == models.QueueStatusPending {
			delete(f.items, id)
			count++
		}
	}
	return count, nil
}

type fakeLockRepo struct {
	nextID int64
	locks  []*models.MediaLock
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{}
}

func (f *fakeLockRepo) Create(ctx context.Context, lock *models.MediaLock) (int64, error) {
	f.nextID++
	lock.ID = f.nextID
	f.locks = append(f.locks, lock)
	return lock.ID, nil
}

func (f *fakeLockRepo) active(tenantID int64, now time.Time) []*models.MediaLock {
	var out []*models.MediaLock
	for _, lock := range f.locks {
		if lock.TenantID != tenantID {
			continue
		}
		if lock.LockedUntil == nil || lock.LockedUntil.After(now) {
			out = append(out, lock)
		}
	}
	return out
}

func (f *fakeLockRepo) IsLocked(ctx context.Context, tenantID, mediaID int64, now time.Time) (bool, error) {
	for _, lock := range f.active(tenantID, now) {
		if lock.MediaID == mediaID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLockRepo) ListActiveMediaIDs(ctx context.Context, tenantID int64, now time.Time) ([]int64, error) {
	var ids []int64
	for _, lock := range f.active(tenantID, now) {
		ids = append(ids, lock.MediaID)
	}
	return ids, nil
}

func (f *fakeLockRepo) ListActive(ctx context.Context, tenantID int64, now time.Time) ([]*models.MediaLock, error) {
	return f.active(tenantID, now), nil
}

func (f *fakeLockRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var kept []*models.MediaLock
	var purged int64
	for _, lock := range f.locks {
		if lock.LockedUntil != nil && !lock.LockedUntil.After(now) {
			purged++
			continue
		}
		kept = append(kept, lock)
	}
	f.locks = kept
	return purged, nil
}

type fakeRatioRepo struct {
	nextID int64
	rows   []*models.CategoryRatio
}

func newFakeRatioRepo() *fakeRatioRepo {
	return &fakeRatioRepo{}
}

func (f *fakeRatioRepo) GetCurrent(ctx context.Context, tenantID int64) ([]*models.CategoryRatio, error) {
	var out []*models.CategoryRatio
	for _, row := range f.rows {
		if row.TenantID == tenantID && row.IsCurrent {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeRatioRepo) ListHistory(ctx context.Context, tenantID int64) ([]*models.CategoryRatio, error) {
	var out []*models.CategoryRatio
	for _, row := range f.rows {
		if row.TenantID == tenantID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeRatioRepo) ReplaceCurrent(ctx context.Context, tenantID int64, ratios map[string]float64, changedBy string, now time.Time) error {
	for _, row := range f.rows {
		if row.TenantID == tenantID && row.IsCurrent {
			row.IsCurrent = false
			t := now
			row.EffectiveTo = &t
		}
	}
	for category, ratio := range ratios {
		f.nextID++
		f.rows = append(f.rows, &models.CategoryRatio{
			ID:            f.nextID,
			TenantID:      tenantID,
			Category:      category,
			Ratio:         ratio,
			EffectiveFrom: now,
			IsCurrent:     true,
			ChangedBy:     changedBy,
		})
	}
	return nil
}

type fakeTenantRepo struct {
	configs map[int64]*models.TenantConfig
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{configs: make(map[int64]*models.TenantConfig)}
}

func (f *fakeTenantRepo) add(cfg *models.TenantConfig) {
	f.configs[cfg.TenantID] = cfg
}

func (f *fakeTenantRepo) GetConfig(ctx context.Context, tenantID int64) (*models.TenantConfig, error) {
	return f.configs[tenantID], nil
}

func (f *fakeTenantRepo) ListActive(ctx context.Context) ([]*models.TenantConfig, error) {
	return f.list(false), nil
}

func (f *fakeTenantRepo) ListPaused(ctx context.Context) ([]*models.TenantConfig, error) {
	return f.list(true), nil
}

func (f *fakeTenantRepo) list(paused bool) []*models.TenantConfig {
	var out []*models.TenantConfig
	for _, cfg := range f.configs {
		if cfg.IsPaused == paused {
			out = append(out, cfg)
		}
	}
	return out
}

type fakeHistoryRepo struct {
	nextID  int64
	records []*models.PostingHistory
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{}
}

func (f *fakeHistoryRepo) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	f.nextID++
	ph.ID = f.nextID
	f.records = append(f.records, ph)
	return ph.ID, nil
}

func (f *fakeHistoryRepo) ListByTenant(ctx context.Context, tenantID int64, limit int) ([]*models.PostingHistory, error) {
	var out []*models.PostingHistory
	for _, record := range f.records {
		if record.TenantID == tenantID {
			out = append(out, record)
		}
	}
	return out, nil
}

type fakeChannel struct {
	name    string
	deliver func(ctx context.Context, media *models.MediaItem, tenant *models.TenantConfig) error
	calls   []int64
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Deliver(ctx context.Context, media *models.MediaItem, tenant *models.TenantConfig) error {
	f.calls = append(f.calls, media.ID)
	if f.deliver == nil {
		return nil
	}
	return f.deliver(ctx, media, tenant)
}
