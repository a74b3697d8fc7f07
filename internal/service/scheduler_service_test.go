package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkrasov/postline/internal/models"
)

type schedulerFixture struct {
	tenants *fakeTenantRepo
	media   *fakeMediaRepo
	queue   *fakeQueueRepo
	locks   *fakeLockRepo
	ratios  *fakeRatioRepo
	svc     SchedulerService
}

func newSchedulerFixture() *schedulerFixture {
	f := &schedulerFixture{
		tenants: newFakeTenantRepo(),
		media:   newFakeMediaRepo(),
		queue:   newFakeQueueRepo(),
		locks:   newFakeLockRepo(),
		ratios:  newFakeRatioRepo(),
	}
	f.svc = NewSchedulerService(f.tenants, f.media, f.queue, f.locks, f.ratios, 15*time.Minute)
	return f
}

func (f *schedulerFixture) addTenant(tenantID int64, postsPerDay, startHour, endHour int) {
	f.tenants.add(&models.TenantConfig{
		TenantID:        tenantID,
		PostsPerDay:     postsPerDay,
		WindowStartHour: startHour,
		WindowEndHour:   endHour,
	})
}

func TestGenerateScheduleFillsEverySlot(t *testing.T) {
	f := newSchedulerFixture()
	f.addTenant(1, 3, 14, 2)
	f.ratios.ReplaceCurrent(context.Background(), 1, map[string]float64{"memes": 0.7, "merch": 0.3}, "test", time.Now().UTC())
	for i := int64(1); i <= 35; i++ {
		f.media.add(i, "memes", 0)
	}
	for i := int64(36); i <= 50; i++ {
		f.media.add(i, "merch", 0)
	}

	result, err := f.svc.GenerateSchedule(context.Background(), 1, 3, nil)
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}

	if result.Requested != 9 || result.Scheduled != 9 || result.Shortfall != 0 {
		t.Fatalf("expected 9/9/0, got %d/%d/%d", result.Requested, result.Scheduled, result.Shortfall)
	}
	if result.BatchID == "" {
		t.Error("batch id must be set")
	}

	now := time.Now().UTC()
	counts := map[string]int{}
	seenMedia := map[int64]struct{}{}
	for _, item := range result.Items {
		if item.ID == 0 {
			t.Error("queue item id not assigned")
		}
		if item.Status != models.QueueStatusPending {
			t.Errorf("item %d: expected pending, got %s", item.ID, item.Status)
		}
		if !item.ScheduledFor.After(now.Add(-time.Minute)) {
			t.Errorf("item %d scheduled in the past: %v", item.ID, item.ScheduledFor)
		}
		h := item.ScheduledFor.Hour()
		if h < 14 && h >= 2 {
			t.Errorf("item %d outside the 14:00-02:00 window: %v", item.ID, item.ScheduledFor)
		}
		if _, ok := seenMedia[item.MediaID]; ok {
			t.Errorf("media %d selected twice in one batch", item.MediaID)
		}
		seenMedia[item.MediaID] = struct{}{}
		counts[f.media.items[item.MediaID].Category]++
	}

	if counts["memes"] != 6 || counts["merch"] != 3 {
		t.Errorf("expected 6 memes / 3 merch, got %d/%d", counts["memes"], counts["merch"])
	}
}

func TestGenerateScheduleNeverPostedFirst(t *testing.T) {
	f := newSchedulerFixture()
	f.addTenant(1, 3, 9, 21)
	for i := int64(1); i <= 6; i++ {
		f.media.add(i, "memes", 0)
	}
	for i := int64(7); i <= 16; i++ {
		f.media.add(i, "memes", 2)
	}

	result, err := f.svc.GenerateSchedule(context.Background(), 1, 2, nil)
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if result.Scheduled != 6 {
		t.Fatalf("expected 6 scheduled, got %d", result.Scheduled)
	}
	for _, item := range result.Items {
		if f.media.items[item.MediaID].TimesPosted != 0 {
			t.Errorf("media %d has been posted before but never-posted items remained", item.MediaID)
		}
	}
}

func TestGenerateScheduleExcludesLockedMedia(t *testing.T) {
	f := newSchedulerFixture()
	f.addTenant(1, 2, 9, 21)
	for i := int64(1); i <= 4; i++ {
		f.media.add(i, "memes", 0)
	}
	until := time.Now().UTC().Add(24 * time.Hour)
	f.locks.Create(context.Background(), &models.MediaLock{TenantID: 1, MediaID: 1, LockedAt: time.Now().UTC(), LockedUntil: &until, Reason: models.LockReasonPosted})
	f.locks.Create(context.Background(), &models.MediaLock{TenantID: 1, MediaID: 2, LockedAt: time.Now().UTC(), Reason: models.LockReasonRejected})

	result, err := f.svc.GenerateSchedule(context.Background(), 1, 2, nil)
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}

	if result.Scheduled != 2 || result.Shortfall != 2 {
		t.Fatalf("expected 2 scheduled / 2 shortfall, got %d/%d", result.Scheduled, result.Shortfall)
	}
	for _, item := range result.Items {
		if item.MediaID == 1 || item.MediaID == 2 {
			t.Errorf("locked media %d was selected", item.MediaID)
		}
	}
}

func TestGenerateScheduleExcludesAlreadyQueuedMedia(t *testing.T) {
	f := newSchedulerFixture()
	f.addTenant(1, 1, 9, 21)
	f.media.add(1, "memes", 0)
	f.media.add(2, "memes", 0)
	f.queue.add(1, 1, time.Now().UTC().Add(time.Hour), models.QueueStatusPending, 0)

	result, err := f.svc.GenerateSchedule(context.Background(), 1, 1, nil)
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}

	if result.Scheduled != 1 {
		t.Fatalf("expected 1 scheduled, got %d", result.Scheduled)
	}
	if result.Items[0].MediaID != 2 {
		t.Errorf("already-queued media was reselected, got media %d", result.Items[0].MediaID)
	}
}

func TestGenerateScheduleShortfall(t *testing.T) {
	f := newSchedulerFixture()
	f.addTenant(1, 3, 9, 21)
	for i := int64(1); i <= 4; i++ {
		f.media.add(i, "memes", 0)
	}

	result, err := f.svc.GenerateSchedule(context.Background(), 1, 3, nil)
	if err != nil {
		t.Fatalf("shortfall must not be an error: %v", err)
	}

	if result.Requested != 9 || result.Scheduled != 4 || result.Shortfall != 5 {
		t.Errorf("expected 9/4/5, got %d/%d/%d", result.Requested, result.Scheduled, result.Shortfall)
	}
}

func TestGenerateScheduleSpillsAcrossCategories(t *testing.T) {
	f := newSchedulerFixture()
	f.addTenant(1, 2, 9, 21)
	f.ratios.ReplaceCurrent(context.Background(), 1, map[string]float64{"memes": 0.5, "merch": 0.5}, "test", time.Now().UTC())
	for i := int64(1); i <= 4; i++ {
		f.media.add(i, "merch", 0)
	}

	result, err := f.svc.GenerateSchedule(context.Background(), 1, 2, nil)
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}

	if result.Scheduled != 4 || result.Shortfall != 0 {
		t.Errorf("empty category should spill into the rest: got %d scheduled / %d shortfall",
			result.Scheduled, result.Shortfall)
	}
}

func TestExtendScheduleAppendsAfterLatest(t *testing.T) {
	f := newSchedulerFixture()
	f.addTenant(1, 2, 9, 21)
	for i := int64(1); i <= 10; i++ {
		f.media.add(i, "memes", 0)
	}
	latest := time.Now().UTC().Add(72 * time.Hour)
	f.queue.add(1, 100, latest, models.QueueStatusPending, 0)
	f.media.add(100, "memes", 0)

	result, err := f.svc.ExtendSchedule(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("ExtendSchedule: %v", err)
	}

	for _, item := range result.Items {
		if !item.ScheduledFor.After(latest) {
			t.Errorf("extended item at %v is not after the latest pending item %v",
				item.ScheduledFor, latest)
		}
	}
}

func TestRegenerateClearsPendingFirst(t *testing.T) {
	f := newSchedulerFixture()
	f.addTenant(1, 1, 9, 21)
	for i := int64(1); i <= 5; i++ {
		f.media.add(i, "memes", 0)
	}
	f.queue.add(1, 1, time.Now().UTC().Add(time.Hour), models.QueueStatusPending, 0)
	f.queue.add(1, 2, time.Now().UTC().Add(2*time.Hour), models.QueueStatusPending, 0)
	posted := f.queue.add(1, 3, time.Now().UTC().Add(-time.Hour), models.QueueStatusPosted, 0)

	result, err := f.svc.Regenerate(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	if result.Cleared != 2 {
		t.Errorf("expected 2 cleared pending items, got %d", result.Cleared)
	}
	if f.queue.items[posted.ID] == nil {
		t.Error("regenerate must not touch posted items")
	}
	if result.Scheduled != 2 {
		t.Errorf("expected 2 new items, got %d", result.Scheduled)
	}
}

func TestGenerateScheduleValidation(t *testing.T) {
	f := newSchedulerFixture()
	f.addTenant(1, 3, 9, 21)

	if _, err := f.svc.GenerateSchedule(context.Background(), 1, 0, nil); !IsValidation(err) {
		t.Errorf("days=0: expected validation error, got %v", err)
	}
	if _, err := f.svc.GenerateSchedule(context.Background(), 99, 3, nil); !errors.Is(err, ErrTenantNotConfigured) {
		t.Errorf("unknown tenant: expected ErrTenantNotConfigured, got %v", err)
	}

	f.addTenant(2, 0, 9, 21)
	if _, err := f.svc.GenerateSchedule(context.Background(), 2, 3, nil); !IsValidation(err) {
		t.Errorf("postsPerDay=0: expected validation error, got %v", err)
	}
}
