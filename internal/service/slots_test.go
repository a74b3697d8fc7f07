package service

import (
	"testing"
	"time"

	"github.com/dkrasov/postline/internal/models"
)

func TestComputeSlotsCountAndBounds(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	slots := computeSlots(base, 3, 4, 9, 21, 15*time.Minute)

	if len(slots) != 12 {
		t.Fatalf("expected 12 slots, got %d", len(slots))
	}
	seen := make(map[time.Time]struct{})
	for _, slot := range slots {
		if !slot.After(base) {
			t.Errorf("slot %v is not after base %v", slot, base)
		}
		if slot.Hour() < 9 || slot.Hour() >= 21 {
			t.Errorf("slot %v outside 09:00-21:00 window", slot)
		}
		if _, ok := seen[slot]; ok {
			t.Errorf("duplicate slot %v", slot)
		}
		seen[slot] = struct{}{}
	}
}

func TestComputeSlotsMidnightWrap(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// 14:00-02:00 wraps past midnight: a 12 hour window.
	slots := computeSlots(base, 3, 3, 14, 2, 15*time.Minute)

	if len(slots) != 9 {
		t.Fatalf("expected 9 slots, got %d", len(slots))
	}
	for _, slot := range slots {
		h := slot.Hour()
		if h < 14 && h >= 2 {
			t.Errorf("slot %v outside the 14:00-02:00 window", slot)
		}
		if !slot.After(base) {
			t.Errorf("slot %v is not after base %v", slot, base)
		}
	}
}

func TestComputeSlotsStartAfterBase(t *testing.T) {
	// Base is already past today's window start, so day one must roll over
	// to tomorrow rather than emitting slots in the past.
	base := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)

	slots := computeSlots(base, 1, 2, 9, 21, 0)

	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	for _, slot := range slots {
		if slot.Day() != 11 {
			t.Errorf("slot %v should fall on the next day's window", slot)
		}
	}
}

func TestAllocateSlotsExact(t *testing.T) {
	counts := allocateSlots(map[string]float64{"memes": 0.7, "merch": 0.3}, 9)

	if counts["memes"] != 6 {
		t.Errorf("memes: expected 6, got %d", counts["memes"])
	}
	if counts["merch"] != 3 {
		t.Errorf("merch: expected 3, got %d", counts["merch"])
	}
}

func TestAllocateSlotsSumsToTotal(t *testing.T) {
	cases := []struct {
		name   string
		ratios map[string]float64
		total  int
	}{
		{"thirds", map[string]float64{"a": 1.0 / 3, "b": 1.0 / 3, "c": 1.0 / 3}, 10},
		{"skewed", map[string]float64{"a": 0.9, "b": 0.1}, 7},
		{"single", map[string]float64{"a": 1.0}, 5},
		{"tiny ratio", map[string]float64{"a": 0.99, "b": 0.01}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			counts := allocateSlots(tc.ratios, tc.total)
			sum := 0
			for category, n := range counts {
				if n < 0 {
					t.Errorf("negative count %d for %q", n, category)
				}
				sum += n
			}
			if sum != tc.total {
				t.Errorf("counts sum to %d, want %d", sum, tc.total)
			}
		})
	}
}

func TestAllocateSlotsEmpty(t *testing.T) {
	if counts := allocateSlots(nil, 10); len(counts) != 0 {
		t.Errorf("expected no counts for empty ratios, got %v", counts)
	}
	if counts := allocateSlots(map[string]float64{"a": 1.0}, 0); len(counts) != 0 {
		t.Errorf("expected no counts for zero total, got %v", counts)
	}
}

func TestRankCandidatesNeverPostedFirst(t *testing.T) {
	items := []*models.MediaItem{
		{ID: 1, TimesPosted: 3},
		{ID: 2, TimesPosted: 0},
		{ID: 3, TimesPosted: 1},
		{ID: 4, TimesPosted: 0},
		{ID: 5, TimesPosted: 2},
	}

	ranked := rankCandidates(items)

	if len(ranked) != 5 {
		t.Fatalf("expected 5 ranked items, got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].TimesPosted > ranked[i].TimesPosted {
			t.Fatalf("ranking not ascending by times posted: %d before %d",
				ranked[i-1].TimesPosted, ranked[i].TimesPosted)
		}
	}
	if ranked[0].TimesPosted != 0 || ranked[1].TimesPosted != 0 {
		t.Error("never-posted items must come first")
	}
}

func TestCalculateBackoff(t *testing.T) {
	base := 5 * time.Minute
	ceiling := 6 * time.Hour

	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 5 * time.Minute},
		{1, 10 * time.Minute},
		{2, 20 * time.Minute},
		{4, 80 * time.Minute},
		{20, 6 * time.Hour},
	}
	for _, tc := range cases {
		if got := calculateBackoff(base, ceiling, tc.attempts); got != tc.want {
			t.Errorf("attempts=%d: got %v, want %v", tc.attempts, got, tc.want)
		}
	}
}
