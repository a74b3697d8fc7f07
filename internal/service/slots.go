package service

import (
	"math/rand"
	"sort"
	"time"

	"github.com/dkrasov/postline/internal/models"
)

// computeSlots returns days*postsPerDay target timestamps, evenly spaced
// inside the tenant's posting window with bounded random jitter. Every slot
// is strictly after base; the first window used is the first one whose start
// is after base, so generated batches never contain already-past slots.
// endHour <= startHour means the window wraps past midnight.
func computeSlots(base time.Time, days, postsPerDay, startHour, endHour int, maxJitter time.Duration) []time.Time {
	base = base.UTC()

	windowHours := endHour - startHour
	if windowHours <= 0 {
		windowHours += 24
	}
	window := time.Duration(windowHours) * time.Hour

	start := time.Date(base.Year(), base.Month(), base.Day(), startHour, 0, 0, 0, time.UTC)
	for !start.After(base) {
		start = start.Add(24 * time.Hour)
	}

	spacing := window / time.Duration(postsPerDay)

	// Keep jitter well inside the spacing so slot times stay unique and
	// ordered even on dense schedules.
	jitter := maxJitter
	if jitter > spacing/3 {
		jitter = spacing / 3
	}

	slots := make([]time.Time, 0, days*postsPerDay)
	for day := 0; day < days; day++ {
		windowStart := start.Add(time.Duration(day) * 24 * time.Hour)
		for i := 0; i < postsPerDay; i++ {
			slot := windowStart.Add(spacing*time.Duration(i) + spacing/2)
			if jitter > 0 {
				slot = slot.Add(time.Duration(rand.Int63n(int64(2*jitter))) - jitter)
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

// allocateSlots turns current category ratios into per-category slot counts
// for a batch of the given size. Rounding drift lands on the largest-ratio
// category so the counts always sum to total exactly.
func allocateSlots(ratios map[string]float64, total int) map[string]int {
	counts := make(map[string]int, len(ratios))
	if total <= 0 || len(ratios) == 0 {
		return counts
	}

	largest := ""
	assigned := 0
	for category, ratio := range ratios {
		n := int(ratio*float64(total) + 0.5)
		counts[category] = n
		assigned += n
		if largest == "" || ratio > ratios[largest] || (ratio == ratios[largest] && category < largest) {
			largest = category
		}
	}

	counts[largest] += total - assigned
	if counts[largest] < 0 {
		counts[largest] = 0
	}
	return counts
}

// categoriesByRatio returns category names in descending ratio order, ties
// broken by name for determinism.
func categoriesByRatio(ratios map[string]float64) []string {
	categories := make([]string, 0, len(ratios))
	for category := range ratios {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		if ratios[categories[i]] != ratios[categories[j]] {
			return ratios[categories[i]] > ratios[categories[j]]
		}
		return categories[i] < categories[j]
	})
	return categories
}

// rankCandidates orders eligible media never-posted-first: ascending
// times_posted, random order within equal counts. Items that have never been
// posted always exhaust before any repeat is selected.
func rankCandidates(items []*models.MediaItem) []*models.MediaItem {
	ranked := make([]*models.MediaItem, len(items))
	copy(ranked, items)

	rand.Shuffle(len(ranked), func(i, j int) {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TimesPosted < ranked[j].TimesPosted
	})
	return ranked
}
