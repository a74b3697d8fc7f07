// Package locker provides a short-lived in-process mutex keyed by queue item
// id. It guards the window between reading an item and claiming it, so a
// scheduler tick and an out-of-band post-now action in the same process never
// race on one item. Cross-process safety comes from the database claim.
package locker

import "sync"

type KeyedLock struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func New() *KeyedLock {
	return &KeyedLock{held: make(map[int64]struct{})}
}

// TryAcquire takes the lock for key if free and reports whether it succeeded.
// It never blocks; contenders are expected to skip the item and move on.
func (l *KeyedLock) TryAcquire(key int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

func (l *KeyedLock) Release(key int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}
