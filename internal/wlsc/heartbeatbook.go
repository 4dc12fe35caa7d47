package wlsc

import (
	"sync"
	"time"
)

// HeartbeatBook is the process-wide mapping {license -> last-heartbeat
// timestamp}. Touch implements the upgradable-read discipline spec.md §4.1
// calls for: a reader-preferring check, promoted to a write only when the
// heartbeat will actually be accepted, so a flood of heartbeats for
// *different* licenses never serializes behind one writer, and a flood for
// the *same* license is rejected before ever taking the write lock in the
// common case.
//
// Go has no native upgradable-read-lock type; this is a plain sync.RWMutex
// plus a double-checked-lock (RLock to decide, RUnlock, Lock to mutate,
// re-check under the write lock) — the same shape as the teacher's
// plugin.Registry and proxy.CircuitBreakerRegistry.Get (see DESIGN.md).
type HeartbeatBook struct {
	mu   sync.RWMutex
	last map[License]time.Time

	minInterval time.Duration
}

// NewHeartbeatBook returns an empty book with the given minimum spacing
// between accepted heartbeats for any one license.
func NewHeartbeatBook(minInterval time.Duration) *HeartbeatBook {
	return &HeartbeatBook{
		last:        make(map[License]time.Time),
		minInterval: minInterval,
	}
}

// Insert creates the entry for l with timestamp now. It fails with
// ErrWorkerAlreadyExists if an entry is already present, mirroring
// WorkerRegistry.Insert so spawn can pair the two atomically.
func (h *HeartbeatBook) Insert(l License, now time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.last[l]; ok {
		return ErrWorkerAlreadyExists
	}
	h.last[l] = now
	return nil
}

// Remove deletes the entry for l, if any.
func (h *HeartbeatBook) Remove(l License) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.last, l)
}

// Peek returns the last-heartbeat timestamp for l under a plain read lock.
func (h *HeartbeatBook) Peek(l License) (time.Time, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.last[l]
	return t, ok
}

// Touch records now as the last heartbeat for l, subject to rate limiting.
// It fails with ErrWorkerNotFound if l has no entry, or
// ErrHeartbeatTooFrequent if now is within minInterval of the stored value.
func (h *HeartbeatBook) Touch(l License, now time.Time) error {
	h.mu.RLock()
	last, ok := h.last[l]
	h.mu.RUnlock()

	if !ok {
		return ErrWorkerNotFound
	}
	if now.Sub(last) < h.minInterval {
		return ErrHeartbeatTooFrequent
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Re-check under the write lock: another touch (or a removal) may have
	// landed between the unlock above and acquiring the write lock.
	last, ok = h.last[l]
	if !ok {
		return ErrWorkerNotFound
	}
	if now.Sub(last) < h.minInterval {
		return ErrHeartbeatTooFrequent
	}
	h.last[l] = now
	return nil
}

// Len reports the number of tracked licenses.
func (h *HeartbeatBook) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.last)
}
