package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cap is the process-wide live-session budget shared by every registry.
type Cap struct {
	limit  int64
	live   atomic.Int64
	sealed atomic.Bool
}

func NewCap(limit int) *Cap {
	return &Cap{limit: int64(limit)}
}

// Seal rejects all further acquisitions. Used during shutdown so draining
// registries stop admitting new sessions.
func (c *Cap) Seal() {
	c.sealed.Store(true)
}

func (c *Cap) tryAcquire() bool {
	if c.sealed.Load() {
		return false
	}
	for {
		cur := c.live.Load()
		if cur >= c.limit {
			return false
		}
		if c.live.CompareAndSwap(cur, cur+1) {
			liveSessions.Inc()
			return true
		}
	}
}

func (c *Cap) release() {
	c.live.Add(-1)
	liveSessions.Dec()
}

func (c *Cap) Live() int {
	return int(c.live.Load())
}

type slot[T Record] struct {
	mu   sync.Mutex
	rec  T
	gone bool
}

// Registry owns the live sessions of one game kind. Lookup is guarded by a
// registry-wide lock; mutation is serialised per session by the slot lock so
// unrelated sessions never block each other. Callers must not perform
// external I/O inside With; they collect effects and run them after release.
type Registry[T Record] struct {
	mu    sync.RWMutex
	slots map[string]*slot[T]

	cap         *Cap
	idleTimeout time.Duration
}

func NewRegistry[T Record](cap *Cap, idleTimeout time.Duration) *Registry[T] {
	return &Registry[T]{
		slots:       make(map[string]*slot[T]),
		cap:         cap,
		idleTimeout: idleTimeout,
	}
}

// Insert registers a session, counting it against the global cap.
func (r *Registry[T]) Insert(rec T) error {
	id := rec.Meta().ID

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.slots[id]; exists {
		return ErrDuplicateID
	}
	if !r.cap.tryAcquire() {
		return ErrCapacityExceeded
	}
	r.slots[id] = &slot[T]{rec: rec}
	return nil
}

// With runs fn with exclusive access to the session. fn runs to completion
// before any other mutator observes the record.
func (r *Registry[T]) With(id string, fn func(T) error) error {
	r.mu.RLock()
	s, ok := r.slots[id]
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return ErrNotFound
	}
	return fn(s.rec)
}

// Remove drops a session. Idempotent; reports whether the session existed.
// Removal is atomic with the decision to stop serving: a concurrent With
// either completes fully before the removal or observes the session gone.
func (r *Registry[T]) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.slots[id]
	if ok {
		delete(r.slots, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	s.mu.Lock()
	s.gone = true
	s.mu.Unlock()
	r.cap.release()
	return true
}

// Sweep evicts every session idle past the registry's timeout and returns
// the evicted records so the owner can tear down attached resources.
func (r *Registry[T]) Sweep(now time.Time) []T {
	r.mu.RLock()
	ids := make([]string, 0, len(r.slots))
	for id := range r.slots {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	var evicted []T
	for _, id := range ids {
		r.mu.RLock()
		s, ok := r.slots[id]
		r.mu.RUnlock()
		if !ok {
			continue
		}

		s.mu.Lock()
		expired := !s.gone && s.rec.Meta().Expired(now, r.idleTimeout)
		rec := s.rec
		s.mu.Unlock()

		if expired && r.Remove(id) {
			evicted = append(evicted, rec)
		}
	}
	return evicted
}

// EvictOldestIdle displaces the least-recently-active session to make room
// under cap pressure. Returns the evicted record so the owner can tear down
// attached resources.
func (r *Registry[T]) EvictOldestIdle() (T, bool) {
	var zero T

	r.mu.RLock()
	ids := make([]string, 0, len(r.slots))
	for id := range r.slots {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	var (
		oldestID string
		oldestAt time.Time
	)
	for _, id := range ids {
		r.mu.RLock()
		s, ok := r.slots[id]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		s.mu.Lock()
		last := s.rec.Meta().LastActivity
		gone := s.gone
		s.mu.Unlock()
		if gone {
			continue
		}
		if oldestID == "" || last.Before(oldestAt) {
			oldestID, oldestAt = id, last
		}
	}
	if oldestID == "" {
		return zero, false
	}

	r.mu.RLock()
	s, ok := r.slots[oldestID]
	r.mu.RUnlock()
	if !ok {
		return zero, false
	}
	s.mu.Lock()
	rec := s.rec
	s.mu.Unlock()
	if !r.Remove(oldestID) {
		return zero, false
	}
	return rec, true
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}
