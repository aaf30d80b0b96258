package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// UserLimiter bounds how many sessions a single user may start inside a
// rolling window. Kept in memory; the per-IP HTTP limiter is a separate layer.
type UserLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	starts map[uuid.UUID][]time.Time
}

func NewUserLimiter(max int, window time.Duration) *UserLimiter {
	return &UserLimiter{
		max:    max,
		window: window,
		starts: make(map[uuid.UUID][]time.Time),
	}
}

// Allow records a start attempt and reports whether it fits the window.
// Denied attempts are not recorded.
func (l *UserLimiter) Allow(userID uuid.UUID, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.starts[userID][:0]
	for _, t := range l.starts[userID] {
		if now.Sub(t) < l.window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.max {
		l.starts[userID] = recent
		return false
	}
	l.starts[userID] = append(recent, now)
	return true
}

// GC drops users whose whole window has lapsed. Called by the sweeper.
func (l *UserLimiter) GC(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for userID, times := range l.starts {
		idle := true
		for _, t := range times {
			if now.Sub(t) < l.window {
				idle = false
				break
			}
		}
		if idle {
			delete(l.starts, userID)
		}
	}
}
