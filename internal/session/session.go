package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrCapacityExceeded = errors.New("session capacity exceeded")
	ErrDuplicateID      = errors.New("session id already registered")
)

// Meta carries the fields every game session shares regardless of kind.
// All mutation happens under the owning registry slot's guard.
type Meta struct {
	ID           string
	UserID       uuid.UUID
	GatewayToken string
	CreatedAt    time.Time
	LastActivity time.Time

	eventCount  int
	windowStart time.Time
}

// NewMeta stamps creation and activity with the same instant.
func NewMeta(id string, userID uuid.UUID, token string, now time.Time) Meta {
	return Meta{
		ID:           id,
		UserID:       userID,
		GatewayToken: token,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Touch advances last activity. It never moves backwards.
func (m *Meta) Touch(now time.Time) {
	if now.After(m.LastActivity) {
		m.LastActivity = now
	}
}

// Expired reports whether the session sat idle past timeout.
func (m *Meta) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(m.LastActivity) > timeout
}

// CountEvent bumps the fixed-window event counter and returns the count in
// the current window. The window resets once its span has fully elapsed.
func (m *Meta) CountEvent(now time.Time, window time.Duration) int {
	if m.windowStart.IsZero() || now.Sub(m.windowStart) >= window {
		m.windowStart = now
		m.eventCount = 1
	} else {
		m.eventCount++
	}
	return m.eventCount
}

// Record is anything a registry can own.
type Record interface {
	Meta() *Meta
}
