package reward

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Game kinds the gateway accepts.
const (
	KindMatch = "match"
	KindSnake = "snake"
	Kind2048  = "2048"
)

var (
	ErrUnavailable  = errors.New("reward gateway unavailable")
	ErrInvalidToken = errors.New("invalid or expired gateway token")
	ErrBadGameKind  = errors.New("unknown game kind")
)

// Gateway is the narrow interface into persistence: the only place a game
// session can cause durable state change. Each call is atomic in the store;
// callers never retry and never hold a session guard across a call.
type Gateway interface {
	// OpenSession registers a new game session and returns an opaque token
	// that must accompany every later reward call.
	OpenSession(ctx context.Context, userID uuid.UUID, gameKind string) (string, error)

	// CreditCurrency applies a pax delta and returns the new balance.
	CreditCurrency(ctx context.Context, userID uuid.UUID, token string, amount int) (int, error)

	// CreditItem grants qty of an inventory item kind.
	CreditItem(ctx context.Context, userID uuid.UUID, token, itemKind string, qty int) error

	// RecordLeaderboard posts a final score.
	RecordLeaderboard(ctx context.Context, userID uuid.UUID, gameKind string, score int) error
}

func validKind(kind string) bool {
	switch kind {
	case KindMatch, KindSnake, Kind2048:
		return true
	}
	return false
}
