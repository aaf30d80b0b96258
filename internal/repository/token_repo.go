package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// TokenRepository stores gateway session tokens and idempotency claims in
// redis so reward calls can be validated without a database round trip.
type TokenRepository struct {
	client *redis.Client
}

func NewTokenRepository(client *redis.Client) *TokenRepository {
	return &TokenRepository{client: client}
}

func sessionKey(userID uuid.UUID, sessionID string) string {
	return "game_session:" + userID.String() + ":" + sessionID
}

// StoreSession records an opened gateway session for ttl.
func (r *TokenRepository) StoreSession(ctx context.Context, userID uuid.UUID, sessionID string, ttl time.Duration) error {
	return r.client.Set(ctx, sessionKey(userID, sessionID), "1", ttl).Err()
}

// SessionExists reports whether the session is still open.
func (r *TokenRepository) SessionExists(ctx context.Context, userID uuid.UUID, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, sessionKey(userID, sessionID)).Result()
	return n > 0, err
}

// ClaimOnce takes an idempotency key. Returns true the first time, false on
// every replay within ttl.
func (r *TokenRepository) ClaimOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, "game_reward:"+key, "1", ttl).Result()
}
