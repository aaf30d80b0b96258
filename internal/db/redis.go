package db

import (
	"context"
	"time"

	"github.com/jaymasl/frtl-arcade/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

// ConnectRedis opens a redis client for the gateway token store and the HTTP
// rate limiters. Returns nil when addr is empty so callers can fail open.
func ConnectRedis(addr, password string, dbIndex int) *redis.Client {
	if addr == "" {
		logger.Warn("REDIS_ADDR not set, gateway token store disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: dbIndex})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to ping redis", "error", err)
	}

	logger.Info("redis connected")
	return client
}
