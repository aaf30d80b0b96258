package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

// HealthHandler serves the probe endpoints.
type HealthHandler struct {
	db        *pgxpool.Pool
	redis     *redis.Client
	startTime time.Time
	version   string

	// liveSessions reports the in-memory session count across all games.
	liveSessions func() int
}

func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client, version string, liveSessions func() int) *HealthHandler {
	return &HealthHandler{
		db:           db,
		redis:        rdb,
		startTime:    time.Now(),
		version:      version,
		liveSessions: liveSessions,
	}
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Uptime       string            `json:"uptime,omitempty"`
	Timestamp    string            `json:"timestamp"`
	LiveSessions int               `json:"live_sessions"`
	Checks       map[string]string `json:"checks,omitempty"`
}

// Liveness returns simple alive status (for k8s liveness probe)
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness checks the dependencies a working game service needs.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.redis == nil {
		checks["redis"] = "not configured"
	} else if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = "unhealthy: " + err.Error()
		allHealthy = false
	} else {
		checks["redis"] = "healthy"
	}

	status := http.StatusOK
	resp := HealthResponse{
		Status:       "ready",
		Version:      h.version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		LiveSessions: h.liveSessions(),
		Checks:       checks,
	}
	if !allHealthy {
		status = http.StatusServiceUnavailable
		resp.Status = "not ready"
	}
	c.JSON(status, resp)
}

// Health is the human-facing summary endpoint.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "ok",
		Version:      h.version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		LiveSessions: h.liveSessions(),
	})
}
