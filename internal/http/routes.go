package http

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/jaymasl/frtl-arcade/internal/auth"
	"github.com/jaymasl/frtl-arcade/internal/config"
	"github.com/jaymasl/frtl-arcade/internal/http/handlers"
	"github.com/jaymasl/frtl-arcade/internal/http/middleware"
	"github.com/jaymasl/frtl-arcade/internal/repository"
	"github.com/jaymasl/frtl-arcade/internal/service"
	"github.com/jaymasl/frtl-arcade/internal/ws"
)

// Services groups everything the routes need besides the stores.
type Services struct {
	Match    *service.MatchService
	Game2048 *service.Game2048Service
	Snake    *service.SnakeService
	Verifier *auth.Verifier
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, svcs Services, version string) {
	h := handlers.NewHandler(svcs.Match, svcs.Game2048, repository.NewRewardRepository(db))
	healthHandler := handlers.NewHealthHandler(db, rdb, version, func() int {
		return svcs.Match.Live() + svcs.Game2048.Live() + svcs.Snake.Live()
	})

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	jwt := middleware.JWT(svcs.Verifier)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))

	match := v1.Group("/game/match", jwt)
	match.POST("/new", h.MatchNew)
	match.POST("/reveal", h.MatchReveal)
	match.GET("/reveal_one", h.MatchRevealOne)
	match.GET("/refresh", h.MatchRefresh)

	g2048 := v1.Group("/game/2048", jwt)
	g2048.POST("/new", h.Game2048New)
	g2048.POST("/move", h.Game2048Move)
	g2048.GET("/refresh", h.Game2048Refresh)

	v1.GET("/leaderboard/:game", h.Leaderboard)

	// Snake runs over its own duplex transport.
	r.GET("/ws/snake", ws.HandleSnake(svcs.Snake, svcs.Verifier, os.Getenv("ALLOWED_ORIGIN")))
}
