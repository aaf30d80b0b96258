package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jaymasl/frtl-arcade/internal/auth"
	"github.com/jaymasl/frtl-arcade/internal/config"
	"github.com/jaymasl/frtl-arcade/internal/db"
	httpServer "github.com/jaymasl/frtl-arcade/internal/http"
	"github.com/jaymasl/frtl-arcade/internal/http/middleware"
	"github.com/jaymasl/frtl-arcade/internal/logger"
	"github.com/jaymasl/frtl-arcade/internal/repository"
	"github.com/jaymasl/frtl-arcade/internal/reward"
	"github.com/jaymasl/frtl-arcade/internal/service"
	"github.com/jaymasl/frtl-arcade/internal/session"
	"github.com/jaymasl/frtl-arcade/internal/signer"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()
	rdb := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb == nil {
		logger.Fatal("REDIS_ADDR is required, the reward gateway stores session tokens in redis")
	}
	middleware.InitRedisRateLimiter(rdb)

	sig, err := signer.New(cfg.GameSessionSecret)
	if err != nil {
		logger.Fatal("session signer", "error", err)
	}
	verifier := auth.NewVerifier(cfg.JWTSecret)

	gateway := reward.NewService(
		repository.NewRewardRepository(dbPool),
		repository.NewTokenRepository(rdb),
		sig,
	)

	cap := session.NewCap(cfg.MaxConcurrentSessions)
	limiter := session.NewUserLimiter(cfg.MaxNewGamesPerMinute, time.Minute)

	matchSvc := service.NewMatchService(cap, sig, gateway, limiter, cfg.MatchIdleTimeout, cfg.MaxRevealsPerMinute)
	game2048Svc := service.New2048Service(cap, sig, gateway, limiter, gateway, cfg.Game2048IdleTimeout, cfg.MoveMinInterval)
	snakeSvc := service.NewSnakeService(cap, gateway, limiter, cfg.SnakeIdleTimeout, cfg.SnakeTickInterval, cfg.SnakeTurnInterval, cfg.SnakeMaxMsgsPerSec)

	sweeper, err := session.NewSweeper(time.Minute, matchSvc.Sweep, game2048Svc.Sweep, snakeSvc.Sweep)
	if err != nil {
		logger.Fatal("sweeper", "error", err)
	}
	sweeper.Start()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, cfg, dbPool, rdb, httpServer.Services{
		Match:    matchSvc,
		Game2048: game2048Svc,
		Snake:    snakeSvc,
		Verifier: verifier,
	}, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	cap.Seal()
	sweeper.Stop()
	snakeSvc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
