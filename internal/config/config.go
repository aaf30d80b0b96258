package config

import (
	"os"
	"strconv"
	"time"

	"github.com/jaymasl/frtl-arcade/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret         string
	GameSessionSecret string

	// Session limits
	MaxConcurrentSessions int
	MaxNewGamesPerMinute  int
	MaxRevealsPerMinute   int

	// Per-kind idle timeouts
	MatchIdleTimeout    time.Duration
	Game2048IdleTimeout time.Duration
	SnakeIdleTimeout    time.Duration

	// Snake simulation
	SnakeTickInterval  time.Duration
	SnakeTurnInterval  time.Duration
	SnakeMaxMsgsPerSec int

	// 2048 pacing
	MoveMinInterval time.Duration

	// HTTP rate limiting
	APIRateLimit  int
	APIRateWindow time.Duration
}

// Load reads configuration from the environment. Secrets are required and the
// process refuses to start without them; everything else has a default.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	gameSecret := os.Getenv("GAME_SESSION_SECRET")
	if gameSecret == "" {
		logger.Fatal("GAME_SESSION_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	return &Config{
		AppPort:     port,
		DatabaseURL: dbURL,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		JWTSecret:         jwtSecret,
		GameSessionSecret: gameSecret,

		MaxConcurrentSessions: envInt("MAX_CONCURRENT_SESSIONS", 1000),
		MaxNewGamesPerMinute:  envInt("MAX_NEW_GAMES_PER_MINUTE", 5),
		MaxRevealsPerMinute:   envInt("MAX_REVEALS_PER_MINUTE", 30),

		MatchIdleTimeout:    envSeconds("MATCH_IDLE_TIMEOUT_SECONDS", 360),
		Game2048IdleTimeout: envSeconds("GAME2048_IDLE_TIMEOUT_SECONDS", 360),
		SnakeIdleTimeout:    envSeconds("SNAKE_IDLE_TIMEOUT_SECONDS", 7200),

		SnakeTickInterval:  envMillis("SNAKE_TICK_MS", 100),
		SnakeTurnInterval:  envMillis("SNAKE_TURN_MS", 50),
		SnakeMaxMsgsPerSec: envInt("SNAKE_MAX_MSGS_PER_SEC", 50),

		MoveMinInterval: envMillis("MOVE_MIN_INTERVAL_MS", 200),

		APIRateLimit:  envInt("API_RATE_LIMIT", 60),
		APIRateWindow: envSeconds("API_RATE_WINDOW_SECONDS", 60),
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}

func envMillis(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Millisecond
}
