package config

import (
	"fmt"
	"os"
	"time"
)

const (
	// Request validation
	TopicMinLen       = 3
	TopicMaxLen       = 100
	DescriptionMaxLen = 1000

	// Request creation prompts expire after this much inactivity and are
	// treated as an implicit cancellation, not an error.
	PromptTimeout = 5 * time.Minute

	// Status reporter
	StatusUpdateInterval = 5 * time.Minute

	// Leaderboard
	LeaderboardLimit = 10
)

// Config holds the process-level settings read from the environment.
type Config struct {
	BotToken      string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	PostgresDSN   string
}

// Load reads the configuration from environment variables. godotenv is
// expected to have populated the environment already (see cmd/main.go).
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     getEnv("JWT_SECRET", "coffee-chat-dev-secret"),
	}
	cfg.PostgresDSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "user"),
		getEnv("DB_PASSWORD", "password"),
		getEnv("DB_NAME", "coffeechat"),
		getEnv("DB_PORT", "5432"),
	)

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
