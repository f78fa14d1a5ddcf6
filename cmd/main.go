package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/scryst/coffee-chat-discord-bot/internal/api/handler"
	"github.com/scryst/coffee-chat-discord-bot/internal/config"
	"github.com/scryst/coffee-chat-discord-bot/internal/models"
	"github.com/scryst/coffee-chat-discord-bot/internal/pairing"
	"github.com/scryst/coffee-chat-discord-bot/internal/registry"
	"github.com/scryst/coffee-chat-discord-bot/internal/relay"
	"github.com/scryst/coffee-chat-discord-bot/internal/status"
	"github.com/scryst/coffee-chat-discord-bot/internal/storage"
	"github.com/scryst/coffee-chat-discord-bot/internal/telegram"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Request{},
		&models.Chat{},
		&models.ChatHistory{},
		&models.Message{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Info("Database and Redis connections established, migrations complete")
	return db, rdb
}

func main() {
	log.Info("Starting Coffee Chat Bot...")

	if err := godotenv.Load(); err != nil {
		log.Warn("Error loading .env file")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	botAPI, err := telegram.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to start Telegram bot: %v", err)
	}

	// Lifecycle core: the relay owns the session map; the registry and
	// the resolver consult it for busy checks and drive chat startup.
	messenger := telegram.NewMessenger(botAPI)
	core := relay.NewCore(s, messenger)
	reg := registry.NewRegistry(s, core)
	res := pairing.NewResolver(s, core)

	botService := telegram.NewBotService(botAPI, reg, res, core, s)
	updater := status.NewUpdater(s, messenger)

	go botService.Run()
	go updater.Run()

	r := gin.Default()
	h := handler.NewHandler(s, cfg, botAPI.Self.UserName)
	h.Routes(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	log.Fatal(server.ListenAndServe())
}
