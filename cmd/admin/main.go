package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/scryst/coffee-chat-discord-bot/internal/config"
	"github.com/scryst/coffee-chat-discord-bot/internal/models"
	"github.com/scryst/coffee-chat-discord-bot/internal/storage"
)

func main() {
	_ = godotenv.Load()
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getenv("DB_HOST", "localhost"),
		getenv("DB_USER", "user"),
		getenv("DB_PASSWORD", "password"),
		getenv("DB_NAME", "coffeechat"),
		getenv("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     getenv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	s := storage.NewStorageService(db, rdb)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: stats <user_id> | leaderboard | cancel-request <request_id>")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "stats":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin stats <user_id>")
			os.Exit(1)
		}
		userID, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Println("Invalid user id. Please provide an integer.")
			os.Exit(1)
		}
		if err := printStats(s, userID); err != nil {
			log.Fatalf("Error loading stats: %v", err)
		}
	case "leaderboard":
		if err := printLeaderboard(s); err != nil {
			log.Fatalf("Error loading leaderboard: %v", err)
		}
	case "cancel-request":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin cancel-request <request_id>")
			os.Exit(1)
		}
		if err := cancelRequest(s, os.Args[2]); err != nil {
			log.Fatalf("Error cancelling request: %v", err)
		}
		fmt.Printf("Request %s has been cancelled.\n", os.Args[2])
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func printStats(s storage.Storage, userID int64) error {
	stats, err := s.GetUserStats(userID)
	if err != nil {
		return err
	}
	if stats == nil {
		fmt.Printf("User %d not found.\n", userID)
		return nil
	}
	fmt.Printf("%s (%d): %d chats, %d minutes\n", stats.Username, stats.UserID, stats.TotalChats, stats.TotalTime)
	return nil
}

func printLeaderboard(s storage.Storage) error {
	rows, err := s.GetLeaderboard(config.LeaderboardLimit)
	if err != nil {
		return err
	}
	for i, row := range rows {
		fmt.Printf("%2d. %s: %d chats, %d min\n", i+1, row.Username, row.TotalChats, row.TotalTime)
	}
	return nil
}

// cancelRequest force-cancels a pending request by id, for operator cleanup.
func cancelRequest(s storage.Storage, requestID string) error {
	moved, err := s.UpdateRequestStatus(requestID, models.RequestPending, models.RequestCancelled)
	if err != nil {
		return err
	}
	if !moved {
		return fmt.Errorf("request %s is not pending", requestID)
	}
	return s.RemovePendingFromBoard(requestID)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
