package storage

import (
	"encoding/json"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

// Redis keys for the live request board. The set mirrors the ids of pending
// requests so the status reporter can size the board without a table scan;
// the Pub/Sub channel fans request lifecycle events out to websocket
// subscribers (and any sibling process).
const (
	boardSetKey     = "board:pending"
	BoardEventsChan = "board:events"
)

// AddPendingToBoard mirrors a freshly created pending request into Redis.
func (s *Service) AddPendingToBoard(requestID string) error {
	return s.Redis.SAdd(s.Ctx, boardSetKey, requestID).Err()
}

// RemovePendingFromBoard drops a request that left the pending state.
func (s *Service) RemovePendingFromBoard(requestID string) error {
	return s.Redis.SRem(s.Ctx, boardSetKey, requestID).Err()
}

// PendingBoardCount returns the size of the mirrored pending set.
func (s *Service) PendingBoardCount() (int64, error) {
	return s.Redis.SCard(s.Ctx, boardSetKey).Result()
}

// PublishBoardEvent broadcasts a board event on the Pub/Sub channel.
func (s *Service) PublishBoardEvent(event models.BoardEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := s.Redis.Publish(s.Ctx, BoardEventsChan, payload).Err(); err != nil {
		log.Errorf("Failed to publish board event %s: %v", event.Kind, err)
		return err
	}
	return nil
}

// SubscribeBoardEvents subscribes to the board event channel. The caller
// owns the returned PubSub and must Close it.
func (s *Service) SubscribeBoardEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, BoardEventsChan)
}
