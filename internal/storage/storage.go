package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

// Storage is the full durable-store surface. Consumers depend on narrow
// subsets of it (see registry.Store, pairing.Store, relay.Store); Service
// satisfies all of them. All writes are single-row operations; the
// lifecycle core compensates across rows instead of relying on cross-row
// transactions.
type Storage interface {
	// Users
	GetOrCreateUser(id int64, username string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	IncrementUserStats(userID int64, minutes int) error
	GetUserStats(id int64) (*models.Stats, error)
	GetLeaderboard(limit int) ([]models.Stats, error)

	// Requests
	CreateRequest(req *models.Request) error
	GetRequestByID(id string) (*models.Request, error)
	GetPendingRequestForUser(userID int64) (*models.Request, error)
	ListPendingRequests(excludeUserID, groupID int64) ([]models.Request, error)
	UpdateRequestStatus(id, from, to string) (bool, error)
	SetRequestAnnouncement(id string, chatID int64, messageID int) error
	CountPendingRequests() (int64, error)

	// Chats
	CreateChat(chat *models.Chat) error
	GetChatByID(id string) (*models.Chat, error)
	GetActiveChatForUser(userID int64) (*models.Chat, error)
	MarkChatEnded(chatID string, endedAt time.Time) (bool, error)

	// Ledger
	CreateChatHistory(h *models.ChatHistory) error
	SaveMessage(msg *models.Message) error

	// Request board (Redis)
	AddPendingToBoard(requestID string) error
	RemovePendingFromBoard(requestID string) error
	PendingBoardCount() (int64, error)
	PublishBoardEvent(event models.BoardEvent) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// GetOrCreateUser fetches the user or creates it on first interaction.
// A changed username is written back so stats and leaderboard rows stay
// readable.
func (s *Service) GetOrCreateUser(id int64, username string) (*models.User, error) {
	var user models.User
	defaults := models.User{
		ID:        id,
		Username:  username,
		FirstSeen: time.Now(),
	}

	result := s.DB.Where("id = ?", id).FirstOrCreate(&user, defaults)
	if result.Error != nil {
		log.Errorf("Failed to get/create user %d: %v", id, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		log.Infof("New user %d (%s) saved to database", id, username)
	} else if username != "" && user.Username != username {
		user.Username = username
		if err := s.DB.Model(&user).Update("username", username).Error; err != nil {
			log.Warnf("Failed to refresh username for user %d: %v", id, err)
		}
	}
	return &user, nil
}

func (s *Service) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IncrementUserStats bumps the completed-chat counter and cumulative
// minutes for one user. Called once per participant on chat completion.
func (s *Service) IncrementUserStats(userID int64, minutes int) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"total_chats": gorm.Expr("total_chats + 1"),
			"total_time":  gorm.Expr("total_time + ?", minutes),
		}).Error
}

func (s *Service) GetUserStats(id int64) (*models.Stats, error) {
	user, err := s.GetUserByID(id)
	if err != nil || user == nil {
		return nil, err
	}
	return &models.Stats{
		UserID:     user.ID,
		Username:   user.Username,
		TotalChats: user.TotalChats,
		TotalTime:  user.TotalTime,
	}, nil
}

// GetLeaderboard returns users ranked by completed chats, then cumulative
// time, descending. Users with no completed chats are excluded.
func (s *Service) GetLeaderboard(limit int) ([]models.Stats, error) {
	var rows []models.Stats
	err := s.DB.Model(&models.User{}).
		Select("id as user_id, username, total_chats, total_time").
		Where("total_chats > 0").
		Order("total_chats DESC, total_time DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		log.Errorf("Failed to load leaderboard: %v", err)
		return nil, err
	}
	return rows, nil
}

func (s *Service) CreateRequest(req *models.Request) error {
	return s.DB.Create(req).Error
}

func (s *Service) GetRequestByID(id string) (*models.Request, error) {
	var req models.Request
	err := s.DB.Where("id = ?", id).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetPendingRequestForUser returns the user's open request, or nil when the
// user has none.
func (s *Service) GetPendingRequestForUser(userID int64) (*models.Request, error) {
	var req models.Request
	err := s.DB.Where("user_id = ? AND status = ?", userID, models.RequestPending).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListPendingRequests returns open requests newest first. A non-zero
// excludeUserID drops that user's own request; groupID selects the
// visibility context (see pendingScopeFilter).
func (s *Service) ListPendingRequests(excludeUserID, groupID int64) ([]models.Request, error) {
	q := s.DB.Where("status = ?", models.RequestPending)
	if excludeUserID != 0 {
		q = q.Where("user_id != ?", excludeUserID)
	}
	cond, args := pendingScopeFilter(groupID)
	q = q.Where(cond, args...)

	var requests []models.Request
	if err := q.Order("created_at DESC").Find(&requests).Error; err != nil {
		log.Errorf("Failed to list pending requests: %v", err)
		return nil, err
	}
	return requests, nil
}

// pendingScopeFilter narrows request visibility for a listing context. A
// group listing sees global requests plus its own group's local ones; a
// private listing (groupID 0) sees only global requests, so local requests
// never leak outside their group.
func pendingScopeFilter(groupID int64) (string, []interface{}) {
	if groupID == 0 {
		return "scope = ?", []interface{}{models.ScopeGlobal}
	}
	return "scope = ? OR group_id = ?", []interface{}{models.ScopeGlobal, groupID}
}

// UpdateRequestStatus transitions a request from one status to another and
// reports whether the row was actually moved. The conditional WHERE keeps
// concurrent accept/cancel attempts from both claiming the same request.
func (s *Service) UpdateRequestStatus(id, from, to string) (bool, error) {
	result := s.DB.Model(&models.Request{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		log.Errorf("Failed to move request %s %s->%s: %v", id, from, to, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetRequestAnnouncement records where the public board post for a request
// lives so it can be edited after the request leaves the pending state.
func (s *Service) SetRequestAnnouncement(id string, chatID int64, messageID int) error {
	return s.DB.Model(&models.Request{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"announcement_chat_id":    chatID,
			"announcement_message_id": messageID,
		}).Error
}

func (s *Service) CountPendingRequests() (int64, error) {
	var count int64
	err := s.DB.Model(&models.Request{}).
		Where("status = ?", models.RequestPending).
		Count(&count).Error
	return count, err
}

func (s *Service) CreateChat(chat *models.Chat) error {
	return s.DB.Create(chat).Error
}

func (s *Service) GetChatByID(id string) (*models.Chat, error) {
	var chat models.Chat
	err := s.DB.Where("id = ?", id).First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetActiveChatForUser finds the active chat a user takes part in, or nil.
// This is the durable fallback behind relay session reconstruction.
func (s *Service) GetActiveChatForUser(userID int64) (*models.Chat, error) {
	var chat models.Chat
	err := s.DB.Where("status = ?", models.ChatActive).
		Where("requester_id = ? OR accepter_id = ?", userID, userID).
		First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Errorf("Failed to find active chat for user %d: %v", userID, err)
		return nil, err
	}
	return &chat, nil
}

// MarkChatEnded closes an active chat and reports whether this call was the
// one that closed it, so concurrent enders cannot both record history.
func (s *Service) MarkChatEnded(chatID string, endedAt time.Time) (bool, error) {
	result := s.DB.Model(&models.Chat{}).
		Where("id = ? AND status = ?", chatID, models.ChatActive).
		Updates(map[string]interface{}{
			"status":   models.ChatEnded,
			"ended_at": endedAt,
		})
	if result.Error != nil {
		log.Errorf("Failed to mark chat %s ended: %v", chatID, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) CreateChatHistory(h *models.ChatHistory) error {
	if err := s.DB.Create(h).Error; err != nil {
		log.Errorf("Failed to save chat history for chat %s: %v", h.ChatID, err)
		return err
	}
	return nil
}

// SaveMessage appends one relayed message to the ledger.
func (s *Service) SaveMessage(msg *models.Message) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	if err := s.DB.Create(msg).Error; err != nil {
		log.Errorf("Failed to save message for chat %s: %v", msg.ChatID, err)
		return err
	}
	return nil
}
