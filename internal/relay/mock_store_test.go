package relay_test

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetUserByID(id int64) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) GetActiveChatForUser(userID int64) (*models.Chat, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockStore) MarkChatEnded(chatID string, endedAt time.Time) (bool, error) {
	args := m.Called(chatID, endedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CreateChatHistory(h *models.ChatHistory) error {
	args := m.Called(h)
	return args.Error(0)
}

func (m *MockStore) SaveMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStore) IncrementUserStats(userID int64, minutes int) error {
	args := m.Called(userID, minutes)
	return args.Error(0)
}

type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) ChatStarted(userID int64, chat *models.Chat, partnerName string) error {
	args := m.Called(userID, chat, partnerName)
	return args.Error(0)
}

func (m *MockMessenger) ChatEnded(userID int64, chat *models.Chat, minutes int) error {
	args := m.Called(userID, chat, minutes)
	return args.Error(0)
}

func (m *MockMessenger) Deliver(to int64, from *models.User, text string, attachments []models.Attachment) error {
	args := m.Called(to, from, text, attachments)
	return args.Error(0)
}
