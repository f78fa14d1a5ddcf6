package pairing_test

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetRequestByID(id string) (*models.Request, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *MockStore) GetPendingRequestForUser(userID int64) (*models.Request, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *MockStore) UpdateRequestStatus(id, from, to string) (bool, error) {
	args := m.Called(id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CountPendingRequests() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) CreateChat(chat *models.Chat) error {
	args := m.Called(chat)
	return args.Error(0)
}

func (m *MockStore) MarkChatEnded(chatID string, endedAt time.Time) (bool, error) {
	args := m.Called(chatID, endedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) AddPendingToBoard(requestID string) error {
	args := m.Called(requestID)
	return args.Error(0)
}

func (m *MockStore) RemovePendingFromBoard(requestID string) error {
	args := m.Called(requestID)
	return args.Error(0)
}

func (m *MockStore) PublishBoardEvent(event models.BoardEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) StartChat(chat *models.Chat) error {
	args := m.Called(chat)
	return args.Error(0)
}

func (m *MockRelay) IsInActiveChat(userID int64) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}
