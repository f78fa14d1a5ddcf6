package registry_test

import (
	"github.com/stretchr/testify/mock"

	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateRequest(req *models.Request) error {
	args := m.Called(req)
	return args.Error(0)
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

func (m *MockStore) ListPendingRequests(excludeUserID, groupID int64) ([]models.Request, error) {
	args := m.Called(excludeUserID, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Request), args.Error(1)
}

func (m *MockStore) UpdateRequestStatus(id, from, to string) (bool, error) {
	args := m.Called(id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) SetRequestAnnouncement(id string, chatID int64, messageID int) error {
	args := m.Called(id, chatID, messageID)
	return args.Error(0)
}

func (m *MockStore) CountPendingRequests() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
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

type MockPresence struct {
	mock.Mock
}

func (m *MockPresence) IsInActiveChat(userID int64) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}
