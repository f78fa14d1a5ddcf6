package relay_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/scryst/coffee-chat-discord-bot/internal/errs"
	"github.com/scryst/coffee-chat-discord-bot/internal/models"
	"github.com/scryst/coffee-chat-discord-bot/internal/relay"
)

func testChat() *models.Chat {
	return &models.Chat{
		ID:          "chat-1",
		RequestID:   "req-1",
		RequesterID: 10,
		AccepterID:  20,
		Topic:       "Rust vs Go",
		Status:      models.ChatActive,
		StartedAt:   time.Now(),
	}
}

// TestStartChatRegistersBothSides verifies the happy path: both users get the
// chat-started notice and both appear in the session map.
func TestStartChatRegistersBothSides(t *testing.T) {
	// Arrange
	store := new(MockStore)
	messenger := new(MockMessenger)
	core := relay.NewCore(store, messenger)
	chat := testChat()

	store.On("GetUserByID", int64(10)).Return(&models.User{ID: 10, Username: "alice"}, nil)
	store.On("GetUserByID", int64(20)).Return(&models.User{ID: 20, Username: "bob"}, nil)
	messenger.On("ChatStarted", int64(10), chat, "bob").Return(nil).Once()
	messenger.On("ChatStarted", int64(20), chat, "alice").Return(nil).Once()

	// Act
	err := core.StartChat(chat)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 2, core.ActiveSessionCount())
	messenger.AssertExpectations(t)
}

// TestStartChatUnreachableAccepterRollsBack verifies that a failed notice to
// either side removes both sessions: a chat must not exist half-registered.
func TestStartChatUnreachableAccepterRollsBack(t *testing.T) {
	// Arrange
	store := new(MockStore)
	messenger := new(MockMessenger)
	core := relay.NewCore(store, messenger)
	chat := testChat()

	store.On("GetUserByID", int64(10)).Return(&models.User{ID: 10, Username: "alice"}, nil)
	store.On("GetUserByID", int64(20)).Return(&models.User{ID: 20, Username: "bob"}, nil)
	messenger.On("ChatStarted", int64(10), chat, "bob").Return(nil)
	messenger.On("ChatStarted", int64(20), chat, "alice").Return(errors.New("blocked by user"))

	// Act
	err := core.StartChat(chat)

	// Assert
	assert.True(t, errs.Is(err, errs.CodeUnreachable))
	assert.Equal(t, 0, core.ActiveSessionCount())
}

// TestRelayMessageRoundTrip verifies a message is delivered to the partner
// and appended to the ledger.
func TestRelayMessageRoundTrip(t *testing.T) {
	// Arrange
	store := new(MockStore)
	messenger := new(MockMessenger)
	core := relay.NewCore(store, messenger)
	chat := testChat()
	startChat(t, core, store, messenger, chat)

	messenger.On("Deliver", int64(20), mock.AnythingOfType("*models.User"), "hello there", mock.Anything).Return(nil).Once()
	store.On("SaveMessage", mock.AnythingOfType("*models.Message")).Return(nil).Once()

	// Act
	err := core.RelayMessage(10, "hello there", nil)

	// Assert
	assert.NoError(t, err)
	store.AssertCalled(t, "SaveMessage", mock.MatchedBy(func(msg *models.Message) bool {
		return msg.ChatID == "chat-1" && msg.SenderID == 10 && msg.Content == "hello there"
	}))
	messenger.AssertExpectations(t)
}

// TestRelayMessageWithoutSession verifies the sender gets a not-in-chat
// rejection instead of a silent drop when no durable chat exists either.
func TestRelayMessageWithoutSession(t *testing.T) {
	// Arrange
	store := new(MockStore)
	messenger := new(MockMessenger)
	core := relay.NewCore(store, messenger)
	store.On("GetActiveChatForUser", int64(99)).Return(nil, nil)

	// Act
	err := core.RelayMessage(99, "hello?", nil)

	// Assert
	assert.True(t, errs.Is(err, errs.CodeNotInChat))
	messenger.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "SaveMessage", mock.Anything)
}

// TestRelayMessageRebuildsSessionAfterRestart verifies the first message
// from a user whose session map entry was lost with the process is still
// relayed: the session is rebuilt from the durable chat row on the fly.
func TestRelayMessageRebuildsSessionAfterRestart(t *testing.T) {
	// Arrange - a core with an empty session map but a durable active chat
	store := new(MockStore)
	messenger := new(MockMessenger)
	core := relay.NewCore(store, messenger)
	chat := testChat()
	chat.StartedAt = time.Now().Add(-10 * time.Minute)

	store.On("GetActiveChatForUser", int64(10)).Return(chat, nil).Once()
	store.On("GetUserByID", int64(10)).Return(&models.User{ID: 10, Username: "alice"}, nil)
	messenger.On("Deliver", int64(20), mock.AnythingOfType("*models.User"), "hello after restart", mock.Anything).Return(nil).Once()
	store.On("SaveMessage", mock.AnythingOfType("*models.Message")).Return(nil).Once()

	// Act
	err := core.RelayMessage(10, "hello after restart", nil)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 2, core.ActiveSessionCount())
	store.AssertCalled(t, "SaveMessage", mock.MatchedBy(func(msg *models.Message) bool {
		return msg.ChatID == "chat-1" && msg.SenderID == 10
	}))
	messenger.AssertExpectations(t)
}

// TestRelayMessagePersistsEvenWhenDeliveryFails verifies the ledger records
// "sent", not "received": the row is written before the failure surfaces,
// and an unreachable partner ends the chat implicitly.
func TestRelayMessagePersistsEvenWhenDeliveryFails(t *testing.T) {
	// Arrange
	store := new(MockStore)
	messenger := new(MockMessenger)
	core := relay.NewCore(store, messenger)
	chat := testChat()
	startChat(t, core, store, messenger, chat)

	messenger.On("Deliver", int64(20), mock.AnythingOfType("*models.User"), "are you there?", mock.Anything).Return(errors.New("blocked by user"))
	store.On("SaveMessage", mock.AnythingOfType("*models.Message")).Return(nil).Once()

	// Implicit end path.
	store.On("MarkChatEnded", "chat-1", mock.AnythingOfType("time.Time")).Return(true, nil).Once()
	store.On("CreateChatHistory", mock.AnythingOfType("*models.ChatHistory")).Return(nil).Once()
	store.On("IncrementUserStats", mock.Anything, mock.Anything).Return(nil)
	messenger.On("ChatEnded", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// Act
	err := core.RelayMessage(10, "are you there?", nil)

	// Assert
	assert.True(t, errs.Is(err, errs.CodeUnreachable))
	assert.Equal(t, 0, core.ActiveSessionCount(), "unreachable partner must tear the session down")
	store.AssertCalled(t, "SaveMessage", mock.AnythingOfType("*models.Message"))
}

// TestEndChatRecordsHistoryOnce verifies the full teardown: history row,
// stats for both users, notices to both sides, and an idempotent second call.
func TestEndChatRecordsHistoryOnce(t *testing.T) {
	// Arrange
	store := new(MockStore)
	messenger := new(MockMessenger)
	core := relay.NewCore(store, messenger)
	chat := testChat()
	startChat(t, core, store, messenger, chat)

	store.On("MarkChatEnded", "chat-1", mock.AnythingOfType("time.Time")).Return(true, nil).Once()
	store.On("CreateChatHistory", mock.AnythingOfType("*models.ChatHistory")).Return(nil).Once()
	store.On("IncrementUserStats", int64(10), mock.Anything).Return(nil).Once()
	store.On("IncrementUserStats", int64(20), mock.Anything).Return(nil).Once()
	messenger.On("ChatEnded", int64(10), mock.Anything, mock.Anything).Return(nil).Once()
	messenger.On("ChatEnded", int64(20), mock.Anything, mock.Anything).Return(nil).Once()

	// Act
	minutes, err := core.EndChat(10, false)

	// Assert
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, minutes, 0)
	assert.Equal(t, 0, core.ActiveSessionCount())
	store.AssertCalled(t, "CreateChatHistory", mock.MatchedBy(func(h *models.ChatHistory) bool {
		return h.ChatID == "chat-1" && len(h.Participants) == 2
	}))

	// Act again - the partner tries to end the same chat
	_, err = core.EndChat(20, false)

	// Assert - second end is reported, not silently absorbed
	assert.True(t, errs.Is(err, errs.CodeNotInChat))
	store.AssertExpectations(t)
	messenger.AssertExpectations(t)
}

// TestEndChatSilentSkipsNotices verifies the silent flag suppresses farewell
// notices while still closing the chat durably.
func TestEndChatSilentSkipsNotices(t *testing.T) {
	// Arrange
	store := new(MockStore)
	messenger := new(MockMessenger)
	core := relay.NewCore(store, messenger)
	chat := testChat()
	startChat(t, core, store, messenger, chat)

	store.On("MarkChatEnded", "chat-1", mock.AnythingOfType("time.Time")).Return(true, nil).Once()
	store.On("CreateChatHistory", mock.AnythingOfType("*models.ChatHistory")).Return(nil).Once()
	store.On("IncrementUserStats", mock.Anything, mock.Anything).Return(nil)

	// Act
	_, err := core.EndChat(20, true)

	// Assert
	assert.NoError(t, err)
	messenger.AssertNotCalled(t, "ChatEnded", mock.Anything, mock.Anything, mock.Anything)
}

// TestIsInActiveChatRebuildsSession verifies the durable-store fallback: a
// session lost with the process is reconstructed from the persisted Chat row
// with its original start instant.
func TestIsInActiveChatRebuildsSession(t *testing.T) {
	// Arrange - a core with an empty session map, as after a restart
	store := new(MockStore)
	messenger := new(MockMessenger)
	core := relay.NewCore(store, messenger)

	startedAt := time.Now().Add(-30 * time.Minute)
	chat := testChat()
	chat.StartedAt = startedAt
	store.On("GetActiveChatForUser", int64(10)).Return(chat, nil).Once()

	// Act
	active, err := core.IsInActiveChat(10)

	// Assert - both sides restored from one lookup
	assert.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, 2, core.ActiveSessionCount())

	// The rebuilt session keeps the persisted start instant: ending now
	// must report the full elapsed duration, not near-zero.
	store.On("MarkChatEnded", "chat-1", mock.AnythingOfType("time.Time")).Return(true, nil).Once()
	store.On("CreateChatHistory", mock.AnythingOfType("*models.ChatHistory")).Return(nil).Once()
	store.On("IncrementUserStats", mock.Anything, mock.Anything).Return(nil)

	minutes, err := core.EndChat(10, true)
	assert.NoError(t, err)
	assert.Equal(t, 30, minutes)
}

// TestIsInActiveChatMiss verifies a user with no durable chat stays idle.
func TestIsInActiveChatMiss(t *testing.T) {
	// Arrange
	store := new(MockStore)
	messenger := new(MockMessenger)
	core := relay.NewCore(store, messenger)
	store.On("GetActiveChatForUser", int64(7)).Return(nil, nil).Once()

	// Act
	active, err := core.IsInActiveChat(7)

	// Assert
	assert.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, 0, core.ActiveSessionCount())
}

// startChat drives the happy-path StartChat so tests begin from a live session.
func startChat(t *testing.T, core *relay.Core, store *MockStore, messenger *MockMessenger, chat *models.Chat) {
	t.Helper()
	store.On("GetUserByID", int64(10)).Return(&models.User{ID: 10, Username: "alice"}, nil)
	store.On("GetUserByID", int64(20)).Return(&models.User{ID: 20, Username: "bob"}, nil)
	messenger.On("ChatStarted", int64(10), chat, "bob").Return(nil).Once()
	messenger.On("ChatStarted", int64(20), chat, "alice").Return(nil).Once()
	assert.NoError(t, core.StartChat(chat))
}
