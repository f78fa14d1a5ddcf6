// Package relay owns the authoritative in-memory map of active chat
// sessions and routes direct messages between paired users. The map is a
// cache over the durable Chat rows: after a process restart a session is
// rebuilt from storage on first lookup, keeping the persisted start instant.
package relay

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scryst/coffee-chat-discord-bot/internal/errs"
	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

// Store is the slice of the durable store the relay core needs.
type Store interface {
	GetUserByID(id int64) (*models.User, error)
	GetActiveChatForUser(userID int64) (*models.Chat, error)
	MarkChatEnded(chatID string, endedAt time.Time) (bool, error)
	CreateChatHistory(h *models.ChatHistory) error
	SaveMessage(msg *models.Message) error
	IncrementUserStats(userID int64, minutes int) error
}

// Messenger delivers bot messages to a user's direct channel. Every method
// reports CodeUnreachable when the user cannot be messaged; the core treats
// that as terminal for the session, never as a retryable transient.
type Messenger interface {
	ChatStarted(userID int64, chat *models.Chat, partnerName string) error
	ChatEnded(userID int64, chat *models.Chat, minutes int) error
	Deliver(to int64, from *models.User, text string, attachments []models.Attachment) error
}

// session is the in-memory record of one side of an active chat.
type session struct {
	chatID    string
	partnerID int64
	startedAt time.Time
}

// Core is the relay state machine. The session map is the only shared
// mutable resource and every read-modify-write on it happens under mu.
type Core struct {
	Store     Store
	Messenger Messenger

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewCore(s Store, m Messenger) *Core {
	return &Core{
		Store:     s,
		Messenger: m,
		sessions:  make(map[int64]*session),
	}
}

// StartChat registers both participants and sends the "chat started" notice
// to each side. If either side is unreachable the registration is rolled
// back for both and the call fails: a chat must not exist half-registered.
func (c *Core) StartChat(chat *models.Chat) error {
	c.mu.Lock()
	if _, busy := c.sessions[chat.RequesterID]; busy {
		c.mu.Unlock()
		return errs.New(errs.CodeRequesterBusy, "requester already has a relay session")
	}
	if _, busy := c.sessions[chat.AccepterID]; busy {
		c.mu.Unlock()
		return errs.New(errs.CodeAccepterBusy, "accepter already has a relay session")
	}
	c.register(chat, chat.StartedAt)
	c.mu.Unlock()

	requester, err := c.Store.GetUserByID(chat.RequesterID)
	if err != nil || requester == nil {
		c.unregister(chat.RequesterID)
		return errs.Internal("failed to load requester", err)
	}
	accepter, err := c.Store.GetUserByID(chat.AccepterID)
	if err != nil || accepter == nil {
		c.unregister(chat.RequesterID)
		return errs.Internal("failed to load accepter", err)
	}

	if err := c.Messenger.ChatStarted(chat.RequesterID, chat, accepter.Username); err != nil {
		log.Errorf("Cannot send chat-started notice to user %d: %v", chat.RequesterID, err)
		c.unregister(chat.RequesterID)
		return errs.Wrap(errs.CodeUnreachable, "requester cannot be messaged", err)
	}
	if err := c.Messenger.ChatStarted(chat.AccepterID, chat, requester.Username); err != nil {
		log.Errorf("Cannot send chat-started notice to user %d: %v", chat.AccepterID, err)
		c.unregister(chat.AccepterID)
		return errs.Wrap(errs.CodeUnreachable, "accepter cannot be messaged", err)
	}

	log.Infof("Started chat %s between users %d and %d", chat.ID, chat.RequesterID, chat.AccepterID)
	return nil
}

// RelayMessage forwards one direct message from the sender to their chat
// partner and appends it to the message ledger. The ledger entry is written
// even when delivery fails, so history records "sent", not "received". An
// unreachable partner tears the whole session down as an implicit end.
func (c *Core) RelayMessage(senderID int64, text string, attachments []models.Attachment) error {
	sess, ok := c.lookup(senderID)
	if !ok {
		// A live pairing can outlive the session map across a process
		// restart; rebuild from the durable row before rejecting.
		active, err := c.IsInActiveChat(senderID)
		if err != nil {
			return errs.Internal("failed to check active chat state", err)
		}
		if !active {
			return errs.New(errs.CodeNotInChat, "sender is not in an active chat")
		}
		if sess, ok = c.lookup(senderID); !ok {
			return errs.New(errs.CodeNotInChat, "sender is not in an active chat")
		}
	}
	chatID, partnerID := sess.chatID, sess.partnerID

	sender, err := c.Store.GetUserByID(senderID)
	if err != nil || sender == nil {
		return errs.Internal("failed to load sender", err)
	}

	deliverErr := c.Messenger.Deliver(partnerID, sender, text, attachments)

	msg := &models.Message{
		ChatID:        chatID,
		SenderID:      senderID,
		Content:       text,
		HasAttachment: len(attachments) > 0,
		SentAt:        time.Now(),
	}
	if err := c.Store.SaveMessage(msg); err != nil {
		return errs.Internal("failed to persist message", err)
	}

	if deliverErr != nil {
		log.Errorf("Cannot deliver message to user %d, ending chat %s: %v", partnerID, chatID, deliverErr)
		if _, err := c.EndChat(senderID, false); err != nil {
			log.Warnf("Implicit end of chat %s failed: %v", chatID, err)
		}
		return errs.Wrap(errs.CodeUnreachable, "partner cannot be messaged", deliverErr)
	}
	return nil
}

// EndChat removes both participants from the session map, records the chat
// history row, bumps both users' stats, and notifies the participants with
// the computed duration unless silent. Ending an already-ended session
// reports CodeNotInChat; concurrent enders race on the map entry, so only
// one history row is ever written.
func (c *Core) EndChat(userID int64, silent bool) (int, error) {
	c.mu.Lock()
	sess, ok := c.sessions[userID]
	if !ok {
		c.mu.Unlock()
		return 0, errs.New(errs.CodeNotInChat, "user has no active chat")
	}
	delete(c.sessions, userID)
	delete(c.sessions, sess.partnerID)
	c.mu.Unlock()

	now := time.Now()
	minutes := int(now.Sub(sess.startedAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}

	moved, err := c.Store.MarkChatEnded(sess.chatID, now)
	if err != nil {
		return minutes, errs.Internal("failed to close chat", err)
	}
	if moved {
		history := &models.ChatHistory{
			ChatID:       sess.chatID,
			Participants: []int64{userID, sess.partnerID},
			Duration:     minutes,
			EndedAt:      now,
		}
		if err := c.Store.CreateChatHistory(history); err != nil {
			return minutes, errs.Internal("failed to record chat history", err)
		}
		for _, id := range []int64{userID, sess.partnerID} {
			if err := c.Store.IncrementUserStats(id, minutes); err != nil {
				log.Warnf("Failed to update stats for user %d: %v", id, err)
			}
		}
	}

	if !silent {
		chat := &models.Chat{ID: sess.chatID, StartedAt: sess.startedAt, EndedAt: &now}
		for _, id := range []int64{userID, sess.partnerID} {
			if err := c.Messenger.ChatEnded(id, chat, minutes); err != nil {
				// Unreachable at teardown is dropped: there is nobody
				// left to escalate to.
				log.Warnf("Cannot send chat-ended notice to user %d: %v", id, err)
			}
		}
	}

	log.Infof("Ended chat %s between users %d and %d (%d min)", sess.chatID, userID, sess.partnerID, minutes)
	return minutes, nil
}

// IsInActiveChat checks the in-memory map first and falls back to the
// durable store on a miss, rebuilding the session from the persisted Chat
// row so an active pairing survives a process restart.
func (c *Core) IsInActiveChat(userID int64) (bool, error) {
	c.mu.Lock()
	_, ok := c.sessions[userID]
	c.mu.Unlock()
	if ok {
		return true, nil
	}

	chat, err := c.Store.GetActiveChatForUser(userID)
	if err != nil {
		return false, err
	}
	if chat == nil {
		return false, nil
	}

	c.mu.Lock()
	c.register(chat, chat.StartedAt)
	c.mu.Unlock()
	log.Infof("Restored relay session for chat %s (users %d and %d)", chat.ID, chat.RequesterID, chat.AccepterID)
	return true, nil
}

// ActiveSessionCount returns the number of users with a live session.
func (c *Core) ActiveSessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// lookup reads one user's session under the lock. Session fields are
// immutable after registration, so the value is safe to use after release.
func (c *Core) lookup(userID int64) (*session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[userID]
	return sess, ok
}

// register inserts both sides of a chat into the session map. Caller holds mu.
func (c *Core) register(chat *models.Chat, startedAt time.Time) {
	c.sessions[chat.RequesterID] = &session{
		chatID:    chat.ID,
		partnerID: chat.AccepterID,
		startedAt: startedAt,
	}
	c.sessions[chat.AccepterID] = &session{
		chatID:    chat.ID,
		partnerID: chat.RequesterID,
		startedAt: startedAt,
	}
}

// unregister removes a user and their partner from the session map.
func (c *Core) unregister(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sess, ok := c.sessions[userID]; ok {
		delete(c.sessions, sess.partnerID)
		delete(c.sessions, userID)
	}
}
