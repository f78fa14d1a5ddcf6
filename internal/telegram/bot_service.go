// Package telegram handles the integration with the Telegram Bot API.
// It receives updates, routes commands and callback queries into the
// lifecycle core, and relays plain direct messages between chat partners.
package telegram

import (
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/scryst/coffee-chat-discord-bot/internal/config"
	"github.com/scryst/coffee-chat-discord-bot/internal/errs"
	"github.com/scryst/coffee-chat-discord-bot/internal/models"
	"github.com/scryst/coffee-chat-discord-bot/internal/pairing"
	"github.com/scryst/coffee-chat-discord-bot/internal/registry"
	"github.com/scryst/coffee-chat-discord-bot/internal/relay"
	"github.com/scryst/coffee-chat-discord-bot/internal/storage"
)

// Prompt stages for the two-step request creation flow.
const (
	StateWaitingForTopic       = "waiting_for_topic"
	StateWaitingForDescription = "waiting_for_description"
)

// promptState tracks one user's in-flight request creation. A prompt left
// idle past config.PromptTimeout is treated as an implicit cancellation.
type promptState struct {
	Stage     string
	Topic     string
	GroupID   int64
	Scope     string
	StartedAt time.Time
}

// BotService receives Telegram updates and routes them into the core.
type BotService struct {
	BotAPI   *tgbotapi.BotAPI
	Registry *registry.Registry
	Resolver *pairing.Resolver
	Relay    *relay.Core
	Storage  storage.Storage

	mu         sync.Mutex
	userStates map[int64]*promptState
}

// NewBotAPI authorizes the bot account for the given token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Infof("Authorized on account %s", bot.Self.UserName)
	return bot, nil
}

// NewBotService creates a new BotService instance.
func NewBotService(api *tgbotapi.BotAPI, reg *registry.Registry, res *pairing.Resolver, core *relay.Core, s storage.Storage) *BotService {
	return &BotService{
		BotAPI:     api,
		Registry:   reg,
		Resolver:   res,
		Relay:      core,
		Storage:    s,
		userStates: make(map[int64]*promptState),
	}
}

// Run is the main loop for receiving Telegram updates.
func (s *BotService) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for update := range updates {
		switch {
		case update.Message != nil:
			s.handleMessage(update.Message)
		case update.CallbackQuery != nil:
			s.handleCallbackQuery(update.CallbackQuery)
		}
	}
}

// userOf upserts the sender so stats rows always exist before the core runs.
func (s *BotService) userOf(from *tgbotapi.User) *models.User {
	name := from.UserName
	if name == "" {
		name = strings.TrimSpace(from.FirstName + " " + from.LastName)
	}
	user, err := s.Storage.GetOrCreateUser(from.ID, name)
	if err != nil {
		log.Errorf("Failed to get/create user %d: %v", from.ID, err)
		return &models.User{ID: from.ID, Username: name}
	}
	return user
}

func (s *BotService) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	user := s.userOf(msg.From)

	if msg.IsCommand() {
		s.handleCommand(msg, user)
		return
	}

	if state := s.takePromptInput(user.ID); state != nil {
		s.advancePrompt(msg, user, state)
		return
	}

	// Plain messages only relay from private chats; group chatter is not
	// the bot's business.
	if msg.Chat.IsPrivate() {
		s.relayIncoming(msg, user)
	}
}

func (s *BotService) handleCommand(msg *tgbotapi.Message, user *models.User) {
	switch msg.Command() {
	case "start", "help", "coffee":
		s.sendMenu(msg.Chat.ID, user.ID)
	case "request":
		s.handleRequestCommand(msg, user)
	case "requests":
		s.handleViewRequests(msg.Chat.ID, user, s.groupIDOf(msg))
	case "accept":
		requestID := strings.TrimSpace(msg.CommandArguments())
		if requestID == "" {
			s.reply(msg.Chat.ID, "Usage: /accept <request id>")
			return
		}
		s.handleAccept(msg.Chat.ID, user, requestID)
	case "cancel":
		s.handleCancel(msg.Chat.ID, user)
	case "end":
		s.handleEnd(msg.Chat.ID, user)
	case "stats":
		s.handleStats(msg.Chat.ID, user)
	case "leaderboard":
		s.handleLeaderboard(msg.Chat.ID)
	}
}

// groupIDOf returns the originating group id, or 0 for private chats.
func (s *BotService) groupIDOf(msg *tgbotapi.Message) int64 {
	if msg.Chat.IsPrivate() {
		return 0
	}
	return msg.Chat.ID
}

// handleRequestCommand creates a request from "/request topic | description",
// or starts the interactive prompt when no arguments are given.
func (s *BotService) handleRequestCommand(msg *tgbotapi.Message, user *models.User) {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		s.beginPrompt(msg.Chat.ID, user.ID, s.groupIDOf(msg), s.scopeOf(msg))
		return
	}

	topic, description := args, ""
	if i := strings.Index(args, "|"); i >= 0 {
		topic, description = strings.TrimSpace(args[:i]), strings.TrimSpace(args[i+1:])
	}
	s.createRequest(msg.Chat.ID, user, s.groupIDOf(msg), topic, description, s.scopeOf(msg))
}

// scopeOf derives request visibility: group-born requests stay local to the
// group, private ones go on the global board.
func (s *BotService) scopeOf(msg *tgbotapi.Message) string {
	if msg.Chat.IsPrivate() {
		return models.ScopeGlobal
	}
	return models.ScopeLocal
}

func (s *BotService) createRequest(chatID int64, user *models.User, groupID int64, topic, description, scope string) {
	req, err := s.Registry.Create(user, groupID, topic, description, scope)
	if err != nil {
		if errs.Is(err, errs.CodeRequesterBusy) {
			s.reply(chatID, "You are already in an active coffee chat. End it before creating a request.")
			return
		}
		s.reply(chatID, RejectionText(err))
		return
	}

	s.reply(chatID, "Your coffee chat request has been created!")
	s.announceRequest(chatID, req, user)
}

// announceRequest posts the public card with the accept button and stores
// the announcement reference so the card can be edited later.
func (s *BotService) announceRequest(chatID int64, req *models.Request, owner *models.User) {
	card := tgbotapi.NewMessage(chatID, RequestCard(req, owner.Username))
	card.ParseMode = tgbotapi.ModeMarkdown
	card.ReplyMarkup = AcceptKeyboard(req.ID)
	sent, err := s.BotAPI.Send(card)
	if err != nil {
		log.Warnf("Failed to announce request %s: %v", req.ID, err)
		return
	}
	if err := s.Registry.UpdateAnnouncement(req.ID, sent.Chat.ID, sent.MessageID); err != nil {
		log.Warnf("Failed to store announcement for request %s: %v", req.ID, err)
	}
}

// refreshAnnouncement rewrites the public card after a request left the
// pending state, dropping the accept button.
func (s *BotService) refreshAnnouncement(requestID string) {
	req, err := s.Storage.GetRequestByID(requestID)
	if err != nil || req == nil || req.AnnouncementChatID == nil || req.AnnouncementMessageID == nil {
		return
	}
	owner, err := s.Storage.GetUserByID(req.UserID)
	if err != nil || owner == nil {
		return
	}
	edit := tgbotapi.NewEditMessageText(*req.AnnouncementChatID, *req.AnnouncementMessageID, RequestCard(req, owner.Username))
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.BotAPI.Request(edit); err != nil {
		log.Warnf("Failed to edit announcement for request %s: %v", requestID, err)
	}
}

func (s *BotService) handleViewRequests(chatID int64, user *models.User, groupID int64) {
	requests, err := s.Registry.ListPending(user.ID, groupID)
	if err != nil {
		s.reply(chatID, RejectionText(err))
		return
	}

	text, keyboard := RequestList(requests)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if len(keyboard.InlineKeyboard) > 0 {
		msg.ReplyMarkup = keyboard
	}
	if _, err := s.BotAPI.Send(msg); err != nil {
		log.Warnf("Failed to send request list to %d: %v", chatID, err)
	}
}

func (s *BotService) handleAccept(chatID int64, user *models.User, requestID string) {
	chat, err := s.Resolver.Accept(requestID, user)
	if err != nil {
		s.reply(chatID, RejectionText(err))
		return
	}
	s.reply(chatID, "You've accepted the coffee chat request! Check your messages to start chatting.")
	s.refreshAnnouncement(chat.RequestID)
}

func (s *BotService) handleCancel(chatID int64, user *models.User) {
	req, err := s.Registry.OpenRequestFor(user.ID)
	if err != nil {
		s.reply(chatID, RejectionText(err))
		return
	}
	if req == nil {
		s.reply(chatID, "You don't have any pending coffee chat requests.")
		return
	}
	if err := s.Registry.Cancel(req.ID, user.ID); err != nil {
		s.reply(chatID, RejectionText(err))
		return
	}
	s.reply(chatID, "Your coffee chat request has been cancelled.")
	s.refreshAnnouncement(req.ID)
}

func (s *BotService) handleEnd(chatID int64, user *models.User) {
	if _, err := s.Relay.EndChat(user.ID, false); err != nil {
		s.reply(chatID, RejectionText(err))
	}
}

func (s *BotService) handleStats(chatID int64, user *models.User) {
	stats, err := s.Storage.GetUserStats(user.ID)
	if err != nil || stats == nil {
		s.reply(chatID, "You haven't participated in any coffee chats yet.")
		return
	}
	s.reply(chatID, StatsText(stats))
}

func (s *BotService) handleLeaderboard(chatID int64) {
	rows, err := s.Storage.GetLeaderboard(config.LeaderboardLimit)
	if err != nil {
		s.reply(chatID, RejectionText(err))
		return
	}
	s.reply(chatID, LeaderboardText(rows))
}

// relayIncoming forwards a plain direct message to the sender's partner.
func (s *BotService) relayIncoming(msg *tgbotapi.Message, user *models.User) {
	text, attachments := extractContent(msg)
	if text == "" && len(attachments) == 0 {
		return
	}

	err := s.Relay.RelayMessage(user.ID, text, attachments)
	switch {
	case err == nil:
	case errs.Is(err, errs.CodeNotInChat):
		s.sendMenu(msg.Chat.ID, user.ID)
	case errs.Is(err, errs.CodeUnreachable):
		// The relay already tore the session down and notified whoever it
		// could; nothing further to surface here.
	default:
		s.reply(msg.Chat.ID, RejectionText(err))
	}
}

// extractContent uniformly extracts text and attachments from a message.
func extractContent(msg *tgbotapi.Message) (string, []models.Attachment) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	var attachments []models.Attachment
	switch {
	case msg.Photo != nil:
		largest := msg.Photo[len(msg.Photo)-1]
		attachments = append(attachments, models.Attachment{Kind: "photo", FileID: largest.FileID})
	case msg.Video != nil:
		attachments = append(attachments, models.Attachment{Kind: "video", FileID: msg.Video.FileID})
	case msg.Voice != nil:
		attachments = append(attachments, models.Attachment{Kind: "voice", FileID: msg.Voice.FileID})
	case msg.Sticker != nil:
		attachments = append(attachments, models.Attachment{Kind: "sticker", FileID: msg.Sticker.FileID})
	case msg.Animation != nil:
		attachments = append(attachments, models.Attachment{Kind: "animation", FileID: msg.Animation.FileID})
	case msg.Document != nil:
		attachments = append(attachments, models.Attachment{Kind: "document", FileID: msg.Document.FileID})
	}
	return text, attachments
}

func (s *BotService) handleCallbackQuery(cb *tgbotapi.CallbackQuery) {
	// Answer first to clear the loading state on the button.
	if _, err := s.BotAPI.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Warnf("Failed to answer callback query: %v", err)
	}
	if cb.From == nil || cb.Message == nil {
		return
	}

	user := s.userOf(cb.From)
	chatID := cb.Message.Chat.ID

	switch {
	case cb.Data == "menu_request":
		s.beginPrompt(chatID, user.ID, 0, models.ScopeGlobal)
	case cb.Data == "menu_view":
		s.handleViewRequests(chatID, user, 0)
	case cb.Data == "menu_stats":
		s.handleStats(chatID, user)
	case cb.Data == "menu_leaderboard":
		s.handleLeaderboard(chatID)
	case cb.Data == "menu_cancel":
		s.handleCancel(chatID, user)
	case cb.Data == "end_chat":
		s.handleEnd(chatID, user)
	case strings.HasPrefix(cb.Data, "accept_"):
		s.handleAccept(chatID, user, strings.TrimPrefix(cb.Data, "accept_"))
	}
}

func (s *BotService) sendMenu(chatID, userID int64) {
	hasPending := false
	if req, err := s.Registry.OpenRequestFor(userID); err == nil && req != nil {
		hasPending = true
	}
	inChat, _ := s.Relay.IsInActiveChat(userID)
	openCount, _ := s.Registry.OpenCount()

	variant := MenuFor(hasPending, inChat, int(openCount))
	msg := tgbotapi.NewMessage(chatID, variant.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = variant.Keyboard
	if _, err := s.BotAPI.Send(msg); err != nil {
		log.Warnf("Failed to send menu to %d: %v", chatID, err)
	}
}

// beginPrompt starts the interactive topic prompt.
func (s *BotService) beginPrompt(chatID, userID, groupID int64, scope string) {
	s.mu.Lock()
	s.userStates[userID] = &promptState{
		Stage:     StateWaitingForTopic,
		GroupID:   groupID,
		Scope:     scope,
		StartedAt: time.Now(),
	}
	s.mu.Unlock()
	s.reply(chatID, "What would you like to discuss? Send the topic (3-100 characters).")
}

// takePromptInput returns the user's live prompt state, clearing it when
// the inactivity window has elapsed (implicit cancellation, not an error).
func (s *BotService) takePromptInput(userID int64) *promptState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.userStates[userID]
	if !ok {
		return nil
	}
	if time.Since(state.StartedAt) > config.PromptTimeout {
		delete(s.userStates, userID)
		return nil
	}
	return state
}

// advancePrompt consumes one input message for the two-step creation flow.
func (s *BotService) advancePrompt(msg *tgbotapi.Message, user *models.User, state *promptState) {
	switch state.Stage {
	case StateWaitingForTopic:
		if err := registry.ValidateTopic(msg.Text, ""); err != nil {
			s.reply(msg.Chat.ID, RejectionText(err))
			return
		}
		s.mu.Lock()
		state.Topic = strings.TrimSpace(msg.Text)
		state.Stage = StateWaitingForDescription
		state.StartedAt = time.Now()
		s.mu.Unlock()
		s.reply(msg.Chat.ID, "Got it. Add a short description, or send a dash (-) to skip.")

	case StateWaitingForDescription:
		description := strings.TrimSpace(msg.Text)
		if description == "-" {
			description = ""
		}
		s.mu.Lock()
		delete(s.userStates, user.ID)
		s.mu.Unlock()
		s.createRequest(msg.Chat.ID, user, state.GroupID, state.Topic, description, state.Scope)
	}
}

func (s *BotService) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.BotAPI.Send(msg); err != nil {
		log.Warnf("Failed to send reply to %d: %v", chatID, err)
	}
}
