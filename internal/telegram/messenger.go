package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/scryst/coffee-chat-discord-bot/internal/errs"
	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

// Messenger implements relay.Messenger over the Telegram Bot API. Any send
// failure is reported as unreachable: for direct messages to humans there is
// no meaningful retry, the relay core treats the session as terminally down.
type Messenger struct {
	BotAPI *tgbotapi.BotAPI
}

func NewMessenger(api *tgbotapi.BotAPI) *Messenger {
	return &Messenger{BotAPI: api}
}

// ChatStarted sends the "chat started" notice with the end-chat button.
func (m *Messenger) ChatStarted(userID int64, chat *models.Chat, partnerName string) error {
	msg := tgbotapi.NewMessage(userID, ChatStartedText(chat, partnerName))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = ChatKeyboard()
	return m.send(msg)
}

// ChatEnded sends the "chat ended" notice with the computed duration.
func (m *Messenger) ChatEnded(userID int64, chat *models.Chat, minutes int) error {
	msg := tgbotapi.NewMessage(userID, ChatEndedText(chat, minutes))
	msg.ParseMode = tgbotapi.ModeMarkdown
	return m.send(msg)
}

// Deliver relays a partner's message: text first (when present), then every
// attachment re-sent by its Telegram file id.
func (m *Messenger) Deliver(to int64, from *models.User, text string, attachments []models.Attachment) error {
	msg := tgbotapi.NewMessage(to, RelayedText(from, text))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if err := m.send(msg); err != nil {
		return err
	}

	for _, att := range attachments {
		var payload tgbotapi.Chattable
		switch att.Kind {
		case "photo":
			payload = tgbotapi.NewPhoto(to, tgbotapi.FileID(att.FileID))
		case "video":
			payload = tgbotapi.NewVideo(to, tgbotapi.FileID(att.FileID))
		case "voice":
			payload = tgbotapi.NewVoice(to, tgbotapi.FileID(att.FileID))
		case "sticker":
			payload = tgbotapi.NewSticker(to, tgbotapi.FileID(att.FileID))
		case "animation":
			payload = tgbotapi.NewAnimation(to, tgbotapi.FileID(att.FileID))
		case "document":
			payload = tgbotapi.NewDocument(to, tgbotapi.FileID(att.FileID))
		default:
			log.Warnf("Skipping unsupported attachment kind %q for user %d", att.Kind, to)
			continue
		}
		if err := m.send(payload); err != nil {
			return err
		}
	}
	return nil
}

// SetStatusLine publishes the board summary as the bot's short description,
// the closest Telegram surface to a presence line.
func (m *Messenger) SetStatusLine(text string) error {
	params := tgbotapi.Params{"short_description": text}
	if _, err := m.BotAPI.MakeRequest("setMyShortDescription", params); err != nil {
		return errs.Wrap(errs.CodeUnreachable, "failed to update status line", err)
	}
	return nil
}

func (m *Messenger) send(payload tgbotapi.Chattable) error {
	if _, err := m.BotAPI.Send(payload); err != nil {
		return errs.Wrap(errs.CodeUnreachable, "telegram send failed", err)
	}
	return nil
}
