package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/scryst/coffee-chat-discord-bot/internal/errs"
	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

// Rendering is a pure function of the data record: nothing in this file
// touches core state.

// MenuVariant is one fixed, declarative main-menu layout. Which variant a
// user sees depends only on (hasPendingRequest, inActiveChat, openCount).
type MenuVariant struct {
	Name     string
	Text     string
	Keyboard tgbotapi.InlineKeyboardMarkup
}

// MenuFor maps a user's current state to a named menu variant. Buttons are
// never added or removed imperatively; each state gets its own layout.
func MenuFor(hasPendingRequest, inActiveChat bool, openCount int) MenuVariant {
	switch {
	case inActiveChat:
		return MenuVariant{
			Name: "in_chat",
			Text: "☕ *Coffee Chat*\nYou are in an active chat. Messages you send here are relayed to your partner.",
			Keyboard: tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("🛑 End Chat", "end_chat"),
				),
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("📊 My Stats", "menu_stats"),
				),
			),
		}
	case hasPendingRequest:
		return MenuVariant{
			Name: "has_request",
			Text: fmt.Sprintf("☕ *Coffee Chat*\nYour request is on the board. %s", openCountLine(openCount)),
			Keyboard: tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("🔍 View Requests", "menu_view"),
					tgbotapi.NewInlineKeyboardButtonData("❌ Cancel My Request", "menu_cancel"),
				),
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("📊 My Stats", "menu_stats"),
					tgbotapi.NewInlineKeyboardButtonData("🏆 Leaderboard", "menu_leaderboard"),
				),
			),
		}
	default:
		return MenuVariant{
			Name: "idle",
			Text: fmt.Sprintf("☕ *Coffee Chat*\nConnect with another user for a one-on-one conversation. %s", openCountLine(openCount)),
			Keyboard: tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("☕ Request Coffee Chat", "menu_request"),
					tgbotapi.NewInlineKeyboardButtonData("🔍 View Requests", "menu_view"),
				),
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("📊 My Stats", "menu_stats"),
					tgbotapi.NewInlineKeyboardButtonData("🏆 Leaderboard", "menu_leaderboard"),
				),
			),
		}
	}
}

func openCountLine(openCount int) string {
	switch openCount {
	case 0:
		return "No open requests right now."
	case 1:
		return "1 open request is waiting."
	default:
		return fmt.Sprintf("%d open requests are waiting.", openCount)
	}
}

// RequestCard renders the public announcement for one request.
func RequestCard(req *models.Request, ownerName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "☕ *Coffee Chat Request: %s*\n", req.Topic)
	if req.Description != "" {
		fmt.Fprintf(&b, "%s\n", req.Description)
	} else {
		b.WriteString("No additional details provided.\n")
	}
	fmt.Fprintf(&b, "\nRequested by *%s* · Status: %s", ownerName, req.Status)
	return b.String()
}

// AcceptKeyboard is the inline button attached to an announcement card.
func AcceptKeyboard(requestID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Accept Request", "accept_"+requestID),
		),
	)
}

// ChatKeyboard is attached to the chat-started notice.
func ChatKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛑 End Chat", "end_chat"),
		),
	)
}

// RequestList renders the pending board for /requests, newest first.
func RequestList(requests []models.Request) (string, tgbotapi.InlineKeyboardMarkup) {
	if len(requests) == 0 {
		return "There are no pending coffee chat requests at the moment.", tgbotapi.InlineKeyboardMarkup{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "☕ *Pending Coffee Chat Requests* (%d)\nPick one to accept:\n\n", len(requests))

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(requests))
	for i, req := range requests {
		if i >= 10 {
			fmt.Fprintf(&b, "…and %d more.\n", len(requests)-i)
			break
		}
		topic := req.Topic
		if len(topic) > 50 {
			topic = topic[:47] + "..."
		}
		fmt.Fprintf(&b, "%d. *%s*\n", i+1, topic)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d. %s", i+1, topic), "accept_"+req.ID),
		))
	}
	return b.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ChatStartedText renders the welcome notice for one chat participant.
func ChatStartedText(chat *models.Chat, partnerName string) string {
	return fmt.Sprintf(
		"☕ *Coffee Chat Started: %s*\nYou are now chatting with *%s*. Messages you send here are relayed to them.\nPress End Chat or send /end when you are finished.",
		chat.Topic, partnerName)
}

// ChatEndedText renders the farewell notice with the computed duration.
func ChatEndedText(chat *models.Chat, minutes int) string {
	return fmt.Sprintf("☕ *Coffee Chat Ended*\nYour coffee chat has ended. Duration: %s.", FormatMinutes(minutes))
}

// RelayedText prefixes a relayed message with the sender's name.
func RelayedText(from *models.User, text string) string {
	if text == "" {
		return fmt.Sprintf("💬 *%s* sent an attachment:", from.Username)
	}
	return fmt.Sprintf("💬 *%s*: %s", from.Username, text)
}

// StatsText renders one user's lifetime stats.
func StatsText(stats *models.Stats) string {
	return fmt.Sprintf(
		"📊 *Coffee Chat Stats for %s*\nTotal chats: %d\nTotal chat time: %s",
		stats.Username, stats.TotalChats, FormatMinutes(stats.TotalTime))
}

// LeaderboardText renders the ranking by completed chats, then total time.
func LeaderboardText(rows []models.Stats) string {
	if len(rows) == 0 {
		return "🏆 *Coffee Chat Leaderboard*\nNo data yet. Be the first to complete a coffee chat!"
	}

	var b strings.Builder
	b.WriteString("🏆 *Coffee Chat Leaderboard*\n")
	for i, row := range rows {
		fmt.Fprintf(&b, "%d. *%s*: %d chats, %s\n", i+1, row.Username, row.TotalChats, FormatMinutes(row.TotalTime))
	}
	return b.String()
}

// FormatMinutes renders a whole-minute duration for humans.
func FormatMinutes(minutes int) string {
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// RejectionText maps every rejection code to a distinct, specific message;
// a bare generic error never reaches the user.
func RejectionText(err error) string {
	switch errs.CodeOf(err) {
	case errs.CodeInvalidArgument:
		if appErr, ok := err.(*errs.AppError); ok {
			return "⚠️ " + appErr.Message
		}
		return "⚠️ That input is not valid."
	case errs.CodeDuplicateRequest:
		return "You already have a pending coffee chat request. Cancel it before creating a new one."
	case errs.CodeRequesterBusy:
		return "The requester is already in an active coffee chat. Try another request."
	case errs.CodeAccepterBusy:
		return "You are already in an active coffee chat. End it before accepting a new one."
	case errs.CodeSelfAccept:
		return "You cannot accept your own request."
	case errs.CodeStaleRequest:
		return "This request is no longer available."
	case errs.CodeNotInChat:
		return "You don't have an active coffee chat."
	case errs.CodeUnreachable:
		return "The chat could not be started: one of you cannot receive direct messages from the bot."
	case errs.CodeNotFound:
		return "You don't have any pending coffee chat requests."
	default:
		return "Something went wrong on our side. Please try again."
	}
}
