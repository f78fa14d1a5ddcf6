// Package status periodically summarizes the open-request board. It is a
// consumer of the request registry, not part of the lifecycle core.
package status

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scryst/coffee-chat-discord-bot/internal/config"
	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

// Board is the slice of the store the reporter reads and publishes through.
type Board interface {
	PendingBoardCount() (int64, error)
	CountPendingRequests() (int64, error)
	PublishBoardEvent(event models.BoardEvent) error
}

// Presence pushes the summary line to the bot's public profile. The telegram
// messenger implements it.
type Presence interface {
	SetStatusLine(text string) error
}

// Updater pushes and broadcasts a board summary on a fixed interval.
type Updater struct {
	Board    Board
	Presence Presence
	Interval time.Duration

	stopCh chan struct{}
}

func NewUpdater(b Board, p Presence) *Updater {
	return &Updater{
		Board:    b,
		Presence: p,
		Interval: config.StatusUpdateInterval,
		stopCh:   make(chan struct{}),
	}
}

// Run is the reporter's main loop; start it in its own goroutine.
func (u *Updater) Run() {
	log.Info("Status updater started")
	ticker := time.NewTicker(u.Interval)
	defer ticker.Stop()

	u.update()
	for {
		select {
		case <-ticker.C:
			u.update()
		case <-u.stopCh:
			log.Info("Status updater stopped")
			return
		}
	}
}

// Stop terminates the update loop.
func (u *Updater) Stop() {
	close(u.stopCh)
}

func (u *Updater) update() {
	count := u.openCount()
	line := Summary(count)
	log.Infof("Status: %s", line)

	if err := u.Presence.SetStatusLine(line); err != nil {
		log.Warnf("Failed to push status line: %v", err)
	}

	event := models.BoardEvent{
		Kind:      models.EventBoardSummary,
		OpenCount: count,
		At:        time.Now(),
	}
	if err := u.Board.PublishBoardEvent(event); err != nil {
		log.Warnf("Failed to publish board summary: %v", err)
	}
}

// openCount prefers the Redis mirror and falls back to the durable rows.
func (u *Updater) openCount() int {
	if count, err := u.Board.PendingBoardCount(); err == nil {
		return int(count)
	}
	count, err := u.Board.CountPendingRequests()
	if err != nil {
		log.Warnf("Failed to count pending requests: %v", err)
		return 0
	}
	return int(count)
}

// Summary renders the presence line for a given open-request count.
func Summary(openCount int) string {
	switch openCount {
	case 0:
		return "/coffee | No active requests"
	case 1:
		return "/coffee | 1 coffee chat available"
	default:
		return fmt.Sprintf("/coffee | %d coffee chats available", openCount)
	}
}
