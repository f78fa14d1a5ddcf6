package models

import (
	"time"

	"github.com/lib/pq" // needed for pq.Int64Array
	"gorm.io/gorm"
)

// ChatHistory is the append-only record written once per ended chat. It is
// the durable aggregate basis for user statistics and the leaderboard and
// is never mutated after insert.
type ChatHistory struct {
	gorm.Model

	ChatID string `gorm:"not null;uniqueIndex"`
	// Participants holds both user ids of the concluded chat.
	Participants pq.Int64Array `gorm:"type:bigint[]"`
	// Duration of the chat in whole minutes (floored).
	Duration int
	EndedAt  time.Time
}
