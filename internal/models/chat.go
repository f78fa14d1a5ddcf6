package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat statuses.
const (
	ChatActive = "active"
	ChatEnded  = "ended"
)

// Chat is an active or concluded pairing between two users. The topic is
// copied from the request at creation so later request mutation cannot
// corrupt history. A user appears in at most one active chat.
type Chat struct {
	ID          string `gorm:"primaryKey" json:"id"` // UUID
	RequestID   string `gorm:"not null;index" json:"request_id"`
	RequesterID int64  `gorm:"not null;index" json:"requester_id"`
	AccepterID  int64  `gorm:"not null;index" json:"accepter_id"`

	Topic  string `gorm:"type:text;not null" json:"topic"`
	Status string `gorm:"type:text;not null;default:active;index" json:"status"`

	// StartedAt is persisted so a relay session rebuilt after a process
	// restart keeps the original start instant instead of approximating it.
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
}

// BeforeCreate is a GORM hook that assigns a new UUID if the ID is unset.
func (c *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// PartnerOf returns the other participant's id, or 0 when userID is not a
// participant of this chat.
func (c *Chat) PartnerOf(userID int64) int64 {
	switch userID {
	case c.RequesterID:
		return c.AccepterID
	case c.AccepterID:
		return c.RequesterID
	}
	return 0
}
