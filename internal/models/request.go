package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Request statuses. A request starts pending; only the pairing resolver
// moves it to accepted, only its owner moves it to cancelled.
const (
	RequestPending   = "pending"
	RequestAccepted  = "accepted"
	RequestCancelled = "cancelled"
)

// Request visibility scopes. Local requests are only listed inside the
// group they originate from; global ones are listed everywhere.
const (
	ScopeLocal  = "local"
	ScopeGlobal = "global"
)

// Request is a standing offer by one user to be matched for a topical chat.
// At most one pending request may exist per user at any time.
type Request struct {
	ID      string `gorm:"primaryKey" json:"id"` // UUID
	UserID  int64  `gorm:"not null;index" json:"user_id"`
	GroupID int64  `gorm:"index" json:"group_id"` // origin group, 0 when none

	Topic       string `gorm:"type:text;not null" json:"topic"`
	Description string `gorm:"type:text" json:"description"`
	Scope       string `gorm:"type:text;not null;default:global" json:"scope"`
	Status      string `gorm:"type:text;not null;default:pending;index" json:"status"`

	CreatedAt time.Time `json:"created_at"`

	// Announcement reference for editing the public board post later.
	// These remain mutable after the request leaves the pending state.
	AnnouncementChatID    *int64
	AnnouncementMessageID *int
}

// BeforeCreate is a GORM hook that assigns a new UUID if the ID is unset.
func (r *Request) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// IsPending reports whether the request is still open for acceptance.
func (r *Request) IsPending() bool { return r.Status == RequestPending }
