package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is one relayed direct message, appended to the ledger whether or
// not delivery to the partner ultimately succeeded: history records what was
// sent, not what was received.
type Message struct {
	gorm.Model

	ChatID   string `gorm:"not null;index"`
	SenderID int64  `gorm:"not null;index"`
	// Content may be empty for attachment-only messages.
	Content       string `gorm:"type:text"`
	HasAttachment bool
	SentAt        time.Time
}

// Attachment describes a media item carried alongside a relayed message.
// For Telegram transports FileID is the re-sendable file identifier.
type Attachment struct {
	Kind   string // "photo", "video", "voice", "sticker", "animation", "document"
	FileID string
}
