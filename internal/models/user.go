package models

import "time"

// User represents a participant in the system. The primary key is the
// Telegram user id, so a user is created on first interaction and never
// deleted. Cumulative stats are only mutated on chat completion.
type User struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"type:text;not null" json:"username"`
	FirstSeen time.Time
	// TotalChats is the number of completed chats the user took part in.
	TotalChats int `json:"total_chats"`
	// TotalTime is cumulative chat time in minutes.
	TotalTime int `json:"total_time"`
}
