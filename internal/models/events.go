package models

import "time"

// Board event kinds published on the Redis "board:events" channel and
// streamed to websocket subscribers of the live request board.
const (
	EventRequestCreated   = "request_created"
	EventRequestCancelled = "request_cancelled"
	EventRequestAccepted  = "request_accepted"
	EventBoardSummary     = "board_summary"
)

// BoardEvent is the wire format for request-board notifications.
type BoardEvent struct {
	Kind      string    `json:"kind"`
	RequestID string    `json:"request_id,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	Scope     string    `json:"scope,omitempty"`
	OpenCount int       `json:"open_count"`
	At        time.Time `json:"at"`
}

// Stats is the per-user aggregate returned by the durable store.
type Stats struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	TotalChats int    `json:"total_chats"`
	TotalTime  int    `json:"total_time"`
}
