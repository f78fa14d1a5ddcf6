package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/scryst/coffee-chat-discord-bot/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten for production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeBoardFeed upgrades the connection and streams request-board events
// (bridged from the Redis Pub/Sub channel) until the client goes away.
func (h *Handler) ServeBoardFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	pubsub := h.Storage.SubscribeBoardEvents()
	go writeBoardFeed(conn, pubsub)
	go readUntilClosed(conn, pubsub)
}

// writeBoardFeed is the write pump: board events out, pings on a ticker.
func writeBoardFeed(conn *websocket.Conn, pubsub *redis.PubSub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	events := pubsub.Channel()
	for {
		select {
		case msg, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			var event models.BoardEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warnf("Dropping malformed board event: %v", err)
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readUntilClosed drains the connection so close frames and pongs are
// processed; the feed is one-directional otherwise.
func readUntilClosed(conn *websocket.Conn, pubsub *redis.PubSub) {
	defer func() {
		pubsub.Close()
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debugf("Board feed closed: %v", err)
			}
			return
		}
	}
}
