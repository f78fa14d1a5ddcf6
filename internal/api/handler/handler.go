// Package handler exposes the bot's small HTTP surface: the keep-alive
// endpoint, the install-URL generator, read-only stats, and the live
// request-board websocket feed.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scryst/coffee-chat-discord-bot/internal/config"
	"github.com/scryst/coffee-chat-discord-bot/internal/storage"
)

type Handler struct {
	Storage *storage.Service
	Cfg     *config.Config
	BotName string
}

func NewHandler(s *storage.Service, cfg *config.Config, botName string) *Handler {
	return &Handler{Storage: s, Cfg: cfg, BotName: botName}
}

// Routes registers every endpoint on the router.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.GET("/oauth/url", h.OAuthURL)
	r.GET("/api/leaderboard", h.Leaderboard)
	r.GET("/api/stats/:user_id", h.UserStats)
	r.GET("/ws/board", h.ServeBoardFeed)
}

// Healthz is the keep-alive endpoint used by the hosting platform.
func (h *Handler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "Coffee Chat Bot is running!")
}

// Leaderboard returns the ranking by completed chats, then total time.
func (h *Handler) Leaderboard(c *gin.Context) {
	rows, err := h.Storage.GetLeaderboard(config.LeaderboardLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": rows})
}

// UserStats returns one user's lifetime stats.
func (h *Handler) UserStats(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be numeric"})
		return
	}

	stats, err := h.Storage.GetUserStats(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	if stats == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
