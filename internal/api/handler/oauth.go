package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// OAuthURL builds the bot install deep-link with a signed state parameter
// so a dashboard can correlate the install flow back to its session.
func (h *Handler) OAuthURL(c *gin.Context) {
	state, err := h.signedState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create state token"})
		return
	}

	url := fmt.Sprintf("https://t.me/%s?startgroup=true", h.BotName)
	c.JSON(http.StatusOK, gin.H{"url": url, "state": state})
}

// signedState issues a short-lived JWT carrying a one-time nonce.
func (h *Handler) signedState() (string, error) {
	claims := jwt.MapClaims{
		"nonce": uuid.New().String(),
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
		"iss":   "coffee-chat-bot",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.Cfg.JWTSecret))
}
