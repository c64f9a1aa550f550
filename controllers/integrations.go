package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"talklink/models"
	"talklink/pkg/bridge"
	"talklink/pkg/store"
)

type integrationBody struct {
	BotToken  string `json:"bot_token" binding:"max=255"`
	ChannelID string `json:"channel_id" binding:"max=64"`
	IsActive  *bool  `json:"is_active"`
}

// GetIntegration reports the bridge configured for a room. The bot token is
// never returned.
func GetIntegration(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUintParam(c, "id")
		if !ok {
			return
		}
		in, err := a.Store.GetIntegration(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"configured": false, "attached": false})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to read integration"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"configured": true,
			"kind":       in.Kind,
			"channel_id": in.ChannelID,
			"attached":   a.Bridges.Attached(id),
		})
	}
}

// SaveIntegration attaches and persists a Discord bridge, or removes it when
// is_active is false.
func SaveIntegration(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUintParam(c, "id")
		if !ok {
			return
		}
		var body integrationBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid body"})
			return
		}
		if !a.conversationExists(c, id) {
			return
		}
		ctx := c.Request.Context()

		if body.IsActive != nil && !*body.IsActive {
			a.Bridges.Detach(id)
			if err := a.Store.DeleteIntegration(ctx, id); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to remove integration"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"configured": false, "attached": false})
			return
		}

		creds := bridge.Credentials{
			Kind:      models.BridgeKindDiscord,
			BotToken:  strings.TrimSpace(body.BotToken),
			ChannelID: strings.TrimSpace(body.ChannelID),
		}
		if creds.BotToken == "" || creds.ChannelID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "bot_token and channel_id are required"})
			return
		}
		if err := a.Bridges.Attach(ctx, id, creds); err != nil {
			a.Logger.WithError(err).WithField("conversation_id", id).Warn("[integrations] attach failed")
			c.JSON(http.StatusBadGateway, gin.H{"msg": "could not connect to Discord", "error": err.Error()})
			return
		}
		saved, err := a.Store.SaveIntegration(ctx, models.BridgeIntegration{
			ConversationID: id,
			Kind:           creds.Kind,
			BotToken:       creds.BotToken,
			ChannelID:      creds.ChannelID,
		})
		if err != nil {
			a.Bridges.Detach(id)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to save integration"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"configured": true,
			"kind":       saved.Kind,
			"channel_id": saved.ChannelID,
			"attached":   true,
		})
	}
}
