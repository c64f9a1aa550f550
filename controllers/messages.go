package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"talklink/models"
	"talklink/pkg/relay"
)

const maxHistoryPage = 500

type postMessageBody struct {
	Text string `json:"text" binding:"required,max=4000"`
	Tone string `json:"tone"`
}

// ListMessages returns the most recent messages of a room, oldest first.
func ListMessages(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUintParam(c, "roomId")
		if !ok {
			return
		}
		limit := a.Config.HistoryLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid limit"})
				return
			}
			limit = min(n, maxHistoryPage)
		}
		if !a.conversationExists(c, id) {
			return
		}
		msgs, err := a.Store.RecentMessages(c.Request.Context(), id, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to load messages"})
			return
		}
		if msgs == nil {
			msgs = []models.Message{}
		}
		c.JSON(http.StatusOK, gin.H{"conversation_id": id, "messages": msgs})
	}
}

// PostMessage relays a host message without a live connection and waits for
// the pipeline to finish.
func PostMessage(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUintParam(c, "roomId")
		if !ok {
			return
		}
		var body postMessageBody
		if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "text is required"})
			return
		}
		if !a.conversationExists(c, id) {
			return
		}

		out := <-a.Engine.Submit(c.Request.Context(), relay.Inbound{
			ConversationID: id,
			Origin:         models.OriginPrimary,
			Nickname:       hostName(c),
			Text:           body.Text,
			Tone:           body.Tone,
		})
		switch out.State {
		case relay.StateRejected:
			c.JSON(http.StatusBadRequest, gin.H{"msg": out.Err.Error()})
		case relay.StateDone:
			c.JSON(http.StatusCreated, gin.H{"message": out.Message, "translated": !out.Degraded})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to relay message"})
		}
	}
}
