package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"talklink/models"
	"talklink/pkg/store"
)

type createRoomBody struct {
	Name string `json:"name" binding:"required,max=200"`
}

type joinRoomBody struct {
	Nickname string `json:"nickname" binding:"required,max=80"`
	Language string `json:"language" binding:"omitempty,len=2"`
}

// ListRooms returns every room, newest first.
func ListRooms(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		convs, err := a.Store.ListConversations(c.Request.Context())
		if err != nil {
			a.Logger.WithError(err).Error("[rooms] list failed")
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to list rooms"})
			return
		}
		out := make([]gin.H, 0, len(convs))
		for _, conv := range convs {
			out = append(out, gin.H{
				"id":          conv.ID,
				"name":        conv.Name,
				"invite_code": conv.InviteCode,
				"created_at":  conv.CreatedAt,
				"online":      len(a.Hub.MembersOf(conv.ID)),
				"bridged":     a.Bridges.Attached(conv.ID),
			})
		}
		c.JSON(http.StatusOK, gin.H{"rooms": out})
	}
}

func CreateRoom(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body createRoomBody
		if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "name is required"})
			return
		}
		conv, err := a.Store.CreateConversation(c.Request.Context(), body.Name)
		if err != nil {
			a.Logger.WithError(err).Error("[rooms] create failed")
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to create room"})
			return
		}
		c.JSON(http.StatusCreated, conv)
	}
}

// GetRoom returns a room with its participants and bridge status.
func GetRoom(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUintParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		conv, err := a.Store.GetConversation(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"msg": "room not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to read room"})
			return
		}
		participants, err := a.Store.ParticipantsOf(ctx, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to read participants"})
			return
		}
		// tokens stay with their owners
		for i := range participants {
			participants[i].Token = ""
		}
		online := make([]string, 0)
		for _, m := range a.Hub.MembersOf(id) {
			online = append(online, m.Nickname())
		}
		c.JSON(http.StatusOK, gin.H{
			"room":         conv,
			"participants": participants,
			"online":       online,
			"bridged":      a.Bridges.Attached(id),
		})
	}
}

// DeleteRoom tears down live state first, then removes the room.
func DeleteRoom(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUintParam(c, "id")
		if !ok {
			return
		}
		a.Engine.Teardown(id)
		if err := a.Store.DeleteConversation(c.Request.Context(), id); err != nil {
			a.Logger.WithError(err).WithField("conversation_id", id).Error("[rooms] delete failed")
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to delete room"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "room deleted"})
	}
}

// RoomByInvite is public: guests resolve an invite code before joining.
func RoomByInvite(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		conv, err := a.Store.ConversationByInvite(c.Request.Context(), c.Param("code"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "invalid invite code"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": conv.ID, "name": conv.Name})
	}
}

// JoinRoom registers a guest and hands back the token it connects with.
func JoinRoom(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUintParam(c, "id")
		if !ok {
			return
		}
		var body joinRoomBody
		if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Nickname) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "nickname is required"})
			return
		}
		if !a.conversationExists(c, id) {
			return
		}
		p, err := a.Store.CreateParticipant(c.Request.Context(), id, body.Nickname, strings.ToLower(body.Language))
		if err != nil {
			a.Logger.WithError(err).Error("[rooms] join failed")
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to join room"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"participant": p,
			"token":       p.Token,
			"sender_type": "guest",
			"origin":      models.OriginCounter,
		})
	}
}
