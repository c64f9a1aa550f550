package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"talklink/pkg/compose"
	"talklink/pkg/translate"
)

type emailBody struct {
	Text string `json:"text" binding:"max=20000"`
}

type proposalBody struct {
	RoomIDs      []uint         `json:"room_ids"`
	Instructions string         `json:"instructions" binding:"max=4000"`
	Profile      map[string]any `json:"profile"`
}

// composeFailed maps an assistant error onto a response.
func (a *App) composeFailed(c *gin.Context, task string, err error) {
	switch {
	case errors.Is(err, compose.ErrNoRooms):
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
	case errors.Is(err, translate.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"msg": "Assistant unavailable", "error": err.Error()})
	default:
		a.Logger.WithError(err).WithField("task", task).Error("[compose] failed")
		c.JSON(http.StatusInternalServerError, gin.H{"msg": task + " failed"})
	}
}

func PolishEmail(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body emailBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid body"})
			return
		}
		out, err := a.Compose.Polish(c.Request.Context(), body.Text)
		if err != nil {
			a.composeFailed(c, "polish", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"polished": out})
	}
}

func SummarizeEmail(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body emailBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid body"})
			return
		}
		sum, err := a.Compose.Summarize(c.Request.Context(), body.Text)
		if err != nil {
			a.composeFailed(c, "summarize", err)
			return
		}
		c.JSON(http.StatusOK, sum)
	}
}

// EmailHistory lists recent assistant runs; ?limit= defaults to 20.
func EmailHistory(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		hist, err := a.Store.EmailHistory(c.Request.Context(), min(limit, maxHistoryPage))
		if err != nil {
			a.Logger.WithError(err).Error("[compose] email history read failed")
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to read history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": hist})
	}
}

// GenerateProposal drafts a proposal from the history of the given rooms.
func GenerateProposal(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body proposalBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid body"})
			return
		}
		out, err := a.Compose.Proposal(c.Request.Context(), compose.ProposalRequest{
			RoomIDs:      body.RoomIDs,
			Instructions: body.Instructions,
			Profile:      body.Profile,
		})
		if err != nil {
			a.composeFailed(c, "proposal", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"proposal": out})
	}
}

func ProposalHistory(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		hist, err := a.Store.ProposalHistory(c.Request.Context(), min(limit, maxHistoryPage))
		if err != nil {
			a.Logger.WithError(err).Error("[compose] proposal history read failed")
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to read history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": hist})
	}
}
