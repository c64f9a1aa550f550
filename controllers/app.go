package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"talklink/middleware"
	"talklink/pkg/bridge"
	"talklink/pkg/compose"
	"talklink/pkg/config"
	"talklink/pkg/hub"
	"talklink/pkg/relay"
	"talklink/pkg/store"
)

// App carries the services the HTTP and websocket handlers share.
type App struct {
	Config  *config.Config
	Store   *store.Store
	Engine  *relay.Engine
	Hub     *hub.Registry
	Bridges *bridge.Manager
	Compose *compose.Service
	Limiter *middleware.Limiter
	Logger  *logrus.Logger
}

var validate = validator.New()

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// conversationExists writes a 404 (or 500) and returns false when the
// conversation cannot be read.
func (a *App) conversationExists(c *gin.Context, id uint) bool {
	if _, err := a.Store.GetConversation(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"msg": "room not found"})
			return false
		}
		a.Logger.WithError(err).Error("[rooms] read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to read room"})
		return false
	}
	return true
}

func hostName(c *gin.Context) string {
	if v := c.GetString(middleware.ContextHostNameKey); v != "" {
		return v
	}
	return "Host"
}
