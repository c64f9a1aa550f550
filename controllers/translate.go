package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"talklink/pkg/translate"
)

type translateBody struct {
	Text string `json:"text" binding:"required,max=4000"`
	Tone string `json:"tone"`
}

type detectBody struct {
	Text string `json:"text" binding:"required"`
}

// Translate runs text through the shared cache and the oracle without
// relaying anything.
func Translate(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body translateBody
		if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "text is required"})
			return
		}
		tone, err := translate.ParseTone(body.Tone)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
			return
		}

		tr, err := a.Engine.Translate(c.Request.Context(), body.Text, tone)
		if errors.Is(err, translate.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"msg": "Translation unavailable", "error": err.Error()})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "translation failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"translation":       tr.Text,
			"detected_language": tr.DetectedLanguage,
			"tone":              tone,
			"cached":            tr.Cached,
			"assistant":         tr.Hint,
		})
	}
}

// DetectLanguage guesses the language locally.
func DetectLanguage(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body detectBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "text is required"})
			return
		}
		lang, confidence := translate.DetectLanguage(body.Text)
		c.JSON(http.StatusOK, gin.H{"language": lang, "confidence": confidence})
	}
}
