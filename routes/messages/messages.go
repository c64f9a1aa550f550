package messages

import (
	"talklink/controllers"
	"talklink/middleware"

	"github.com/gin-gonic/gin"
)

func Register(g *gin.RouterGroup, a *controllers.App) {
	g.GET("/messages/:roomId", controllers.ListMessages(a))
	g.POST("/messages/:roomId", middleware.RateLimit(a.Limiter), controllers.PostMessage(a))
}
