package translate

import (
	"talklink/controllers"
	"talklink/middleware"

	"github.com/gin-gonic/gin"
)

func Register(g *gin.RouterGroup, a *controllers.App) {
	g.POST("/translate", middleware.RateLimit(a.Limiter), controllers.Translate(a))
	g.POST("/translate/detect", controllers.DetectLanguage(a))
}
