package email

import (
	"talklink/controllers"
	"talklink/middleware"

	"github.com/gin-gonic/gin"
)

func Register(g *gin.RouterGroup, a *controllers.App) {
	g.POST("/email/polish", middleware.RateLimit(a.Limiter), controllers.PolishEmail(a))
	g.POST("/email/summarize", middleware.RateLimit(a.Limiter), controllers.SummarizeEmail(a))
	g.GET("/email/history", controllers.EmailHistory(a))
}
