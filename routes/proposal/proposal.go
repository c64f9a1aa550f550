package proposal

import (
	"talklink/controllers"
	"talklink/middleware"

	"github.com/gin-gonic/gin"
)

func Register(g *gin.RouterGroup, a *controllers.App) {
	g.POST("/proposal/generate", middleware.RateLimit(a.Limiter), controllers.GenerateProposal(a))
	g.GET("/proposal/history", controllers.ProposalHistory(a))
}
