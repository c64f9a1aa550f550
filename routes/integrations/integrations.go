package integrations

import (
	"talklink/controllers"

	"github.com/gin-gonic/gin"
)

// Register registers the per-room bridge settings routes (protected)
func Register(g *gin.RouterGroup, a *controllers.App) {
	g.GET("/rooms/:id/integration", controllers.GetIntegration(a))
	g.POST("/rooms/:id/integration", controllers.SaveIntegration(a))
}
