package conversation

import (
	"talklink/controllers"
	"talklink/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterPublic registers the invite routes guests use before they have a token.
func RegisterPublic(g *gin.RouterGroup, a *controllers.App) {
	g.GET("/rooms/invite/:code", controllers.RoomByInvite(a))
	g.POST("/rooms/:id/join", middleware.RateLimit(a.Limiter), controllers.JoinRoom(a))
}

// Register registers room routes (protected)
func Register(g *gin.RouterGroup, a *controllers.App) {
	g.GET("/rooms", controllers.ListRooms(a))
	g.POST("/rooms", middleware.RateLimit(a.Limiter), controllers.CreateRoom(a))
	g.GET("/rooms/:id", controllers.GetRoom(a))
	g.DELETE("/rooms/:id", controllers.DeleteRoom(a))
}
