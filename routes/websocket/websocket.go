package websocket

import (
	"talklink/controllers"

	"github.com/gin-gonic/gin"
)

// Register mounts the live connection endpoint. Auth happens inside the
// handler from the token query parameter.
func Register(r *gin.Engine, a *controllers.App) {
	r.GET("/ws", controllers.LiveWS(a))
}
