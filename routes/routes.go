package routes

import (
	"talklink/controllers"
	"talklink/middleware"

	"github.com/gin-gonic/gin"

	convRoutes "talklink/routes/conversation"
	emailRoutes "talklink/routes/email"
	integrationRoutes "talklink/routes/integrations"
	messageRoutes "talklink/routes/messages"
	proposalRoutes "talklink/routes/proposal"
	translateRoutes "talklink/routes/translate"
	websocketRoutes "talklink/routes/websocket"
)

func RegisterRoutes(r *gin.Engine, a *controllers.App) {
	r.GET("/metrics", controllers.Metrics())
	websocketRoutes.Register(r, a)

	api := r.Group("/api")
	api.GET("/ping", controllers.Ping())
	convRoutes.RegisterPublic(api, a)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(a.Config.JWTSecret))
	convRoutes.Register(protected, a)
	messageRoutes.Register(protected, a)
	translateRoutes.Register(protected, a)
	integrationRoutes.Register(protected, a)
	emailRoutes.Register(protected, a)
	proposalRoutes.Register(protected, a)
}
