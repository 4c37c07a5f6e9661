package api

import (
	"taskchat/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(handler *Handler, jwtService *auth.JWTService, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(logger), gin.Recovery())

	api := router.Group("/api")

	api.POST("/auth/register", handler.Register)
	api.POST("/auth/login", handler.Login)

	authed := api.Group("", auth.RequireAuth(jwtService, logger))

	authed.POST("/tasks", handler.CreateTask)
	authed.GET("/tasks", handler.ListTasks)
	authed.GET("/tasks/:id", handler.GetTask)
	authed.PUT("/tasks/:id", handler.UpdateTask)
	authed.PATCH("/tasks/:id/complete", handler.ToggleTaskComplete)
	authed.DELETE("/tasks/:id", handler.DeleteTask)

	authed.GET("/conversations", handler.ListConversations)
	authed.GET("/conversations/:id/messages", handler.GetConversationMessages)
	authed.DELETE("/conversations/:id", handler.DeleteConversation)

	authed.POST("/chat", handler.Chat)

	return router
}
