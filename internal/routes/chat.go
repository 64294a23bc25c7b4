package routes

import (
	"github.com/chamsedd0/neighbor/internal/handlers"
	"github.com/chamsedd0/neighbor/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterChatRoutes(r gin.IRouter) {
	conversations := r.Group("/conversations")
	conversations.Use(middleware.AuthRequired())
	{
		conversations.GET("", handlers.GetConversations)
		conversations.POST("", handlers.CreateConversation)
		conversations.GET("/:id/messages", handlers.GetMessages)
		conversations.POST("/:id/messages", middleware.RateLimitMiddleware(middleware.MessageLimiter), handlers.SendMessage)
		conversations.POST("/:id/read", handlers.MarkConversationRead)
	}
}
