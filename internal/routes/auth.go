package routes

import (
	"github.com/chamsedd0/neighbor/internal/handlers"
	"github.com/chamsedd0/neighbor/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterAuthRoutes(r gin.IRouter) {
	auth := r.Group("/auth")
	{
		limited := auth.Group("")
		limited.Use(middleware.RateLimitMiddleware(middleware.AuthLimiter))
		limited.POST("/register", handlers.Register)
		limited.POST("/login", handlers.Login)

		auth.POST("/logout", middleware.AuthRequired(), handlers.Logout)
		auth.GET("/me", middleware.AuthRequired(), handlers.Me)

		// OAuth
		auth.GET("/google/login", handlers.GoogleLogin)
		auth.GET("/google/callback", handlers.GoogleCallback)
	}
}
