package routes

import (
	"github.com/chamsedd0/neighbor/internal/handlers"
	"github.com/chamsedd0/neighbor/internal/middleware"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/gin-gonic/gin"
)

func RegisterPropertyRoutes(r gin.IRouter) {
	properties := r.Group("/properties")
	{
		// Static paths before the wildcard
		properties.GET("/mine", middleware.AuthRequired(), handlers.MyProperties)
		properties.GET("", handlers.ListProperties)
		properties.GET("/:id", handlers.GetProperty)

		owner := properties.Group("")
		owner.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleOwner))
		{
			owner.POST("", handlers.CreateProperty)
			owner.PATCH("/:id", handlers.UpdateProperty)
			owner.DELETE("/:id", handlers.DeleteProperty)
			owner.POST("/:id/images", middleware.RateLimitMiddleware(middleware.UploadLimiter), handlers.UploadPropertyImage)
			owner.DELETE("/:id/images/:imageId", handlers.DeletePropertyImage)
		}
	}
}
