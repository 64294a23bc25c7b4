package routes

import (
	"github.com/chamsedd0/neighbor/internal/handlers"
	"github.com/chamsedd0/neighbor/internal/middleware"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/gin-gonic/gin"
)

func RegisterBookingRoutes(r gin.IRouter) {
	bookings := r.Group("/bookings")
	bookings.Use(middleware.AuthRequired())
	{
		bookings.GET("", handlers.ListBookings)
		bookings.GET("/:id", handlers.GetBooking)
		bookings.POST("", middleware.RoleRequired(models.RoleTenant), handlers.CreateBooking)
		bookings.PATCH("/:id/status", handlers.UpdateBookingStatus)
		bookings.DELETE("/:id", handlers.DeleteBooking)
	}
}
