// Package routes assembles the HTTP API.
package routes

import (
	"strings"

	"github.com/chamsedd0/neighbor/internal/blob"
	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/internal/handlers"
	"github.com/chamsedd0/neighbor/internal/middleware"
	"github.com/chamsedd0/neighbor/internal/stores"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Options carries what the router needs from main. Redis, Revoked and
// MemoryBlobs may be nil.
type Options struct {
	Config      *config.Config
	Stores      stores.Deps
	Revoked     middleware.RevocationChecker
	Redis       *redis.Client
	MemoryBlobs *blob.MemoryStore
}

func NewRouter(opts Options) *gin.Engine {
	r := gin.New()

	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(middleware.CORSMiddleware(opts.Config))
	r.Use(middleware.SecurityHeaders(opts.Config.IsProduction()))

	r.GET("/health", handlers.HealthCheck(opts.Stores.Gateway, opts.Redis))
	if opts.MemoryBlobs != nil {
		r.GET("/blobs/*key", opts.MemoryBlobs.Handler)
	}

	api := r.Group("/api")
	api.Use(middleware.SessionMiddleware(opts.Stores, opts.Revoked))
	api.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/auth/") {
			c.Next()
			return
		}
		middleware.RateLimitMiddleware(middleware.GeneralLimiter)(c)
	})
	{
		api.GET("/health", handlers.HealthCheck(opts.Stores.Gateway, opts.Redis))

		RegisterAuthRoutes(api)
		RegisterPropertyRoutes(api)
		RegisterBookingRoutes(api)
		RegisterChatRoutes(api)
	}

	return r
}
