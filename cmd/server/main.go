package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chamsedd0/neighbor/internal/blob"
	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/internal/database"
	"github.com/chamsedd0/neighbor/internal/events"
	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/handlers"
	"github.com/chamsedd0/neighbor/internal/routes"
	"github.com/chamsedd0/neighbor/internal/stores"
	"github.com/chamsedd0/neighbor/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// 0. Load Config & Initialize Logger
	cfg := config.LoadConfig()
	logger.Init(cfg.Env)
	logger.Info().Str("environment", cfg.Env).Str("driver", cfg.DatabaseDriver).Msg("Starting neighbor backend...")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Redis: token revocation and the cross-instance change feed
	rdb := database.InitRedis(ctx, cfg)

	var feed gateway.Feed = gateway.NewLocalFeed()
	if rdb != nil {
		redisFeed, err := gateway.NewRedisFeed(ctx, rdb)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis change feed unavailable, using local feed")
		} else {
			defer redisFeed.Close()
			feed = redisFeed
		}
	}

	// 2. Document store
	gw, err := database.Open(ctx, cfg, feed)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer gw.Close()

	// 3. Image storage
	var (
		blobs  blob.Store
		memory *blob.MemoryStore
	)
	if cfg.R2BucketName != "" {
		r2, err := blob.NewR2(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to init R2 storage")
		}
		blobs = r2
	} else {
		logger.Warn().Msg("R2 bucket not configured, images kept in memory")
		memory = blob.NewMemory(cfg.BlobPublicURL)
		blobs = memory
	}

	// 4. Change events
	var publisher events.Publisher = events.Noop{}
	if cfg.RabbitMQURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventsQueue)
		if err != nil {
			logger.Warn().Err(err).Msg("RabbitMQ unavailable, change events disabled")
		} else {
			publisher = amqpPub
		}
	}
	defer publisher.Close()

	users := stores.NewUserDirectory(gw, 5*time.Minute)
	defer users.Close()
	blacklist := database.NewBlacklist(rdb)

	deps := stores.Deps{
		Gateway:                  gw,
		Blobs:                    blobs,
		Events:                   publisher,
		Users:                    users,
		Revoker:                  blacklist,
		StrictBookingTransitions: cfg.BookingStrictTransitions,
		PageSize:                 cfg.PageSize,
	}

	// 5. Router
	handlers.InitOAuthConfig(cfg)
	r := routes.NewRouter(routes.Options{
		Config:      cfg,
		Stores:      deps,
		Revoked:     blacklist,
		Redis:       rdb,
		MemoryBlobs: memory,
	})

	socketServer := handlers.InitSocketServer(cfg, deps, blacklist)
	defer socketServer.Close()
	r.GET("/socket.io/*any", handlers.SocketHandler(socketServer))
	r.POST("/socket.io/*any", handlers.SocketHandler(socketServer))

	// 6. Start Server with graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}
	logger.Info().Msg("Server exited gracefully")
}
