package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// HealthCheck reports database and redis reachability. Redis is optional;
// a nil client reports "disabled".
func HealthCheck(gw gateway.Gateway, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "up"
		var probe []models.User
		if err := gw.Find(ctx, gateway.Query{Collection: models.CollectionUsers, Limit: 1}, &probe); err != nil {
			dbStatus = "down"
			status = http.StatusServiceUnavailable
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "up"
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "down"
			}
		}

		c.JSON(status, gin.H{
			"status":   http.StatusText(status),
			"database": dbStatus,
			"redis":    redisStatus,
			"time":     time.Now().UTC(),
		})
	}
}
