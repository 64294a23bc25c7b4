package database

import (
	"context"
	"errors"
	"time"

	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client

const blacklistPrefix = "blacklist:"

// InitRedis connects to Redis. A failed ping leaves Redis nil; token
// revocation and the shared change feed are disabled then.
func InitRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis, revocation and shared feed disabled")
		_ = client.Close()
		return nil
	}

	Redis = client
	logger.Info().Msg("Connected to Redis successfully")
	return client
}

// Blacklist stores revoked token ids until their natural expiry.
type Blacklist struct {
	client *redis.Client
}

func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

func (b *Blacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if b == nil || b.client == nil || jti == "" {
		return nil
	}
	return b.client.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked. Lookup failures count as not
// revoked so a Redis outage does not sign everyone out.
func (b *Blacklist) IsRevoked(ctx context.Context, jti string) bool {
	if b == nil || b.client == nil || jti == "" {
		return false
	}
	err := b.client.Get(ctx, blacklistPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Token blacklist lookup failed")
		return false
	}
	return true
}
