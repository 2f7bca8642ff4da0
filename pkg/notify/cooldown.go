package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisCooldown remembers alerted users in Redis for the cooldown window.
type RedisCooldown struct {
	cache *cache.Cache[string]
}

func NewRedisCooldown(client *redis.Client, window time.Duration) *RedisCooldown {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(window))

	return &RedisCooldown{
		cache: cache.New[string](redisStore),
	}
}

func cooldownKey(scope string, userID string) string {
	return fmt.Sprintf("cooldown/%s/%s", scope, userID)
}

func (c *RedisCooldown) Active(ctx context.Context, scope string, userID string) bool {
	value, err := c.cache.Get(ctx, cooldownKey(scope, userID))
	return err == nil && value != ""
}

func (c *RedisCooldown) Mark(ctx context.Context, scope string, userID string) {
	if err := c.cache.Set(ctx, cooldownKey(scope, userID), time.Now().Format(time.RFC3339)); err != nil {
		log.Error().Err(err).Str("candidate", userID).Msg("Failed to store alert cooldown")
	}
}
