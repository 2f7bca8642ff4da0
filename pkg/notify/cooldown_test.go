package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisCooldown(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx := context.Background()
	cooldown := NewRedisCooldown(client, 2*time.Minute)

	assert.False(t, cooldown.Active(ctx, "ride-1", "user-1"))

	cooldown.Mark(ctx, "ride-1", "user-1")
	assert.True(t, cooldown.Active(ctx, "ride-1", "user-1"))
	assert.False(t, cooldown.Active(ctx, "ride-2", "user-1"))
	assert.False(t, cooldown.Active(ctx, "ride-1", "user-2"))

	server.FastForward(3 * time.Minute)
	assert.False(t, cooldown.Active(ctx, "ride-1", "user-1"))
}
