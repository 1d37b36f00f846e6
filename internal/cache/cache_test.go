package cache

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartpark-backend/internal/config"
	"smartpark-backend/internal/domain"
)

// unreachableClient points at a closed local port so every command fails fast.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClient_NotConfigured(t *testing.T) {
	client, err := NewClient(context.Background(), config.RedisConfig{})
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestAvailabilityCache_Disabled(t *testing.T) {
	ctx := context.Background()
	c := NewAvailabilityCache(nil, time.Minute)
	assert.Nil(t, c)

	got, ok, err := c.Get(ctx, 1)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, c.Set(ctx, &domain.ZoneAvailability{ZoneID: 1}))
	assert.NoError(t, c.Invalidate(ctx, 1))
}

func TestAvailabilityCache_RedisDown(t *testing.T) {
	ctx := context.Background()
	c := NewAvailabilityCache(unreachableClient(t), time.Minute)
	require.NotNil(t, c)

	_, ok, err := c.Get(ctx, 3)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.Set(ctx, &domain.ZoneAvailability{ZoneID: 3}))
}

func TestAvailabilityCache_ZeroTTLSkipsWrites(t *testing.T) {
	c := NewAvailabilityCache(unreachableClient(t), 0)
	assert.NoError(t, c.Set(context.Background(), &domain.ZoneAvailability{ZoneID: 3}))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "smartpark:zone-availability:42", AvailabilityKey(42))
	assert.Equal(t, "smartpark:lock:expire_sessions", LockKey("expire_sessions"))
}

func TestLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("Not Configured", func(t *testing.T) {
		var l *Locker = NewLocker(nil)
		_, ok, err := l.TryLock(ctx, "job", time.Minute)
		assert.Error(t, err)
		assert.False(t, ok)
		assert.NoError(t, l.Release(ctx, "job", "token"))
	})

	t.Run("Invalid Arguments", func(t *testing.T) {
		l := NewLocker(unreachableClient(t))
		_, _, err := l.TryLock(ctx, "", time.Minute)
		assert.EqualError(t, err, "lock name is empty")
		_, _, err = l.TryLock(ctx, "job", 0)
		assert.EqualError(t, err, "lock ttl must be positive")
		assert.NoError(t, l.Release(ctx, "job", ""))
	})

	t.Run("Redis Down", func(t *testing.T) {
		l := NewLocker(unreachableClient(t))
		_, ok, err := l.TryLock(ctx, "job", time.Minute)
		assert.Error(t, err)
		assert.False(t, ok)
	})
}
