package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"smartpark-backend/internal/domain"
)

const availabilityKeyPrefix = "smartpark:zone-availability:"

// AvailabilityCache keeps short-lived zone availability snapshots in Redis.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	if client == nil {
		return nil
	}
	return &AvailabilityCache{client: client, ttl: ttl}
}

func AvailabilityKey(zoneID int32) string {
	return fmt.Sprintf("%s%d", availabilityKeyPrefix, zoneID)
}

func (c *AvailabilityCache) Get(ctx context.Context, zoneID int32) (*domain.ZoneAvailability, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, AvailabilityKey(zoneID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var availability domain.ZoneAvailability
	if err := json.Unmarshal(raw, &availability); err != nil {
		return nil, false, fmt.Errorf("decode cached availability: %w", err)
	}
	return &availability, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, availability *domain.ZoneAvailability) error {
	if c == nil || c.client == nil || availability == nil || c.ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(availability)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, AvailabilityKey(availability.ZoneID), raw, c.ttl).Err()
}

// Invalidate drops the snapshot for a zone.
func (c *AvailabilityCache) Invalidate(ctx context.Context, zoneID int32) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, AvailabilityKey(zoneID)).Err()
}
