package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/weatherosm/internal/device"
)

const defaultTTL = time.Hour

// Cache keeps the most recently published reading of each device in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache with a 1-hour TTL.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: defaultTTL}
}

// key returns the Redis key for the given device.
func key(deviceID string) string {
	return "reading:" + strings.ToLower(strings.TrimSpace(deviceID))
}

// Get retrieves the cached reading of a device.
// Returns nil, nil on a cache miss.
func (c *Cache) Get(ctx context.Context, deviceID string) (*device.Reading, error) {
	val, err := c.client.Get(ctx, key(deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for device %s: %w", deviceID, err)
	}

	var reading device.Reading
	if err := json.Unmarshal(val, &reading); err != nil {
		return nil, fmt.Errorf("unmarshaling cached reading for device %s: %w", deviceID, err)
	}

	return &reading, nil
}

// Set stores a reading with the configured TTL. A nil reading is ignored.
func (c *Cache) Set(ctx context.Context, deviceID string, reading *device.Reading) error {
	if reading == nil {
		return nil
	}

	b, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("marshaling reading for device %s: %w", deviceID, err)
	}

	if err := c.client.Set(ctx, key(deviceID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for device %s: %w", deviceID, err)
	}

	return nil
}

// Delete removes the cached reading of a device.
func (c *Cache) Delete(ctx context.Context, deviceID string) error {
	if err := c.client.Del(ctx, key(deviceID)).Err(); err != nil {
		return fmt.Errorf("cache delete for device %s: %w", deviceID, err)
	}
	return nil
}
