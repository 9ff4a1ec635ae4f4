package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pool-monitor/internal/models"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

// ReadingCache keeps the latest reading of each device in Redis.
type ReadingCache struct {
	client    *redis.Client
	keyPrefix string
	keySuffix string
	ttl       time.Duration
}

// NewReadingCache creates a cache writing keys of the form prefix + device_id + suffix.
func NewReadingCache(client *redis.Client, keyPrefix, keySuffix string, ttl time.Duration) *ReadingCache {
	return &ReadingCache{
		client:    client,
		keyPrefix: keyPrefix,
		keySuffix: keySuffix,
		ttl:       ttl,
	}
}

func (c *ReadingCache) key(deviceID string) string {
	return c.keyPrefix + deviceID + c.keySuffix
}

// SetLatest stores r as the device's latest reading.
func (c *ReadingCache) SetLatest(ctx context.Context, r *models.SensorReading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	if err := c.client.Set(ctx, c.key(r.DeviceID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// GetLatest returns the cached latest reading or ErrMiss.
func (c *ReadingCache) GetLatest(ctx context.Context, deviceID string) (*models.SensorReading, error) {
	val, err := c.client.Get(ctx, c.key(deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var r models.SensorReading
	if err := json.Unmarshal(val, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reading: %w", err)
	}
	return &r, nil
}
