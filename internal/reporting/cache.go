package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "reports:version"
	bumpChannel     = "reports.bump"
)

// Cache wraps Redis based caching with versioning controls. Invalidation is
// by version bump: new transactions increment the version, which orphans
// every key minted under the previous one. Cached values are replaced whole,
// never mutated, so concurrent report requests cannot see a half-written view.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// WithTTL derives a cache sharing the same client and version counter but
// writing entries under a different TTL.
func (c *Cache) WithTTL(ttl time.Duration) *Cache {
	if c == nil {
		return nil
	}
	return &Cache{client: c.client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	if c == nil || c.client == nil {
		return strings.Join(parts, ":"), nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	joined := strings.Join(parts, ":")
	return joined + ":" + strconv.FormatInt(ver, 10), nil
}

// GetJSON loads a cached value into dest, reporting whether the key was set.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(payload, dest)
}

// SetJSON stores value under key with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("reporting: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates the cache by incrementing the global version and
// publishing an event for other processes.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation subscribes to version bump notifications.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if channel == "" {
		channel = bumpChannel
	}
	pubsub := c.client.Subscribe(ctx, channel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload != "" {
					if ver, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil {
						_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
						continue
					}
				}
				_ = c.client.Incr(ctx, cacheVersionKey).Err()
			}
		}
	}()
	return nil
}

func keyReport(kind PeriodKind, anchor string, barber string) string {
	return strings.Join([]string{"reports", "window", string(kind), anchor, barber}, ":")
}

func keyAvailability(barber string) string {
	return strings.Join([]string{"reports", "availability", barber}, ":")
}

func barberToken(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}
