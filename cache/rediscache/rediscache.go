// Package rediscache provides a sqlorm.Cache stored in Redis.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// client captures the subset of go-redis commands we rely on (for easier testing).
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// Config describes how the cache connects to Redis.
type Config struct {
	Client   redis.UniversalClient
	Addr     string
	Password string
	DB       int
	// Namespace prefixes every key. Defaults to "sqlorm:".
	Namespace string
	// ScanCount is the COUNT hint of the SCAN calls of DeletePrefix.
	ScanCount int64
}

// Cache is a sqlorm.Cache backed by Redis.
type Cache struct {
	client    client
	ownClient bool
	ns        string
	count     int64
}

// New returns a cache using cfg.Client, or a client connected to cfg.Addr.
func New(cfg Config) (*Cache, error) {
	c := &Cache{ns: cfg.Namespace, count: cfg.ScanCount}
	if c.ns == "" {
		c.ns = "sqlorm:"
	}
	if c.count <= 0 {
		c.count = 100
	}
	switch {
	case cfg.Client != nil:
		c.client = cfg.Client
	case cfg.Addr != "":
		c.client = redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
		c.ownClient = true
	default:
		return nil, errors.New("rediscache: either Client or Addr is required")
	}
	return c, nil
}

// Get implements sqlorm.Cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, c.ns+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rediscache: get %q: %w", key, err)
	}
	return b, nil
}

// Set implements sqlorm.Cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.ns+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("rediscache: set %q: %w", key, err)
	}
	return nil
}

// Delete implements sqlorm.Cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.ns+key).Err(); err != nil {
		return fmt.Errorf("rediscache: delete %q: %w", key, err)
	}
	return nil
}

// DeletePrefix implements sqlorm.Cache. Keys are found with SCAN, so keys
// written during the call may survive.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	match := escape(c.ns+prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, c.count).Result()
		if err != nil {
			return fmt.Errorf("rediscache: scan %q: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("rediscache: delete prefix %q: %w", prefix, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Clear implements sqlorm.Cache. Only the keys of the namespace are removed.
func (c *Cache) Clear(ctx context.Context) error {
	return c.DeletePrefix(ctx, "")
}

// Close closes the client if it was opened by New.
func (c *Cache) Close() error {
	if !c.ownClient {
		return nil
	}
	return c.client.Close()
}

var globs = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escape quotes the glob characters of a SCAN pattern.
func escape(s string) string { return globs.Replace(s) }
