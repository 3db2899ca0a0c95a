package sqlorm

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"

	"github.com/syssam/sqlorm/dialect/sql"
)

// Cache is the interface for caching query results.
// Users should implement this interface with their preferred caching solution
// (e.g., Redis, Memcached, in-memory). The cache/lrucache and cache/rediscache
// packages provide two implementations.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey generates a cache key for a query.
type CacheKey struct {
	Source string
	Query  string
}

// String returns the string representation of the cache key. Keys of a
// source share the "<source>:" prefix, so that writes to the source can
// drop them with DeletePrefix.
func (k CacheKey) String() string {
	return k.Source + ":" + strconv.FormatUint(xxh3.HashString(k.Query), 16)
}

// fetch runs a query returning rows. With a cache and a positive ttl the
// encoded rows are cached under the key of the query, and concurrent
// misses on the same key run the query once.
func (db *Database) fetch(ctx context.Context, source, query string, ttl time.Duration) ([]map[string]any, error) {
	if db.cache == nil || ttl <= 0 {
		return db.query(ctx, query)
	}
	key := CacheKey{Source: source, Query: query}.String()
	data, err := db.cache.Get(ctx, key)
	if err != nil {
		db.log.WarnContext(ctx, "sqlorm: cache get failed", "key", key, "error", err)
	}
	if data == nil {
		v, err, _ := db.group.Do(key, func() (any, error) {
			rows, err := db.query(ctx, query)
			if err != nil {
				return nil, err
			}
			b, err := msgpack.Marshal(rows)
			if err != nil {
				return nil, err
			}
			if err := db.cache.Set(ctx, key, b, ttl); err != nil {
				db.log.WarnContext(ctx, "sqlorm: cache set failed", "key", key, "error", err)
			}
			return b, nil
		})
		if err != nil {
			return nil, err
		}
		data = v.([]byte)
	}
	return decodeRows(data)
}

func decodeRows(data []byte) ([]map[string]any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (db *Database) query(ctx context.Context, query string) ([]map[string]any, error) {
	cur, err := db.drv.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return sql.Rows(cur)
}

// invalidate drops the cached queries of source.
func (db *Database) invalidate(ctx context.Context, source string) {
	if db.cache == nil {
		return
	}
	if err := db.cache.DeletePrefix(ctx, source+":"); err != nil {
		db.log.WarnContext(ctx, "sqlorm: cache invalidation failed", "source", source, "error", err)
	}
}
