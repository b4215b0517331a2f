package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"attendancereport/internal/summary"
)

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// ReportCache keeps computed summaries in redis for a short TTL.
type ReportCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewReportCache stores entries under prefix. A non-positive ttl defaults to
// five minutes.
func NewReportCache(client *redis.Client, prefix string, ttl time.Duration) *ReportCache {
	if prefix == "" {
		prefix = "attendance:summary:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReportCache{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached rows for key, reporting false on a miss.
func (c *ReportCache) Get(ctx context.Context, key string) ([]summary.Row, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var rows []summary.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return rows, true, nil
}

// Set stores rows under key.
func (c *ReportCache) Set(ctx context.Context, key string, rows []summary.Row) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	return c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}

// Purge drops every cached summary.
func (c *ReportCache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
