// Package redisstore wraps the Redis hash operations used for cache snapshots.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/observability"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

func WithPassword(pw string) Option {
	return func(o *redis.Options) { o.Password = pw }
}

func WithDB(db int) Option {
	return func(o *redis.Options) { o.DB = db }
}

type Client struct {
	rdb *redis.Client
}

func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     8,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveCacheOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// ReplaceHash atomically swaps the hash at key for fields. A positive ttl is
// applied to the whole hash.
func (c *Client) ReplaceHash(ctx context.Context, key string, fields map[string][]byte, ttl time.Duration) error {
	start := time.Now()
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		if len(fields) == 0 {
			return nil
		}
		vals := make([]any, 0, 2*len(fields))
		for f, v := range fields {
			vals = append(vals, f, v)
		}
		p.HSet(ctx, key, vals...)
		if ttl > 0 {
			p.Expire(ctx, key, ttl)
		}
		return nil
	})
	observability.ObserveCacheOp("hset", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis replace hash %q (%d fields): %w", key, len(fields), err)
	}
	return nil
}

// HGetAll returns every field of the hash; a missing key yields an empty map.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	start := time.Now()
	vals, err := c.rdb.HGetAll(ctx, key).Result()
	observability.ObserveCacheOp("hgetall", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %q: %w", key, err)
	}
	out := make(map[string][]byte, len(vals))
	for f, v := range vals {
		out[f] = []byte(v)
	}
	return out, nil
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := c.rdb.Del(ctx, keys...).Err()
	observability.ObserveCacheOp("del", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis DEL %d keys: %w", len(keys), err)
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
