// store.go - thin keyed-store client over Redis. Production wires one real
// Client at startup; tests substitute miniredis.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when the key does not exist. It is always
// distinguishable from a value that fails to parse at a higher layer.
var ErrNotFound = errors.New("store: key not found")

// Client wraps a Redis connection with the small set of primitives the rest
// of the system needs: get/set with TTL, KEEPTTL updates, delete, list
// push/pop for the task queue, and EVAL for atomic scripts (quota accounting).
type Client struct {
	rdb *redis.Client
}

// Config describes how to reach the backing Redis instance.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New builds a Client from explicit configuration and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("store: ping redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// FromRedis wraps an already-constructed *redis.Client (used by tests to
// point at a miniredis instance).
func FromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Get returns the string value at key, or ErrNotFound if it doesn't exist.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get %s: %w", key, err)
	}
	return val, nil
}

// Set writes value at key with the given TTL. A zero TTL means no expiry.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

// SetKeepTTL overwrites value at key while preserving whatever TTL the key
// already had. Used by status-update read-modify-write paths so records
// never silently become unbounded.
func (c *Client) SetKeepTTL(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("store: set keepttl %s: %w", key, err)
	}
	return nil
}

// Delete removes key, ignoring absence.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("store: exists %s: %w", key, err)
	}
	return n > 0, nil
}

// TTL returns the remaining time-to-live of key.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("store: ttl %s: %w", key, err)
	}
	return d, nil
}

// Eval runs a Lua script atomically against the given keys/args, returning
// the raw Redis reply. Used by the quota engine, whose reserve and refund
// must be linearizable against concurrent callers.
func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	res, err := c.rdb.Eval(ctx, script, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("store: eval: %w", err)
	}
	return res, nil
}

// Expire sets an absolute TTL on an existing key without touching its value.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("store: expire %s: %w", key, err)
	}
	return nil
}

// ListPush appends value to the tail of a Redis list (used by the task queue).
func (c *Client) ListPush(ctx context.Context, key string, value string) error {
	if err := c.rdb.RPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("store: rpush %s: %w", key, err)
	}
	return nil
}

// ListPopBlocking pops the head of a Redis list, blocking up to timeout.
// Returns ErrNotFound on a timeout with no item available.
func (c *Client) ListPopBlocking(ctx context.Context, key string, timeout time.Duration) (string, error) {
	res, err := c.rdb.BLPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: blpop %s: %w", key, err)
	}
	if len(res) != 2 {
		return "", fmt.Errorf("store: blpop %s: unexpected reply shape", key)
	}
	return res[1], nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
