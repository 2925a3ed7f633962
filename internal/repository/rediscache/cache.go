package rediscache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"companionhk/internal/domain/repositories"
)

// Client wraps a Redis connection used for short-term conversational memory.
// All writes are best-effort; callers log and continue on error.
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New creates a Redis-backed short-term cache client.
func New(addr, password string, db int, logger *slog.Logger) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{rdb: rdb, logger: logger}
}

// BuildShortTermKey derives the list key for one (user, role, thread) tuple.
func BuildShortTermKey(userID string, role string, threadID string) string {
	return fmt.Sprintf("stm:%s:%s:%s", userID, role, threadID)
}

// PushTurn prepends one turn payload to the key's list, trims the list to
// maxTurns entries and refreshes the TTL.
func (c *Client) PushTurn(ctx context.Context, key string, payload []byte, maxTurns int, ttl time.Duration) error {
	pipe := c.rdb.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(maxTurns)-1)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push cache turn: %w", err)
	}

	return nil
}

// Delete removes the key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete cache key: %w", err)
	}
	return nil
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

var _ repositories.ShortTermCache = (*Client)(nil)
