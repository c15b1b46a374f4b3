// Package redisinfra keeps OAuth access tokens in Redis so several API
// instances can share them.
package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "verify:token:"

// TokenCache stores one key per OAuth state. SET with an expiry replaces both
// the value and the TTL, so the newest Put always owns the eviction.
type TokenCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewTokenCache(rdb *redis.Client, ttl time.Duration) *TokenCache {
	return &TokenCache{rdb: rdb, prefix: defaultPrefix, ttl: ttl}
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *TokenCache) key(state string) string { return c.prefix + state }

func (c *TokenCache) Put(ctx context.Context, state, token string) error {
	if err := c.rdb.Set(ctx, c.key(state), token, c.ttl).Err(); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	return nil
}

// Take returns the token for state without consuming it.
func (c *TokenCache) Take(ctx context.Context, state string) (string, error) {
	tok, err := c.rdb.Get(ctx, c.key(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("access token: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load access token: %w", err)
	}
	return tok, nil
}
