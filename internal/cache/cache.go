// Package cache holds the key-value cache port and its adapters.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is a string key-value store with expiry. Implementations must be
// safe for concurrent use.
type Cache interface {
	// Get returns ErrMiss when key is absent.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. A ttl <= 0 keeps it until evicted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Close() error
}

var ErrMiss = errors.New("cache: miss")
