package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is a key-value store with TTL used as a read-through accelerator.
// It is never the source of truth: every implementation must stay safe to
// drop entirely, and callers must treat any error as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a glob-style pattern,
	// e.g. "user_permissions:*".
	DeletePattern(ctx context.Context, pattern string) error
	Close() error
}
