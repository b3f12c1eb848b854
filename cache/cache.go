// Package cache holds short-lived key/value data for the backend: cached user
// records and rate-limit counters.
package cache

import (
	"context"
	"time"
)

// Store is a key/value store with expiring keys. Get reports a miss as (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Incr returns the new count and the time left in the key's window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Ping(ctx context.Context) error
	Close()
}
