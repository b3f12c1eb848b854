package cache

import (
	"context"
	"fmt"
	"time"
)

// Limit is the outcome of one counted request.
type Limit struct {
	Allowed   bool
	Count     int64
	Remaining int64
	ResetIn   time.Duration
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	store  Store
	max    int64
	window time.Duration
	prefix string
}

func NewRateLimiter(store Store, max int64, window time.Duration) *RateLimiter {
	return &RateLimiter{store: store, max: max, window: window, prefix: "ratelimit:"}
}

func (l *RateLimiter) Max() int64 {
	return l.max
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (Limit, error) {
	count, resetIn, err := l.store.Incr(ctx, l.prefix+key, l.window)
	if err != nil {
		return Limit{}, fmt.Errorf("[RateLimiter.Allow] %w", err)
	}
	return Limit{
		Allowed:   count <= l.max,
		Count:     count,
		Remaining: max(0, l.max-count),
		ResetIn:   resetIn,
	}, nil
}
