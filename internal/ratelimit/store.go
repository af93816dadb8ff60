package ratelimit

import (
	"context"
	"time"
)

// RecentCounter is the slice of the signature store the fallback limiter
// needs: how many signatures were created inside the window for the given
// identifiers, summed across both.
type RecentCounter interface {
	CountRecentByIdentifiers(ctx context.Context, phone, email string, window time.Duration) (int, error)
}

// StoreLimiter implements signing.RateLimiter by counting recent signature
// rows. It records nothing itself; the inserted signature is the record.
// Used when Redis is not configured.
type StoreLimiter struct {
	counter RecentCounter
	window  time.Duration
	limit   int
}

// NewStoreLimiter creates a store-count fallback limiter.
func NewStoreLimiter(counter RecentCounter, window time.Duration, limit int) *StoreLimiter {
	return &StoreLimiter{counter: counter, window: window, limit: limit}
}

// Allow reports whether the identifiers are under the ceiling for the window.
func (l *StoreLimiter) Allow(ctx context.Context, phone, email string) (bool, error) {
	if phone == "" && email == "" {
		return true, nil
	}
	count, err := l.counter.CountRecentByIdentifiers(ctx, phone, email, l.window)
	if err != nil {
		return false, err
	}
	return count < l.limit, nil
}
