// Package ratelimit paces request dispatch within a burst.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter spaces out dispatches to at most rps per second. A nil
// *RateLimiter never waits.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter returns nil when rps is not positive, meaning "unpaced".
// The bucket holds one token per worker so a burst can start all workers
// at once before settling to the target rate.
func NewRateLimiter(rps float64, workers int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), workers)}
}

// Wait blocks until the next dispatch is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// Limit reports the configured rate, zero when unpaced.
func (r *RateLimiter) Limit() float64 {
	if r == nil {
		return 0
	}
	return float64(r.limiter.Limit())
}
