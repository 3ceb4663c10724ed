// Package ratelimiter wraps golang.org/x/time/rate with the small surface
// the shard server's accept loop needs: a token bucket that either admits a
// connection immediately or rejects it.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token-bucket limiter. Tokens refill at the configured
// sustained rate; the burst size caps how many connections can be admitted
// back to back. Safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New builds a limiter admitting perSecond events sustained with the given
// burst capacity. perSecond = 0 disables limiting entirely.
func New(perSecond, burst uint) *RateLimiter {
	if perSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = perSecond
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), int(burst))}
}

// Allow consumes one token if available. Returns false when the bucket is
// empty and the event should be rejected.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens reports the tokens currently in the bucket, for tests and logs.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
