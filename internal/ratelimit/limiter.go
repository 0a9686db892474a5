package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the different endpoint groups we call on the price service.
// The service meters them separately.
type API string

const (
	// APIPrices represents end-of-day price lookups
	APIPrices API = "prices"
	// APIDirectory represents exchange and symbol listings
	APIDirectory API = "directory"
)

// Limit describes a token bucket. A non-positive PerSecond means unlimited.
type Limit struct {
	PerSecond float64
	Burst     int
}

// Limiter manages rate limits for different APIs
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a Limiter with one bucket per API.
func New(limits map[API]Limit) *Limiter {
	l := &Limiter{
		limiters: make(map[API]*rate.Limiter, len(limits)),
	}
	for api, lim := range limits {
		l.Set(api, lim)
	}
	return l
}

// Unlimited returns a Limiter that never waits. Used by tests and by
// callers that have no quota to respect.
func Unlimited() *Limiter {
	return New(nil)
}

// Set replaces the bucket for api.
func (l *Limiter) Set(api API, lim Limit) {
	burst := lim.Burst
	if burst <= 0 {
		burst = 1
	}

	r := rate.Inf
	if lim.PerSecond > 0 {
		r = rate.Limit(lim.PerSecond)
	}

	l.mu.Lock()
	l.limiters[api] = rate.NewLimiter(r, burst)
	l.mu.Unlock()
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed.
// A wait that would outlast the context's deadline fails at once with an
// error wrapping context.DeadlineExceeded.
func (l *Limiter) Wait(ctx context.Context, api API) error {
	if l == nil {
		return nil
	}

	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request without limiting
		return nil
	}

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// rate reports a too-long wait before the deadline passes.
		if _, ok := ctx.Deadline(); ok {
			return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return err
	}
	return nil
}

// Allow reports whether an event for the given API may happen now
func (l *Limiter) Allow(api API) bool {
	if l == nil {
		return true
	}

	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request
		return true
	}

	return limiter.Allow()
}
