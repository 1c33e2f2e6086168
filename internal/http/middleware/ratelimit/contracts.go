package ratelimit

import "time"

// Limiter decides whether key may proceed. When it may not, wait is the time until a token frees up.
type Limiter interface {
	Allow(key string) (ok bool, wait time.Duration)
}

// Clock provides current time.
type Clock interface {
	Now() time.Time
}

// RealClock is the default clock.
type RealClock struct{}

// Now returns current time.
func (RealClock) Now() time.Time { return time.Now() }

// NopLimiter lets everything through.
type NopLimiter struct{}

// Allow always returns true.
func (NopLimiter) Allow(string) (bool, time.Duration) { return true, 0 }
