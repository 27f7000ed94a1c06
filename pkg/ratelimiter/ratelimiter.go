// Package ratelimiter enforces the per-process requests-per-minute ceiling
// using a token-bucket limiter, so a single misbehaving client can't starve
// every other caller of upstream quota.
package ratelimiter

import (
	"golang.org/x/time/rate"
)

// Limiter wraps x/time/rate with the requests-per-minute framing the config
// table uses, and a zero-value "disabled" mode.
type Limiter struct {
	limiter *rate.Limiter
	enabled bool
}

// New returns a Limiter allowing perMinute requests per minute, bursting up
// to perMinute in one instant. perMinute <= 0 disables limiting entirely.
func New(perMinute int) *Limiter {
	if perMinute <= 0 {
		return &Limiter{enabled: false}
	}
	every := rate.Limit(float64(perMinute) / 60.0)
	return &Limiter{
		limiter: rate.NewLimiter(every, perMinute),
		enabled: true,
	}
}

// Allow reports whether a request may proceed right now.
func (l *Limiter) Allow() bool {
	if !l.enabled {
		return true
	}
	return l.limiter.Allow()
}
