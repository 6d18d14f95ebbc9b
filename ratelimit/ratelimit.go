// Package ratelimit builds golang.org/x/time/rate.Limiter values for
// wsconn.WithRateLimiter, grounded on luciancaetano-kephasnet's
// RateLimitConfig/DefaultRateLimitConfig/NoRateLimit
// (internal/websocket/websocket_server.go).
package ratelimit

import "golang.org/x/time/rate"

// Config mirrors the kephasnet RateLimitConfig shape: messages-per-second
// plus burst, with an explicit enabled flag so "no limiting" is a named
// state rather than a magic zero value.
type Config struct {
	MessagesPerSecond rate.Limit
	Burst             int
	Enabled           bool
}

// Default allows 100 messages/second with a burst of 200, the same
// defaults as DefaultRateLimitConfig in the grounding source.
func Default() Config {
	return Config{MessagesPerSecond: 100, Burst: 200, Enabled: true}
}

// None disables rate limiting.
func None() Config {
	return Config{Enabled: false}
}

// Limiter builds a *rate.Limiter for cfg, or nil if rate limiting is
// disabled -- nil is the value wsconn.WithRateLimiter treats as "no
// limiter attached".
func (cfg Config) Limiter() *rate.Limiter {
	if !cfg.Enabled {
		return nil
	}
	return rate.NewLimiter(cfg.MessagesPerSecond, cfg.Burst)
}
