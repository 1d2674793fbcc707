// Package ratelimit provides per-identity sliding-window admission
// control. The window resets once its full size has elapsed; until then
// every admitted request increments a counter that no concurrent caller
// may double-consume.
package ratelimit

import "time"

type Config struct {
	// Window is the sliding window size.
	Window time.Duration
	// MaxRequests is the number of admissions per identity per window.
	// It is per limiter instance: assessment types with different cost
	// profiles run with different limits.
	MaxRequests int
}

func (c Config) normalized() Config {
	out := c
	if out.Window <= 0 {
		out.Window = time.Minute
	}
	if out.MaxRequests <= 0 {
		out.MaxRequests = 5
	}
	return out
}
