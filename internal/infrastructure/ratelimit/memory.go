package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/complyline/assessor/internal/core/ports"
)

type window struct {
	start time.Time
	count int
}

// MemoryLimiter keeps windows in process memory behind a mutex. Suitable
// for tests and single-instance deployments only; horizontally scaled
// deployments need the redis limiter, or limits reset on every cold start.
type MemoryLimiter struct {
	cfg Config

	mu      sync.Mutex
	windows map[string]*window
	admits  int
}

func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		cfg:     cfg.normalized(),
		windows: make(map[string]*window),
	}
}

func (l *MemoryLimiter) Admit(_ context.Context, identity string, now time.Time) (ports.Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.admits++
	if l.admits%1024 == 0 {
		l.evictExpired(now)
	}

	w, ok := l.windows[identity]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		l.windows[identity] = &window{start: now, count: 1}
		return ports.Decision{Allowed: true}, nil
	}

	if w.count < l.cfg.MaxRequests {
		w.count++
		return ports.Decision{Allowed: true}, nil
	}

	return ports.Decision{
		Allowed:    false,
		RetryAfter: l.cfg.Window - now.Sub(w.start),
	}, nil
}

// evictExpired drops stale windows; correctness does not depend on it,
// it only bounds memory for identities that stopped submitting.
func (l *MemoryLimiter) evictExpired(now time.Time) {
	for identity, w := range l.windows {
		if now.Sub(w.start) >= 2*l.cfg.Window {
			delete(l.windows, identity)
		}
	}
}
