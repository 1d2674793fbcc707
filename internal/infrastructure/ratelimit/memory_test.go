package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLimiterWindow(t *testing.T) {
	limiter := NewMemoryLimiter(Config{
		Window:      60_000 * time.Millisecond,
		MaxRequests: 3,
	})
	base := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	at := func(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

	for i, offset := range []int{0, 10, 20} {
		decision, err := limiter.Admit(context.Background(), "u1", at(offset))
		if err != nil {
			t.Fatalf("admit %d: unexpected error: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("admit %d at t=%dms: expected allowed", i, offset)
		}
	}

	decision, err := limiter.Admit(context.Background(), "u1", at(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Allowed {
		t.Fatal("fourth request within the window must be rejected")
	}
	if want := 59_970 * time.Millisecond; decision.RetryAfter != want {
		t.Fatalf("retry after = %v, want %v", decision.RetryAfter, want)
	}

	// Window expired: the next admission starts a fresh window.
	decision, err = limiter.Admit(context.Background(), "u1", at(61_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("request after window expiry must be allowed")
	}
}

func TestMemoryLimiterIndependentIdentities(t *testing.T) {
	limiter := NewMemoryLimiter(Config{Window: time.Minute, MaxRequests: 1})
	now := time.Now()

	if d, _ := limiter.Admit(context.Background(), "u1", now); !d.Allowed {
		t.Fatal("first u1 request must be allowed")
	}
	if d, _ := limiter.Admit(context.Background(), "u1", now); d.Allowed {
		t.Fatal("second u1 request must be rejected")
	}
	if d, _ := limiter.Admit(context.Background(), "u2", now); !d.Allowed {
		t.Fatal("u2 must not be affected by u1's window")
	}
}

func TestMemoryLimiterConcurrentAdmission(t *testing.T) {
	const (
		workers = 32
		max     = 5
	)
	limiter := NewMemoryLimiter(Config{Window: time.Minute, MaxRequests: max})
	now := time.Now()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := limiter.Admit(context.Background(), "shared", now)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if decision.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != max {
		t.Fatalf("allowed = %d, want exactly %d", allowed, max)
	}
}

func TestMemoryLimiterDefaults(t *testing.T) {
	limiter := NewMemoryLimiter(Config{})
	if limiter.cfg.Window != time.Minute {
		t.Fatalf("default window = %v, want %v", limiter.cfg.Window, time.Minute)
	}
	if limiter.cfg.MaxRequests != 5 {
		t.Fatalf("default max = %d, want 5", limiter.cfg.MaxRequests)
	}
}
