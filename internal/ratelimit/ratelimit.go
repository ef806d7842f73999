// Package ratelimit caps how often a single client may submit leads.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of a rate-limit check. ResetAt is the end of
// the current window so callers can compute a retry-after hint.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter admits or denies a request for the given client identifier.
// Implementations must account the request atomically: a denied request
// does not extend the window.
type Limiter interface {
	Check(ctx context.Context, identifier string) (Decision, error)
}

type record struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window limiter backed by a process-local
// map. State is lost on restart and is not shared across instances;
// use RedisLimiter when running more than one replica.
type MemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*record
	max     int
	window  time.Duration
	now     func() time.Time
}

// NewMemoryLimiter allows max requests per identifier within each
// window.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		records: make(map[string]*record),
		max:     max,
		window:  window,
		now:     time.Now,
	}
	go l.cleanup()
	return l
}

// Check admits the request if the identifier has budget left in the
// current window.
func (l *MemoryLimiter) Check(_ context.Context, identifier string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[identifier]
	if !ok || now.After(rec.resetAt) {
		rec = &record{count: 1, resetAt: now.Add(l.window)}
		l.records[identifier] = rec
		return Decision{Allowed: true, Remaining: l.max - 1, ResetAt: rec.resetAt}, nil
	}

	if rec.count >= l.max {
		return Decision{Allowed: false, Remaining: 0, ResetAt: rec.resetAt}, nil
	}

	rec.count++
	return Decision{Allowed: true, Remaining: l.max - rec.count, ResetAt: rec.resetAt}, nil
}

func (l *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		now := l.now()
		for id, rec := range l.records {
			if now.After(rec.resetAt) {
				delete(l.records, id)
			}
		}
		l.mu.Unlock()
	}
}
