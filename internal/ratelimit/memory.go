package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fixedWindow struct {
	start time.Time
	count int
}

// MemoryLimiter keeps one fixed window per key in process memory. Expired
// windows stay in the map until Sweep runs.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*fixedWindow
}

func NewMemoryLimiter(limit int, window time.Duration, now func() time.Time) (*MemoryLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     now,
		windows: make(map[string]*fixedWindow),
	}, nil
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	key = normalizeKey(key)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) > l.window {
		w = &fixedWindow{start: now}
		l.windows[key] = w
	}
	w.count++

	if w.count > l.limit {
		retry := l.window - now.Sub(w.start)
		if retry < time.Second {
			retry = time.Second
		}
		return Decision{RetryAfter: retry}, nil
	}
	return Decision{Allowed: true, Remaining: l.limit - w.count}, nil
}

// Sweep drops windows that have expired and returns how many were removed.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if now.Sub(w.start) > l.window {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
