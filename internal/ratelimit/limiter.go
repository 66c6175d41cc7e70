// Package ratelimit implements a per-(source, action) sliding-window
// counter. Check is free of side effects; Increment is called only after
// the action actually happened.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

type window struct {
	count int
	start time.Time
}

// Limiter tracks live windows keyed by "source|action".
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func key(source, action string) string {
	return source + "|" + action
}

// Check reports whether one more action fits inside the current window.
// A stale or missing window counts as zero.
func (l *Limiter) Check(source, action string, limit int, windowSize time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key(source, action)]
	if !ok || l.now().Sub(w.start) >= windowSize {
		return limit > 0
	}
	return w.count < limit
}

// Increment records one performed action and returns the window's current
// count and start time, so callers can mirror the state to storage.
func (l *Limiter) Increment(source, action string, windowSize time.Duration) (int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key(source, action)
	w, ok := l.windows[k]
	if !ok || now.Sub(w.start) >= windowSize {
		w = &window{count: 1, start: now}
		l.windows[k] = w
		return w.count, w.start
	}
	w.count++
	return w.count, w.start
}

// Cleanup drops windows older than maxAge.
func (l *Limiter) Cleanup(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, w := range l.windows {
		if now.Sub(w.start) > maxAge {
			delete(l.windows, k)
		}
	}
}

// Run sweeps stale windows until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup(cleanupInterval)
		}
	}
}
