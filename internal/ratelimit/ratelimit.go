// Package ratelimit bounds the number of admitted requests per rolling window.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the default ceiling per window.
	DefaultMaxRequests = 60
	// DefaultWindow is the default window length.
	DefaultWindow = 60 * time.Second
)

// Limiter is a sliding-window counter shared by all connections.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries []time.Time // admission times, oldest first; protected by mu

	now func() time.Time
}

// New creates a limiter admitting at most max requests per window.
// Non-positive arguments fall back to the defaults.
func New(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		max:     max,
		window:  window,
		entries: make([]time.Time, 0, max),
		now:     time.Now,
	}
}

// Allow evicts expired entries and admits the request if the window has room.
// Eviction, the check and the append happen under one lock so concurrent
// callers cannot admit past the ceiling.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictLocked(now)
	if len(l.entries) >= l.max {
		return false
	}
	l.entries = append(l.entries, now)
	return true
}

// Count returns the number of admissions currently inside the window.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evictLocked(l.now())
	return len(l.entries)
}

func (l *Limiter) evictLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.entries) && !l.entries[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(l.entries, l.entries[i:])
	l.entries = l.entries[:n]
}
