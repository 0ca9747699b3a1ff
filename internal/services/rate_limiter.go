package services

import (
	"math"
	"sync"
	"time"

	"github.com/pokstore/backend/internal/metrics"
)

// Defaults for sign-in throttling
const (
	DefaultRateLimitWindow      = 15 * time.Minute
	DefaultRateLimitMaxAttempts = 5
)

// RateLimitStatus is the result of a rate limit check
type RateLimitStatus struct {
	Limited          bool `json:"limited"`
	MinutesRemaining int  `json:"minutes_remaining"`
}

type attemptWindow struct {
	count int
	start time.Time
}

// RateLimiter is a fixed-window attempt counter keyed by identifier.
// State is process-local.
type RateLimiter struct {
	mu          sync.Mutex
	window      time.Duration
	maxAttempts int
	attempts    map[string]*attemptWindow
	now         func() time.Time
}

// NewRateLimiter creates a limiter. Non-positive arguments use the defaults.
func NewRateLimiter(window time.Duration, maxAttempts int) *RateLimiter {
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultRateLimitMaxAttempts
	}
	return &RateLimiter{
		window:      window,
		maxAttempts: maxAttempts,
		attempts:    make(map[string]*attemptWindow),
		now:         time.Now,
	}
}

// RecordAttempt counts an attempt for id, starting a new window when the
// previous one has elapsed.
func (l *RateLimiter) RecordAttempt(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.attempts[id]
	if !ok || now.Sub(w.start) > l.window {
		l.attempts[id] = &attemptWindow{count: 1, start: now}
		return
	}
	w.count++
}

// Check reports whether id has used up its attempts in the current window,
// with the remaining wait rounded up to whole minutes.
func (l *RateLimiter) Check(id string) RateLimitStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.attempts[id]
	if !ok {
		return RateLimitStatus{}
	}

	elapsed := l.now().Sub(w.start)
	if elapsed > l.window {
		delete(l.attempts, id)
		return RateLimitStatus{}
	}
	if w.count < l.maxAttempts {
		return RateLimitStatus{}
	}

	metrics.RateLimitRejectionsTotal.Inc()
	remaining := l.window - elapsed
	return RateLimitStatus{
		Limited:          true,
		MinutesRemaining: int(math.Ceil(remaining.Minutes())),
	}
}

// Reset forgets every attempt for id
func (l *RateLimiter) Reset(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, id)
}
