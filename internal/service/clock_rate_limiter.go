package service

import (
	"sync"
	"time"
)

// ClockRateLimiter limita la frecuencia de intentos de clock-in/out por
// usuario para frenar dobles toques y clientes en loop.
type ClockRateLimiter interface {
	Allow(userID int64) bool
}

type clockRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[int64][]time.Time
}

// NewClockRateLimiter crea un rate limiter en memoria.
func NewClockRateLimiter(window time.Duration, max int) ClockRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &clockRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[int64][]time.Time),
	}
}

func (l *clockRateLimiter) Allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)
	entries := l.hits[userID]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[userID] = kept
		return false
	}
	kept = append(kept, now)
	l.hits[userID] = kept
	return true
}
