package ai

import (
	"context"
	"sync"
	"time"
)

// LocalRateLimiter is an in-process fixed-window counter with the same
// contract as the redis limiter. Used when no redis is configured, so a
// single-process deployment still honors the requests-per-minute ceiling.
type LocalRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{windows: make(map[string]*window), now: time.Now}
}

func (l *LocalRateLimiter) Allow(ctx context.Context, key string, limit int, windowDur time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= windowDur {
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++
	return w.count <= limit, nil
}
