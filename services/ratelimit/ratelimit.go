// Package ratelimit counts failed attempts per key within a fixed window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/progress"
)

// MemoryLimiter keeps the counters in process memory. Counters are lost on restart.
type MemoryLimiter struct {
	max    int
	window time.Duration

	mu       sync.Mutex
	counters map[string]counter
}

type counter struct {
	failures  int
	expiresAt time.Time
}

var _ progress.AttemptLimiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(conf core.UnlockConfig) *MemoryLimiter {
	return &MemoryLimiter{max: conf.MaxAttempts, window: conf.Window, counters: make(map[string]counter)}
}

// get returns the live counter of key, dropping it if expired. mu must be held.
func (l *MemoryLimiter) get(key string) counter {
	c, ok := l.counters[key]
	if ok && !core.Now().Before(c.expiresAt) {
		delete(l.counters, key)
		return counter{}
	}
	return c
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(key).failures < l.max, nil
}

// Fail records a failure. The window starts with the first failure.
func (l *MemoryLimiter) Fail(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.get(key)
	if c.failures == 0 {
		c.expiresAt = core.Now().Add(l.window)
	}
	c.failures++
	l.counters[key] = c
	return nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counters, key)
	return nil
}

// Sweep drops the expired counters.
func (l *MemoryLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := core.Now()
	for key, c := range l.counters {
		if !now.Before(c.expiresAt) {
			delete(l.counters, key)
		}
	}
}
