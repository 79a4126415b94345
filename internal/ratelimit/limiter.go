package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter hands out one token bucket per key. Keys are provider names
// for outbound calls and client IPs for the inbound throttle.
type KeyedLimiter struct {
	limiters  map[string]*entry
	overrides map[string]RateLimitConfig
	mu        sync.RWMutex
	defaults  RateLimitConfig
	now       func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
	}
}

func NewKeyedLimiter(config RateLimitConfig) *KeyedLimiter {
	return &KeyedLimiter{
		limiters:  make(map[string]*entry),
		overrides: make(map[string]RateLimitConfig),
		defaults:  config,
		now:       time.Now,
	}
}

func NewKeyedLimiterWithDefaults() *KeyedLimiter {
	return NewKeyedLimiter(DefaultConfig())
}

func (l *KeyedLimiter) GetLimiter(key string) *rate.Limiter {
	now := l.now()

	l.mu.RLock()
	e, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		l.mu.Lock()
		e.lastSeen = now
		l.mu.Unlock()
		return e.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e, exists = l.limiters[key]; exists {
		e.lastSeen = now
		return e.limiter
	}

	cfg, ok := l.overrides[key]
	if !ok {
		cfg = l.defaults
	}
	e = &entry{
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		lastSeen: now,
	}
	l.limiters[key] = e
	return e.limiter
}

// SetLimit overrides the rate for one key. An existing bucket is replaced.
func (l *KeyedLimiter) SetLimit(key string, rps float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := RateLimitConfig{RequestsPerSecond: rps, BurstSize: burst}
	l.overrides[key] = cfg
	l.limiters[key] = &entry{
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		lastSeen: l.now(),
	}
}

func (l *KeyedLimiter) Wait(ctx context.Context, key string) error {
	return l.GetLimiter(key).Wait(ctx)
}

func (l *KeyedLimiter) Allow(key string) bool {
	return l.GetLimiter(key).Allow()
}

// Sweep drops buckets idle for longer than idle. Overridden keys are kept.
func (l *KeyedLimiter) Sweep(idle time.Duration) int {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.limiters {
		if _, pinned := l.overrides[key]; pinned {
			continue
		}
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

func (l *KeyedLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
