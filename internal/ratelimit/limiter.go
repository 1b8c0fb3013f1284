// Package ratelimit provides token bucket rate limiting for job submission
// and MCP tool calls.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter is a per-key token bucket. Every key starts with a full burst and
// refills at rate tokens per second. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int
	nowFunc func() time.Time
	// sleep waits for d or until ctx is done; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter creates a limiter with the given rate (tokens/sec) and burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
		sleep:   sleepContext,
	}
}

// refill returns the bucket for key with tokens accrued up to now.
// Callers hold l.mu.
func (l *Limiter) refill(key string, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), last: now}
		l.buckets[key] = b
		return b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+l.rate*elapsed, float64(l.burst))
		b.last = now
	}
	return b
}

// Allow takes a token for key if one is available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key, l.nowFunc())
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Wait blocks until a token for key is available or ctx is done. A limiter
// with a zero rate never refills, so Wait fails once the burst is spent.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	for {
		l.mu.Lock()
		b := l.refill(key, l.nowFunc())
		if b.tokens >= 1 {
			b.tokens--
			l.mu.Unlock()
			return nil
		}
		if l.rate <= 0 {
			l.mu.Unlock()
			return fmt.Errorf("rate limit for %s is exhausted", key)
		}
		wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ToolLimiters maps MCP tool names to their limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default per-tool limiters.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"spexplore_results": NewLimiter(30.0/60.0, 5), // 30/minute, burst 5; may import a whole batch
		"spexplore_jobs":    NewLimiter(1.0, 10),      // 60/minute, burst 10
		"spexplore_seeds":   NewLimiter(1.0, 10),      // 60/minute, burst 10
	}
}

// CheckLimit returns an error when toolName is over its limit. Tools
// without a limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow(toolName) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}
