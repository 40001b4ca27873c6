package services

import (
	"context"
	"sync"
	"time"

	"github.com/outboundiq/personalize-backend/internal/logger"
)

// RateLimiter is a fixed-window counter shared by every external crawl and
// text-generation call site. Bursts straddling a window boundary can briefly
// double the budget; that imprecision is accepted rather than papered over
// with a sliding window the provider does not use either.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	count       int
	windowStart time.Time

	log *logger.Logger
	now func() time.Time
	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRateLimiter(maxRequests int, window time.Duration, baseLog *logger.Logger) *RateLimiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		windowStart: time.Now(),
		log:         baseLog.With("component", "RateLimiter"),
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Acquire blocks until one external call may be issued, then records it.
// The check and the increment happen under one lock, so two callers can
// never both take the last slot of a window.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := rl.now()
		if now.Sub(rl.windowStart) >= rl.window {
			rl.count = 0
			rl.windowStart = now
		}
		if rl.count < rl.maxRequests {
			rl.count++
			rl.mu.Unlock()
			return nil
		}
		wait := rl.window - now.Sub(rl.windowStart)
		rl.mu.Unlock()

		if wait > 0 {
			rl.log.Debug("Rate limit reached, waiting for window reset", "wait", wait.String())
			if err := rl.sleep(ctx, wait); err != nil {
				return err
			}
		}
		// Re-check under the lock; another waiter may have refilled and
		// drained the new window while we slept.
	}
}

// Window reports the configured window duration.
func (rl *RateLimiter) Window() time.Duration {
	return rl.window
}

// Budget reports the per-window request budget.
func (rl *RateLimiter) Budget() int {
	return rl.maxRequests
}
