package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limits per wallet+action. Offers are throttled harder than plain notes.
var defaults = map[string]rate.Limit{
	"send_message":  rate.Every(2 * time.Second),
	"create_thread": rate.Every(10 * time.Second),
	"submit_offer":  rate.Every(15 * time.Second),
}

const defaultBurst = 5

// RateLimiter keeps one token-bucket limiter per (wallet, action) pair and
// evicts idle entries periodically.
type RateLimiter struct {
	mutex    sync.Mutex
	limiters map[string]*entry
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*entry),
	}
}

// Allow reports whether the wallet may perform the action now.
func (rl *RateLimiter) Allow(wallet, action string) bool {
	key := wallet + ":" + action

	rl.mutex.Lock()
	e, ok := rl.limiters[key]
	if !ok {
		limit, found := defaults[action]
		if !found {
			limit = rate.Every(time.Second)
		}
		e = &entry{limiter: rate.NewLimiter(limit, defaultBurst)}
		rl.limiters[key] = e
	}
	e.lastSeen = time.Now()
	rl.mutex.Unlock()

	return e.limiter.Allow()
}

// StartCleanupRoutine evicts limiters idle for more than an hour, until ctx
// is cancelled.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-time.Hour)
				rl.mutex.Lock()
				for key, e := range rl.limiters {
					if e.lastSeen.Before(cutoff) {
						delete(rl.limiters, key)
					}
				}
				rl.mutex.Unlock()
			}
		}
	}()
}
