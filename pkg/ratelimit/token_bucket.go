package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket refills Limit tokens per Window continuously with a burst of
// Limit, so a caller that was idle for a full window starts with a full bucket.
type TokenBucket struct {
	mu       sync.Mutex
	cfg      Config
	interval time.Duration
	buckets  *keyedStore[*rate.Limiter]
}

// NewTokenBucket validates cfg and returns an empty limiter.
func NewTokenBucket(cfg Config) (*TokenBucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenBucket{
		cfg:      cfg,
		interval: cfg.Window / time.Duration(cfg.Limit),
		buckets:  newKeyedStore[*rate.Limiter](cfg.MaxKeys),
	}, nil
}

// Check takes one token for key at now, if one is available.
func (t *TokenBucket) Check(key string, now time.Time) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, _ := t.buckets.touch(key, now, func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(t.interval), t.cfg.Limit)
	})
	lim := e.value

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Limit: t.cfg.Limit, ResetAt: now.Add(t.cfg.Window), RetryAfter: t.cfg.Window}
	}

	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		if delay > t.cfg.Window {
			delay = t.cfg.Window
		}
		return Decision{
			Allowed:    false,
			Limit:      t.cfg.Limit,
			Remaining:  0,
			ResetAt:    t.fullAt(lim, now),
			RetryAfter: delay,
		}
	}

	remaining := int(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   true,
		Limit:     t.cfg.Limit,
		Remaining: remaining,
		ResetAt:   t.fullAt(lim, now),
	}
}

// fullAt estimates when the bucket holds Limit tokens again.
func (t *TokenBucket) fullAt(lim *rate.Limiter, now time.Time) time.Time {
	missing := float64(t.cfg.Limit) - lim.TokensAt(now)
	if missing <= 0 {
		return now
	}
	return now.Add(time.Duration(missing * float64(t.interval)))
}

// Allow implements Limiter. It never returns an error.
func (t *TokenBucket) Allow(_ context.Context, key string, now time.Time) (Decision, error) {
	return t.Check(key, now), nil
}

// Rate implements Limiter.
func (t *TokenBucket) Rate() Rate {
	return t.cfg.Rate
}

// Sweep drops buckets idle for at least one window; they would be full again.
func (t *TokenBucket) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.buckets.removeFunc(func(e *storeEntry[*rate.Limiter]) bool {
		return !now.Before(e.lastSeen.Add(t.cfg.Window))
	})
}

// Len reports tracked keys.
func (t *TokenBucket) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buckets.len()
}

// Run sweeps until ctx is cancelled.
func (t *TokenBucket) Run(ctx context.Context) {
	runSweeper(ctx, t.cfg.sweepInterval(), t.Sweep)
}
