package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowState struct {
	count int
	start time.Time
}

// FixedWindow counts admitted requests per key in windows that open on the
// key's first request and last Window.
type FixedWindow struct {
	mu     sync.Mutex
	cfg    Config
	states *keyedStore[windowState]
}

// NewFixedWindow validates cfg and returns an empty limiter.
func NewFixedWindow(cfg Config) (*FixedWindow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FixedWindow{
		cfg:    cfg,
		states: newKeyedStore[windowState](cfg.MaxKeys),
	}, nil
}

// Check records one request for key at now.
func (f *FixedWindow) Check(key string, now time.Time) Decision {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, created := f.states.touch(key, now, func() windowState {
		return windowState{start: now}
	})
	st := &e.value

	if created || !now.Before(st.start.Add(f.cfg.Window)) {
		st.count = 0
		st.start = now
	}

	resetAt := st.start.Add(f.cfg.Window)

	if st.count >= f.cfg.Limit {
		retry := resetAt.Sub(now)
		if retry > f.cfg.Window {
			retry = f.cfg.Window
		}
		return Decision{
			Allowed:    false,
			Limit:      f.cfg.Limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retry,
		}
	}

	st.count++
	return Decision{
		Allowed:   true,
		Limit:     f.cfg.Limit,
		Remaining: f.cfg.Limit - st.count,
		ResetAt:   resetAt,
	}
}

// Allow implements Limiter. It never returns an error.
func (f *FixedWindow) Allow(_ context.Context, key string, now time.Time) (Decision, error) {
	return f.Check(key, now), nil
}

// Rate implements Limiter.
func (f *FixedWindow) Rate() Rate {
	return f.cfg.Rate
}

// Sweep removes every key whose window has expired.
func (f *FixedWindow) Sweep(now time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.states.removeFunc(func(e *storeEntry[windowState]) bool {
		return !now.Before(e.value.start.Add(f.cfg.Window))
	})
}

// Len reports tracked keys.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states.len()
}

// Run sweeps until ctx is cancelled.
func (f *FixedWindow) Run(ctx context.Context) {
	runSweeper(ctx, f.cfg.sweepInterval(), f.Sweep)
}
