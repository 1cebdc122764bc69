package ratelimit

import (
	"context"
	"time"

	"article-api/backend/pkg/logger"
	"article-api/backend/pkg/resilience"
)

// Fallback asks primary through a circuit breaker and answers from secondary
// whenever primary fails or the breaker is open.
type Fallback struct {
	primary   Limiter
	secondary *FixedWindow
	breaker   *resilience.CircuitBreaker
	log       *logger.Logger
}

// NewFallback wires primary behind breaker. secondary must enforce the same rate.
func NewFallback(primary Limiter, secondary *FixedWindow, breaker *resilience.CircuitBreaker, log *logger.Logger) *Fallback {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Fallback{primary: primary, secondary: secondary, breaker: breaker, log: log}
}

// Allow implements Limiter and never returns an error.
func (f *Fallback) Allow(ctx context.Context, key string, now time.Time) (Decision, error) {
	var d Decision
	err := f.breaker.Execute(func() error {
		var err error
		d, err = f.primary.Allow(ctx, key, now)
		return err
	})
	if err == nil {
		return d, nil
	}

	f.log.Debug("rate limit served from memory", "error", err.Error())
	return f.secondary.Check(key, now), nil
}

// Rate implements Limiter.
func (f *Fallback) Rate() Rate {
	return f.primary.Rate()
}

// Breaker exposes the breaker for health reporting.
func (f *Fallback) Breaker() *resilience.CircuitBreaker {
	return f.breaker
}

// Sweep, Len and Run operate on the in-memory side.
func (f *Fallback) Sweep(now time.Time) int { return f.secondary.Sweep(now) }
func (f *Fallback) Len() int                { return f.secondary.Len() }
func (f *Fallback) Run(ctx context.Context) { f.secondary.Run(ctx) }
