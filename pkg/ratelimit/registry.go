package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"article-api/backend/pkg/logger"
	"article-api/backend/pkg/resilience"
)

// Algorithm selects the in-memory accounting scheme.
type Algorithm string

const (
	AlgorithmFixedWindow Algorithm = "fixed_window"
	AlgorithmTokenBucket Algorithm = "token_bucket"
)

// Backend selects where counters live.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// Policy is a named quota. Disabled policies are skipped by the middleware.
type Policy struct {
	Name    string
	Rate    Rate
	Enabled bool
}

// Options are shared by every limiter a Registry builds.
type Options struct {
	Algorithm     Algorithm
	Backend       Backend
	MaxKeys       int
	SweepInterval time.Duration
	// Redis is required for BackendRedis.
	Redis     redis.Scripter
	KeyPrefix string
	// Breaker guards Redis; all policies share one breaker.
	Breaker resilience.Config
	Logger  *logger.Logger
}

// Registry holds one independent limiter per policy name.
type Registry struct {
	names    []string
	policies map[string]Policy
	limiters map[string]Limiter
	breaker  *resilience.CircuitBreaker
}

// NewRegistry builds a limiter for every policy. Duplicate names or invalid
// rates fail with ErrInvalidConfig.
func NewRegistry(opts Options, policies ...Policy) (*Registry, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmFixedWindow
	}
	if opts.Backend == "" {
		opts.Backend = BackendMemory
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}

	r := &Registry{
		policies: make(map[string]Policy, len(policies)),
		limiters: make(map[string]Limiter, len(policies)),
	}

	switch opts.Backend {
	case BackendMemory:
	case BackendRedis:
		if opts.Algorithm != AlgorithmFixedWindow {
			return nil, fmt.Errorf("%w: redis backend only supports %s", ErrInvalidConfig, AlgorithmFixedWindow)
		}
		if opts.Redis == nil {
			return nil, fmt.Errorf("%w: redis backend needs a client", ErrInvalidConfig)
		}
		if opts.Breaker.Name == "" {
			opts.Breaker = resilience.DefaultConfig("ratelimit-redis")
		}
		r.breaker = resilience.NewCircuitBreaker(opts.Breaker, opts.Logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, opts.Backend)
	}

	for _, p := range policies {
		if _, dup := r.policies[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate policy %q", ErrInvalidConfig, p.Name)
		}

		lim, err := r.build(opts, p)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", p.Name, err)
		}
		if err := r.Register(p, lim); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds a policy served by a caller-supplied limiter.
func (r *Registry) Register(p Policy, lim Limiter) error {
	if p.Name == "" {
		return fmt.Errorf("%w: policy without a name", ErrInvalidConfig)
	}
	if _, dup := r.policies[p.Name]; dup {
		return fmt.Errorf("%w: duplicate policy %q", ErrInvalidConfig, p.Name)
	}
	r.names = append(r.names, p.Name)
	r.policies[p.Name] = p
	r.limiters[p.Name] = lim
	return nil
}

func (r *Registry) build(opts Options, p Policy) (Limiter, error) {
	cfg := Config{Rate: p.Rate, MaxKeys: opts.MaxKeys, SweepInterval: opts.SweepInterval}

	if opts.Backend == BackendRedis {
		primary, err := NewRedisLimiter(opts.Redis, p.Name, p.Rate, opts.KeyPrefix)
		if err != nil {
			return nil, err
		}
		secondary, err := NewFixedWindow(cfg)
		if err != nil {
			return nil, err
		}
		return NewFallback(primary, secondary, r.breaker, opts.Logger), nil
	}

	switch opts.Algorithm {
	case AlgorithmFixedWindow:
		return NewFixedWindow(cfg)
	case AlgorithmTokenBucket:
		return NewTokenBucket(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, opts.Algorithm)
	}
}

// Limiter returns the limiter for an enabled policy.
func (r *Registry) Limiter(name string) (Limiter, bool) {
	p, ok := r.policies[name]
	if !ok || !p.Enabled {
		return nil, false
	}
	return r.limiters[name], true
}

// Policy returns a policy by name, enabled or not.
func (r *Registry) Policy(name string) (Policy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

// Names lists policies in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// TrackedKeys reports the in-memory key count for a policy, or zero.
func (r *Registry) TrackedKeys(name string) int {
	if s, ok := r.limiters[name].(Sweeper); ok {
		return s.Len()
	}
	return 0
}

// Breaker returns the shared Redis breaker, nil for the memory backend.
func (r *Registry) Breaker() *resilience.CircuitBreaker {
	return r.breaker
}

// Run drives the sweep loop of every in-memory limiter and blocks until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, name := range r.names {
		s, ok := r.limiters[name].(Sweeper)
		if !ok {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Run(ctx)
		}()
	}
	wg.Wait()
}
