// Package ratelimit decides whether a caller may proceed under a request quota.
//
// Every limiter answers Allow(ctx, key, now) with a Decision. In-memory limiters
// never fail; the Redis limiter can, and callers decide how to degrade.
//
// Fixed-window accounting counts admitted requests only: once a key reaches its
// limit further requests in the same window are rejected without being counted,
// so a window's count never exceeds the limit.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidConfig is returned when a limiter is built with a non-positive limit or window.
var ErrInvalidConfig = errors.New("ratelimit: invalid configuration")

// Decision is the outcome of a single check.
type Decision struct {
	// Allowed is false when the caller must back off.
	Allowed bool
	// Limit is the configured maximum for one window.
	Limit int
	// Remaining is how many more requests the window admits.
	Remaining int
	// ResetAt is when the current window (or bucket) is fully available again.
	ResetAt time.Time
	// RetryAfter is how long a rejected caller should wait. Zero when allowed.
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below one.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter is implemented by every backend.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (Decision, error)
	Rate() Rate
}

// Sweeper is implemented by limiters that keep per-key state in process memory.
type Sweeper interface {
	// Sweep drops state that no longer affects decisions and returns how many keys went.
	Sweep(now time.Time) int
	// Len reports the number of tracked keys.
	Len() int
	// Run sweeps periodically until ctx is done.
	Run(ctx context.Context)
}

// Rate is a quota: Limit requests per Window.
type Rate struct {
	Limit  int
	Window time.Duration
}

// Validate fails for non-positive values.
func (r Rate) Validate() error {
	if r.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, r.Limit)
	}
	if r.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, r.Window)
	}
	return nil
}

// String renders the rate as "5 per 1 minute".
func (r Rate) String() string {
	switch {
	case r.Window%(24*time.Hour) == 0:
		return fmt.Sprintf("%d per %d day", r.Limit, r.Window/(24*time.Hour))
	case r.Window%time.Hour == 0:
		return fmt.Sprintf("%d per %d hour", r.Limit, r.Window/time.Hour)
	case r.Window%time.Minute == 0:
		return fmt.Sprintf("%d per %d minute", r.Limit, r.Window/time.Minute)
	case r.Window%time.Second == 0:
		return fmt.Sprintf("%d per %d second", r.Limit, r.Window/time.Second)
	default:
		return fmt.Sprintf("%d per %s", r.Limit, r.Window)
	}
}

var units = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseRate reads "5/minute", "100/hour", "5 per minute" or "10/30s".
func ParseRate(s string) (Rate, error) {
	s = strings.TrimSpace(s)
	countPart, windowPart, ok := strings.Cut(s, "/")
	if !ok {
		countPart, windowPart, ok = strings.Cut(s, " per ")
	}
	if !ok {
		return Rate{}, fmt.Errorf("%w: cannot parse rate %q", ErrInvalidConfig, s)
	}

	limit, err := strconv.Atoi(strings.TrimSpace(countPart))
	if err != nil {
		return Rate{}, fmt.Errorf("%w: bad count in rate %q", ErrInvalidConfig, s)
	}

	windowPart = strings.TrimSpace(strings.ToLower(windowPart))
	window, found := units[strings.TrimSuffix(windowPart, "s")]
	if !found {
		window, err = time.ParseDuration(windowPart)
		if err != nil {
			return Rate{}, fmt.Errorf("%w: bad window in rate %q", ErrInvalidConfig, s)
		}
	}

	r := Rate{Limit: limit, Window: window}
	if err := r.Validate(); err != nil {
		return Rate{}, err
	}
	return r, nil
}

// Config configures the in-memory limiters.
type Config struct {
	Rate
	// MaxKeys caps tracked keys; the least recently seen key is evicted at the cap.
	// Zero means unbounded.
	MaxKeys int
	// SweepInterval is how often Run drops expired state. Defaults to the window,
	// never below one second.
	SweepInterval time.Duration
}

// DefaultMaxKeys bounds memory when no cap is configured explicitly.
const DefaultMaxKeys = 100000

// Validate fails fast on unusable settings.
func (c Config) Validate() error {
	if err := c.Rate.Validate(); err != nil {
		return err
	}
	if c.MaxKeys < 0 {
		return fmt.Errorf("%w: max keys must not be negative", ErrInvalidConfig)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("%w: sweep interval must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) sweepInterval() time.Duration {
	interval := c.SweepInterval
	if interval == 0 {
		interval = c.Window
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func runSweeper(ctx context.Context, interval time.Duration, sweep func(time.Time) int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sweep(now)
		}
	}
}
