package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Rate limit policy names used by the router
const (
	PolicyGlobal         = "global"
	PolicyAuthLogin      = "auth_login"
	PolicyAuthRegister   = "auth_register"
	PolicyUsersList      = "users_list"
	PolicyArticlesList   = "articles_list"
	PolicyArticlesGet    = "articles_get"
	PolicyArticlesCreate = "articles_create"
	PolicyStatsSearch    = "stats_search"
)

// RoutePolicy is a named per-route quota in "<count>/<unit>" form
type RoutePolicy struct {
	Name    string
	Rate    string
	Enabled bool
}

// DefaultRoutePolicies are the per-route limits applied unless overridden
func DefaultRoutePolicies() []RoutePolicy {
	return []RoutePolicy{
		{Name: PolicyAuthLogin, Rate: "5/minute", Enabled: true},
		{Name: PolicyAuthRegister, Rate: "3/minute", Enabled: true},
		{Name: PolicyUsersList, Rate: "30/minute", Enabled: true},
		{Name: PolicyArticlesList, Rate: "60/minute", Enabled: true},
		{Name: PolicyArticlesGet, Rate: "100/minute", Enabled: true},
		{Name: PolicyArticlesCreate, Rate: "10/minute", Enabled: true},
		{Name: PolicyStatsSearch, Rate: "30/minute", Enabled: true},
	}
}

// RateLimit configures request rate limiting
type RateLimit struct {
	// Enabled switches every limit on or off
	Enabled bool
	// GlobalEnabled applies MaxRequests per Window to every route
	GlobalEnabled bool
	MaxRequests   int
	Window        time.Duration
	// KeyStrategy is "ip" or "user"
	KeyStrategy string
	// Algorithm is "fixed_window" or "token_bucket"
	Algorithm string
	// Backend is "memory" or "redis"
	Backend       string
	MaxKeys       int
	SweepInterval time.Duration
	KeyPrefix     string
	// PoliciesFile optionally overrides Policies from YAML
	PoliciesFile string
	Policies     []RoutePolicy
}

func rateLimitFromEnv() RateLimit {
	rl := RateLimit{
		Enabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
		GlobalEnabled: getEnvBool("RATE_LIMIT_GLOBAL_ENABLED", true),
		MaxRequests:   getEnvInt("RATE_LIMIT_MAX_REQUESTS", 300),
		Window:        getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		KeyStrategy:   getEnvString("RATE_LIMIT_KEY_STRATEGY", "ip"),
		Algorithm:     getEnvString("RATE_LIMIT_ALGORITHM", "fixed_window"),
		Backend:       getEnvString("RATE_LIMIT_BACKEND", "memory"),
		MaxKeys:       getEnvInt("RATE_LIMIT_MAX_KEYS", 100000),
		SweepInterval: getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", 0),
		KeyPrefix:     getEnvString("RATE_LIMIT_KEY_PREFIX", "ratelimit"),
		PoliciesFile:  getEnvString("RATE_LIMIT_POLICIES_FILE", ""),
		Policies:      DefaultRoutePolicies(),
	}

	// RATE_LIMIT_AUTH_LOGIN=10/minute overrides a single policy
	for i, p := range rl.Policies {
		if v, ok := os.LookupEnv("RATE_LIMIT_" + strings.ToUpper(p.Name)); ok && v != "" {
			rl.Policies[i].Rate = v
		}
	}
	return rl
}

// Validate rejects non-positive limits and unknown modes
func (r RateLimit) Validate() error {
	if r.MaxRequests <= 0 {
		return fmt.Errorf("%w: RATE_LIMIT_MAX_REQUESTS must be positive, got %d", ErrInvalid, r.MaxRequests)
	}
	if r.Window <= 0 {
		return fmt.Errorf("%w: RATE_LIMIT_WINDOW must be positive, got %s", ErrInvalid, r.Window)
	}
	if r.MaxKeys < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_MAX_KEYS must not be negative", ErrInvalid)
	}
	if r.SweepInterval < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_SWEEP_INTERVAL must not be negative", ErrInvalid)
	}
	switch r.KeyStrategy {
	case "ip", "user":
	default:
		return fmt.Errorf("%w: unknown RATE_LIMIT_KEY_STRATEGY %q", ErrInvalid, r.KeyStrategy)
	}
	switch r.Algorithm {
	case "fixed_window", "token_bucket":
	default:
		return fmt.Errorf("%w: unknown RATE_LIMIT_ALGORITHM %q", ErrInvalid, r.Algorithm)
	}
	switch r.Backend {
	case "memory":
	case "redis":
		if r.Algorithm != "fixed_window" {
			return fmt.Errorf("%w: the redis backend only supports fixed_window", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown RATE_LIMIT_BACKEND %q", ErrInvalid, r.Backend)
	}
	for _, p := range r.Policies {
		if strings.TrimSpace(p.Rate) == "" {
			return fmt.Errorf("%w: policy %s has no rate", ErrInvalid, p.Name)
		}
	}
	return nil
}
