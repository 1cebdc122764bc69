package middleware

import (
	"strconv"
	"time"

	"article-api/backend/pkg/errors"
	"article-api/backend/pkg/jwt"
	"article-api/backend/pkg/logger"
	"article-api/backend/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// KeyStrategy selects how callers are told apart
type KeyStrategy string

const (
	// KeyByIP limits per client address
	KeyByIP KeyStrategy = "ip"
	// KeyByUser limits per authenticated user, falling back to the address
	KeyByUser KeyStrategy = "user"
)

// AnonymousKey is shared by every caller with no usable identity
const AnonymousKey = "anonymous"

// Header names written on every limited response
const (
	HeaderRetryAfter         = "Retry-After"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// IPKey returns the client address, or AnonymousKey when none can be derived
func IPKey(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return AnonymousKey
}

// UserKey returns "user:<id>" for an identified caller, else "ip:<addr>",
// else AnonymousKey
func UserKey(c *gin.Context) string {
	if claims, ok := ClaimsFromContext(c); ok {
		return claims.CallerKey()
	}
	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return AnonymousKey
}

// KeyFuncFor maps a strategy to its key function; unknown strategies key by IP
func KeyFuncFor(strategy KeyStrategy) func(*gin.Context) string {
	if strategy == KeyByUser {
		return UserKey
	}
	return IPKey
}

// DecisionRecorder receives every limiter outcome
type DecisionRecorder interface {
	ObserveDecision(policy string, allowed bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDecision(string, bool) {}

// RateLimiterOptions configures the rate limit middleware
type RateLimiterOptions struct {
	// KeyFunc extracts the limiting key from a request
	KeyFunc func(*gin.Context) string
	// Recorder is told about each decision; optional
	Recorder DecisionRecorder
	// Now is the clock used for decisions; defaults to time.Now
	Now func() time.Time
}

// RateLimiter turns registry policies into gin middleware
type RateLimiter struct {
	registry *ratelimit.Registry
	options  RateLimiterOptions
	logger   *logger.Logger
}

// NewRateLimiter creates a rate limiter over the given registry
func NewRateLimiter(registry *ratelimit.Registry, log *logger.Logger, options RateLimiterOptions) *RateLimiter {
	if options.KeyFunc == nil {
		options.KeyFunc = IPKey
	}
	if options.Recorder == nil {
		options.Recorder = nopRecorder{}
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &RateLimiter{registry: registry, options: options, logger: log}
}

// Limit enforces the named policy. Unknown or disabled policies pass through.
func (r *RateLimiter) Limit(policy string) gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter, ok := r.registry.Limiter(policy)
		if !ok {
			c.Next()
			return
		}

		key := r.options.KeyFunc(c)
		decision, err := limiter.Allow(c.Request.Context(), key, r.options.Now())
		if err != nil {
			logger.FromContext(c).Warn("rate limit check failed, allowing request",
				"policy", policy,
				"error", err.Error(),
			)
			c.Next()
			return
		}

		r.options.Recorder.ObserveDecision(policy, decision.Allowed)
		writeRateLimitHeaders(c, decision)

		if !decision.Allowed {
			logger.FromContext(c).Warn("rate limit exceeded",
				"policy", policy,
				"client", key,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"retry_after", decision.RetryAfterSeconds(),
			)

			c.Error(errors.NewTooManyRequestsError("RATE_LIMIT_EXCEEDED", "Rate limit exceeded: "+limiter.Rate().String()).
				WithHeader(HeaderRetryAfter, strconv.Itoa(decision.RetryAfterSeconds())))
			c.Abort()
			return
		}

		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, d ratelimit.Decision) {
	c.Header(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
	c.Header(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
	c.Header(HeaderRateLimitReset, strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// ClaimsFromContext returns the claims set by JWTAuthMiddleware or IdentifyCaller
func ClaimsFromContext(c *gin.Context) (*jwt.JWTClaims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.JWTClaims)
	return claims, ok && claims != nil
}
