package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"article-api/backend/internal/models"
	"article-api/backend/internal/service"
	"article-api/backend/internal/ws"
	"article-api/backend/pkg/config"
	"article-api/backend/pkg/health"
	"article-api/backend/pkg/jwt"
	"article-api/backend/pkg/logger"
	"article-api/backend/pkg/metrics"
	"article-api/backend/pkg/middleware"
	"article-api/backend/pkg/ratelimit"
	"article-api/backend/pkg/resilience"
	"article-api/backend/pkg/secrets"
	"article-api/backend/shared/observability"
	sharedredis "article-api/backend/shared/redis"

	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	Config         *config.Config
	DB             *gorm.DB
	Logger         *logger.Logger
	Secrets        secrets.Manager
	Redis          *redis.Client
	JWTService     *jwt.Service
	UserService    *service.UserService
	ArticleService *service.ArticleService
	StatsService   *service.StatsService
	RateLimits     *ratelimit.Registry
	RateLimiter    *middleware.RateLimiter
	Metrics        *metrics.Metrics
	Health         *health.Checker
	Hub            *ws.Hub
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider

	shutdownTracing observability.Shutdown
}

// Options override pieces of the container, mainly for tests
type Options struct {
	// DB skips opening the configured database
	DB *gorm.DB
	// Logger replaces the logger built from cfg.Logging
	Logger *logger.Logger
	// Redis replaces the client built from cfg.Redis
	Redis *redis.Client
	// TraceOutput receives stdout spans; defaults to os.Stdout
	TraceOutput io.Writer
}

// NewLogger builds the process logger from the logging section
func NewLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		JSON:       cfg.Logging.Format != "text",
		Output:     os.Stderr,
		File:       cfg.Logging.File,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	log := opts.Logger
	if log == nil {
		log = NewLogger(cfg)
	}
	logger.SetGlobal(log)

	c := &Container{Config: cfg, Logger: log}

	secretManager, err := newSecrets(cfg, log)
	if err != nil {
		return nil, err
	}
	c.Secrets = secretManager
	cfg.JWT.Secret = secrets.GetWithDefault(ctx, secretManager, "JWT_SECRET", cfg.JWT.Secret)

	c.DB = opts.DB
	if c.DB == nil {
		cfg.Database.Password = secrets.GetWithDefault(ctx, secretManager, "DB_PASSWORD", cfg.Database.Password)
		if c.DB, err = config.NewDB(cfg, log); err != nil {
			return nil, err
		}
	}

	c.Redis = opts.Redis
	if c.Redis == nil && cfg.Redis.Enabled {
		c.Redis, err = sharedredis.NewClient(ctx, sharedredis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return nil, err
		}
	}

	c.JWTService = jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	c.UserService = service.NewUserService(c.DB, c.JWTService)
	c.ArticleService = service.NewArticleService(c.DB)
	c.StatsService = service.NewStatsService(c.DB, c.ArticleService, cfg.Cache.StatsTTL)
	c.Hub = ws.NewHub(log)

	c.Metrics = metrics.New()

	var scripter redis.Scripter
	if c.Redis != nil {
		scripter = c.Redis
	}
	if c.RateLimits, err = NewRateLimits(cfg, scripter, log); err != nil {
		return nil, err
	}
	if err := c.Metrics.TrackKeys(c.RateLimits.Names(), c.RateLimits.TrackedKeys); err != nil {
		return nil, fmt.Errorf("register rate limit metrics: %w", err)
	}
	c.RateLimiter = middleware.NewRateLimiter(c.RateLimits, log, middleware.RateLimiterOptions{
		KeyFunc:  middleware.KeyFuncFor(middleware.KeyStrategy(cfg.RateLimit.KeyStrategy)),
		Recorder: c.Metrics,
	})

	c.TracerProvider, c.shutdownTracing, err = observability.SetupTracing(
		cfg.Observability.ServiceName, cfg.Observability.TracesStdout, opts.TraceOutput)
	if err != nil {
		return nil, err
	}
	if c.MeterProvider, err = observability.SetupMeterProvider(cfg.Observability.ServiceName, c.Metrics.Registry()); err != nil {
		return nil, err
	}

	c.Health = health.NewChecker(log, 0)
	c.Health.RegisterDatabaseCheck(func(ctx context.Context) error {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if c.Redis != nil {
		c.Health.RegisterRedisCheck(sharedredis.Check(c.Redis))
	}
	if breaker := c.RateLimits.Breaker(); breaker != nil {
		c.Health.RegisterCheck("ratelimit", false, func(context.Context) (health.Status, string, error) {
			if breaker.State() == resilience.StateOpen {
				return health.StatusDegraded, "Redis circuit open, using in-memory limits", nil
			}
			return health.StatusUp, "Shared rate limits active", nil
		})
	}

	return c, nil
}

func newSecrets(cfg *config.Config, log *logger.Logger) (secrets.Manager, error) {
	if !cfg.Vault.Enabled {
		return secrets.EnvManager{}, nil
	}
	m, err := secrets.NewVaultManager(secrets.VaultConfig{
		Address:    cfg.Vault.Address,
		Token:      cfg.Vault.Token,
		MountPath:  cfg.Vault.MountPath,
		SecretPath: cfg.Vault.SecretPath,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return m, nil
}

// NewRateLimits builds the policy registry described by the rate limit section.
// The global policy comes first; route policies follow in declaration order.
func NewRateLimits(cfg *config.Config, client redis.Scripter, log *logger.Logger) (*ratelimit.Registry, error) {
	rl := cfg.RateLimit
	policies := []ratelimit.Policy{{
		Name:    config.PolicyGlobal,
		Rate:    ratelimit.Rate{Limit: rl.MaxRequests, Window: rl.Window},
		Enabled: rl.GlobalEnabled,
	}}
	for _, p := range rl.Policies {
		r, err := ratelimit.ParseRate(p.Rate)
		if err != nil {
			return nil, fmt.Errorf("rate limit policy %s: %w", p.Name, err)
		}
		policies = append(policies, ratelimit.Policy{Name: p.Name, Rate: r, Enabled: p.Enabled})
	}

	if rl.PoliciesFile != "" {
		var err error
		if policies, err = ratelimit.LoadPolicies(rl.PoliciesFile, policies); err != nil {
			return nil, err
		}
	}

	if !rl.Enabled {
		for i := range policies {
			policies[i].Enabled = false
		}
	}

	opts := ratelimit.Options{
		Algorithm:     ratelimit.Algorithm(rl.Algorithm),
		Backend:       ratelimit.Backend(rl.Backend),
		MaxKeys:       rl.MaxKeys,
		SweepInterval: rl.SweepInterval,
		KeyPrefix:     rl.KeyPrefix,
		Logger:        log,
	}
	if opts.Backend == ratelimit.BackendRedis {
		if client == nil {
			return nil, fmt.Errorf("%w: redis backend selected but redis is disabled", ratelimit.ErrInvalidConfig)
		}
		opts.Redis = client
	}
	return ratelimit.NewRegistry(opts, policies...)
}

// Migrate creates or updates the schema
func (c *Container) Migrate() error {
	return c.DB.AutoMigrate(models.All()...)
}

// Close releases connections and flushes telemetry
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.shutdownTracing != nil {
		errs = append(errs, c.shutdownTracing(ctx))
	}
	if c.MeterProvider != nil {
		errs = append(errs, c.MeterProvider.Shutdown(ctx))
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	errs = append(errs, c.Logger.Close())
	return errors.Join(errs...)
}
