package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalid is wrapped by every Validate failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port            string
		GRPCPort        string
		Env             string
		Timeout         time.Duration
		ShutdownTimeout time.Duration
		BaseURL         string
		ProjectName     string
		APIPrefix       string
	}

	// Database configuration
	Database struct {
		// Driver is "postgres" or "sqlite"
		Driver   string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		// Path is the sqlite file used when Driver is "sqlite"
		Path     string
		MaxConns int
		Retries  int
		Timeout  time.Duration
	}

	// JWT configuration
	JWT struct {
		Secret string
		Expiry time.Duration
	}

	// Security configuration
	Security struct {
		AllowedOrigins []string
		TrustedProxies []string
		MaxBodySize    int64
	}

	// Rate limiting configuration
	RateLimit RateLimit

	// Redis configuration
	Redis struct {
		Enabled     bool
		Addr        string
		Password    string
		DB          int
		PoolSize    int
		DialTimeout time.Duration
	}

	// Cache configuration
	Cache struct {
		// StatsTTL keeps computed dashboard figures; zero disables caching
		StatsTTL time.Duration
	}

	// Logging configuration
	Logging struct {
		Level      string
		Format     string
		File       string
		MaxBackups int
		MaxAgeDays int
	}

	// Vault configuration
	Vault struct {
		Enabled    bool
		Address    string
		Token      string
		MountPath  string
		SecretPath string
	}

	// Observability configuration
	Observability struct {
		ServiceName  string
		TracesStdout bool
		Metrics      bool
	}

	// Feature flags
	Features struct {
		EnableWebSockets  bool
		OpenAPIValidation bool
		OpenAPISpecPath   string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New returns the process-wide configuration, loading it on first use.
// It panics when the environment is invalid; use Load to handle the error.
func New() *Config {
	once.Do(func() {
		cfg, err := Load()
		if err != nil {
			panic(err)
		}
		instance = cfg
	})
	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Load reads .env (if present) and the environment, then validates the result
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables without validating it
func FromEnv() *Config {
	c := &Config{}

	// Server config
	c.Server.Port = getEnvString("PORT", "8000")
	c.Server.GRPCPort = getEnvString("GRPC_PORT", "")
	c.Server.Env = getEnvString("APP_ENV", "development")
	c.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
	c.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	c.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+c.Server.Port)
	c.Server.ProjectName = getEnvString("PROJECT_NAME", "Article API")
	c.Server.APIPrefix = getEnvString("API_PREFIX", "/api/v1")

	// Database config
	c.Database.Driver = getEnvString("DB_DRIVER", "postgres")
	c.Database.Host = getEnvString("DB_HOST", "localhost")
	c.Database.Port = getEnvString("DB_PORT", "5432")
	c.Database.User = getEnvString("DB_USER", "postgres")
	c.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	c.Database.Name = getEnvString("DB_NAME", "articles")
	c.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	c.Database.Path = getEnvString("DB_PATH", "articles.db")
	c.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	c.Database.Retries = getEnvInt("DB_RETRIES", 5)
	c.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

	// JWT config
	c.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
	c.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 30*time.Minute)

	// Security config
	c.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	c.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})
	c.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 10<<20) // 10MB

	c.RateLimit = rateLimitFromEnv()

	// Redis config
	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
	c.Redis.Addr = getEnvString("REDIS_ADDR", "localhost:6379")
	c.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	c.Redis.DB = getEnvInt("REDIS_DB", 0)
	c.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", 10)
	c.Redis.DialTimeout = getEnvDuration("REDIS_DIAL_TIMEOUT", 2*time.Second)

	// Cache config
	c.Cache.StatsTTL = getEnvDuration("STATS_CACHE_TTL", 15*time.Second)

	// Logging config
	c.Logging.Level = getEnvString("LOG_LEVEL", "info")
	c.Logging.Format = getEnvString("LOG_FORMAT", "json")
	c.Logging.File = getEnvString("LOG_FILE", "")
	c.Logging.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", 7)
	c.Logging.MaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", 7)

	// Vault config
	c.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	c.Vault.Address = getEnvString("VAULT_ADDR", "http://localhost:8200")
	c.Vault.Token = getEnvString("VAULT_TOKEN", "")
	c.Vault.MountPath = getEnvString("VAULT_MOUNT_PATH", "secret")
	c.Vault.SecretPath = getEnvString("VAULT_SECRET_PATH", "article-api")

	// Observability config
	c.Observability.ServiceName = getEnvString("OTEL_SERVICE_NAME", "article-api")
	c.Observability.TracesStdout = getEnvBool("OTEL_TRACES_STDOUT", false)
	c.Observability.Metrics = getEnvBool("METRICS_ENABLED", true)

	// Feature flags
	c.Features.EnableWebSockets = getEnvBool("ENABLE_WEBSOCKETS", true)
	c.Features.OpenAPIValidation = getEnvBool("OPENAPI_VALIDATION", false)
	c.Features.OpenAPISpecPath = getEnvString("OPENAPI_SPEC_PATH", "api/openapi.yaml")

	return c
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production") || strings.EqualFold(c.Server.Env, "prod")
}

// Validate fails fast on settings the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, fmt.Errorf("%w: PORT must be set", ErrInvalid))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown DB_DRIVER %q", ErrInvalid, c.Database.Driver))
	}
	if c.JWT.Expiry <= 0 {
		errs = append(errs, fmt.Errorf("%w: JWT_EXPIRY must be positive", ErrInvalid))
	}
	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit.Backend == "redis" && !c.Redis.Enabled {
		errs = append(errs, fmt.Errorf("%w: RATE_LIMIT_BACKEND=redis needs REDIS_ENABLED", ErrInvalid))
	}

	return errors.Join(errs...)
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
