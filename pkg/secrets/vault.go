package secrets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"article-api/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

// Common errors
var (
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// VaultConfig holds configuration for Vault client
type VaultConfig struct {
	Address    string
	Token      string
	Namespace  string
	MountPath  string
	SecretPath string
	Timeout    time.Duration
	MaxRetries int
	CacheTTL   time.Duration
}

type cachedSecret struct {
	values  map[string]string
	fetched time.Time
}

// VaultManager reads one KV v2 secret and serves its fields, falling back to
// the environment for missing fields
type VaultManager struct {
	client *vault.Client
	config VaultConfig
	env    EnvManager
	log    *logger.Logger
	now    func() time.Time

	mu    sync.Mutex
	cache *cachedSecret
}

// NewVaultManager creates a new Vault manager instance
func NewVaultManager(config VaultConfig, log *logger.Logger) (*VaultManager, error) {
	if config.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if config.Token == "" {
		return nil, ErrNoVaultToken
	}
	if config.MountPath == "" {
		config.MountPath = "secret"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address
	vaultConfig.Timeout = config.Timeout
	vaultConfig.MaxRetries = config.MaxRetries

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	return &VaultManager{
		client: client,
		config: config,
		log:    log,
		now:    time.Now,
	}, nil
}

// GetSecret retrieves a field of the configured secret, with fallback to the environment
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	values, err := m.load(ctx)
	if err != nil {
		m.log.Warn("vault unavailable, falling back to environment", "key", key, "error", err.Error())
		return m.env.GetSecret(ctx, key)
	}

	if value, ok := values[key]; ok && value != "" {
		return value, nil
	}

	m.log.Debug("secret not found in vault, falling back to environment", "key", key)
	return m.env.GetSecret(ctx, key)
}

func (m *VaultManager) load(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cache != nil && m.now().Sub(m.cache.fetched) < m.config.CacheTTL {
		return m.cache.values, nil
	}

	secret, err := m.client.KVv2(m.config.MountPath).Get(ctx, m.config.SecretPath)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("failed to read secret %s: %w", m.config.SecretPath, err)
	}

	values := make(map[string]string, len(secret.Data))
	for k, v := range secret.Data {
		if s, ok := v.(string); ok {
			values[k] = s
		}
	}

	m.cache = &cachedSecret{values: values, fetched: m.now()}
	return values, nil
}
