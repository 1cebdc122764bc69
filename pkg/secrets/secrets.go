// Package secrets resolves credentials from Vault with an environment fallback.
package secrets

import (
	"context"
	"errors"
	"os"
	"strings"
)

// ErrSecretNotFound is returned when no source holds the key
var ErrSecretNotFound = errors.New("secret not found")

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)
}

// EnvKey maps "jwt_secret", "jwt-secret" or "jwt.secret" to JWT_SECRET
func EnvKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

// EnvManager reads secrets from environment variables only
type EnvManager struct{}

// GetSecret implements Manager
func (EnvManager) GetSecret(_ context.Context, key string) (string, error) {
	if value := os.Getenv(EnvKey(key)); value != "" {
		return value, nil
	}
	return "", ErrSecretNotFound
}

// GetWithDefault returns the secret, or defaultValue when it cannot be resolved
func GetWithDefault(ctx context.Context, m Manager, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}
	return value
}
