package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"article-api/backend/pkg/logger"
)

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "JWT_SECRET", EnvKey("jwt_secret"))
	assert.Equal(t, "DB_PASSWORD", EnvKey("db-password"))
	assert.Equal(t, "A_B_C", EnvKey("a.b-c"))
}

func TestEnvManager(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	ctx := context.Background()

	v, err := EnvManager{}.GetSecret(ctx, "jwt_secret")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	_, err = EnvManager{}.GetSecret(ctx, "nothing_here_at_all")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	assert.Equal(t, "fallback", GetWithDefault(ctx, EnvManager{}, "nothing_here_at_all", "fallback"))
}

func TestNewVaultManager_RequiresAddressAndToken(t *testing.T) {
	_, err := NewVaultManager(VaultConfig{Token: "t"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultAddress)

	_, err = NewVaultManager(VaultConfig{Address: "http://127.0.0.1:1"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultToken)
}

func newFakeVault(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/v1/secret/data/article-api" || r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {
				"data": {"jwt_secret": "from-vault"},
				"metadata": {"created_time": "2024-01-01T00:00:00Z", "deletion_time": "", "destroyed": false, "version": 1}
			}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultManager_ReadsAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := newFakeVault(t, &hits)
	t.Setenv("DB_PASSWORD", "env-db-pass")

	m, err := NewVaultManager(VaultConfig{
		Address:    srv.URL,
		Token:      "root",
		SecretPath: "article-api",
	}, logger.Discard())
	require.NoError(t, err)

	ctx := context.Background()
	v, err := m.GetSecret(ctx, "jwt_secret")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", v)

	// missing field falls back to the environment, served from cache
	v, err = m.GetSecret(ctx, "db_password")
	require.NoError(t, err)
	assert.Equal(t, "env-db-pass", v)
	assert.Equal(t, int32(1), hits.Load())

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = m.GetSecret(ctx, "jwt_secret")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestVaultManager_FallsBackWhenSecretMissing(t *testing.T) {
	var hits atomic.Int32
	srv := newFakeVault(t, &hits)
	t.Setenv("JWT_SECRET", "env-secret")

	m, err := NewVaultManager(VaultConfig{
		Address:    srv.URL,
		Token:      "root",
		SecretPath: "other-app",
	}, logger.Discard())
	require.NoError(t, err)

	v, err := m.GetSecret(context.Background(), "jwt_secret")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", v)
}
