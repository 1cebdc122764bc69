package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"article-api/backend/pkg/logger"
)

func testPolicies() []Policy {
	return []Policy{
		{Name: "auth_login", Rate: Rate{Limit: 5, Window: time.Minute}, Enabled: true},
		{Name: "auth_register", Rate: Rate{Limit: 3, Window: time.Minute}, Enabled: true},
		{Name: "stats_search", Rate: Rate{Limit: 30, Window: time.Minute}, Enabled: false},
	}
}

func TestRegistry_PoliciesAreIndependent(t *testing.T) {
	r, err := NewRegistry(Options{Logger: logger.Discard()}, testPolicies()...)
	require.NoError(t, err)

	login, ok := r.Limiter("auth_login")
	require.True(t, ok)
	register, ok := r.Limiter("auth_register")
	require.True(t, ok)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		d, _ := register.Allow(ctx, "ip:1.1.1.1", t0)
		require.True(t, d.Allowed)
	}
	d, _ := register.Allow(ctx, "ip:1.1.1.1", t0)
	assert.False(t, d.Allowed)

	d, _ = login.Allow(ctx, "ip:1.1.1.1", t0)
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining)

	assert.Equal(t, 1, r.TrackedKeys("auth_login"))
	assert.Equal(t, []string{"auth_login", "auth_register", "stats_search"}, r.Names())
}

func TestRegistry_DisabledAndUnknown(t *testing.T) {
	r, err := NewRegistry(Options{Logger: logger.Discard()}, testPolicies()...)
	require.NoError(t, err)

	_, ok := r.Limiter("stats_search")
	assert.False(t, ok)
	p, ok := r.Policy("stats_search")
	assert.True(t, ok)
	assert.False(t, p.Enabled)

	_, ok = r.Limiter("nope")
	assert.False(t, ok)
	assert.Nil(t, r.Breaker())
}

func TestRegistry_InvalidConfig(t *testing.T) {
	_, err := NewRegistry(Options{}, Policy{Name: "x", Rate: Rate{Limit: 0, Window: time.Minute}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p := Policy{Name: "x", Rate: Rate{Limit: 1, Window: time.Minute}}
	_, err = NewRegistry(Options{}, p, p)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewRegistry(Options{Backend: "etcd"}, p)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewRegistry(Options{Algorithm: "sliding_log"}, p)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewRegistry(Options{Backend: BackendRedis}, p)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRegistry_TokenBucket(t *testing.T) {
	r, err := NewRegistry(Options{Algorithm: AlgorithmTokenBucket},
		Policy{Name: "x", Rate: Rate{Limit: 1, Window: time.Minute}, Enabled: true})
	require.NoError(t, err)

	lim, ok := r.Limiter("x")
	require.True(t, ok)
	_, isBucket := lim.(*TokenBucket)
	assert.True(t, isBucket)
}

func TestRegistry_RedisBackend(t *testing.T) {
	mr, client := newMiniredis(t)

	r, err := NewRegistry(Options{Backend: BackendRedis, Redis: client, KeyPrefix: "rl", Logger: logger.Discard()},
		Policy{Name: "auth_login", Rate: Rate{Limit: 1, Window: time.Minute}, Enabled: true})
	require.NoError(t, err)
	require.NotNil(t, r.Breaker())

	lim, _ := r.Limiter("auth_login")
	d, err := lim.Allow(context.Background(), "ip:9.9.9.9", t0)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, mr.Exists("rl:auth_login:ip:9.9.9.9"))
}

func TestRegistry_RunReturnsOnCancel(t *testing.T) {
	r, err := NewRegistry(Options{}, testPolicies()...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
