package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{name: "nil", cfg: nil, wantErr: ErrNilConfig},
		{name: "no mode", cfg: &Config{}, wantErr: ErrInvalidConfig},
		{
			name:    "both modes",
			cfg:     &Config{Standalone: &NodeConfig{Host: "a", Port: 1}, Cluster: &ClusterConfig{Addrs: []string{"b:1"}}},
			wantErr: ErrInvalidConfig,
		},
		{name: "bad db", cfg: &Config{Standalone: &NodeConfig{Host: "a", Port: 1, DB: 16}}, wantErr: ErrInvalidConfig},
		{name: "empty cluster", cfg: &Config{Cluster: &ClusterConfig{}}, wantErr: ErrInvalidConfig},
		{name: "standalone", cfg: &Config{Standalone: &NodeConfig{Host: "a", Port: 6379}}},
		{name: "cluster", cfg: &Config{Cluster: &ClusterConfig{Addrs: []string{"a:7000"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMergeConfigClusterDropsDefaultStandalone(t *testing.T) {
	cfg, err := MergeConfig(&Config{Cluster: &ClusterConfig{Addrs: []string{"a:7000"}}})
	require.NoError(t, err)
	assert.Nil(t, cfg.Standalone)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "gacha:", cfg.KeyPrefix)
}

func TestClientKey(t *testing.T) {
	c, err := NewClient(nil)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "gacha:lock:player:42", c.Key("lock", "player", "42"))
}

func integrationClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	addr := os.Getenv("GACHA_TEST_REDIS")
	if addr == "" {
		t.Skip("GACHA_TEST_REDIS not set")
	}
	c, err := NewClient(&Config{Standalone: &NodeConfig{Host: addr, Port: 6379}, KeyPrefix: "gacha_test:"})
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLockUnlock(t *testing.T) {
	c := integrationClient(t)
	ctx := context.Background()
	key := c.Key("lock", "unit")
	defer c.Del(ctx, key)

	first := NewLock(c, key, 5*time.Second)
	second := NewLock(c, key, 5*time.Second)

	require.NoError(t, first.LockWithRetry(ctx, 10*time.Millisecond, 0))
	assert.ErrorIs(t, second.LockWithRetry(ctx, 10*time.Millisecond, 2), ErrLockFailed)
	assert.ErrorIs(t, second.Unlock(ctx), ErrLockNotHeld)
	require.NoError(t, first.Refresh(ctx))
	require.NoError(t, first.Unlock(ctx))
	require.NoError(t, second.LockWithRetry(ctx, 10*time.Millisecond, 0))
	require.NoError(t, second.Unlock(ctx))
}

func TestHIncrByWithTTL(t *testing.T) {
	c := integrationClient(t)
	ctx := context.Background()
	key := c.Key("quest", "unit")
	defer c.Del(ctx, key)

	require.NoError(t, c.HIncrByWithTTL(ctx, key, map[string]int64{"summons": 5}, time.Minute))
	require.NoError(t, c.HIncrByWithTTL(ctx, key, map[string]int64{"summons": 1, "fusions": 1}, time.Minute))

	m, err := c.HGetAll(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "6", m["summons"])
	assert.Equal(t, "1", m["fusions"])
}
