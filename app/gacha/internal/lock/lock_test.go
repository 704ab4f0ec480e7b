package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/redis"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

func TestNewSelectsNoop(t *testing.T) {
	l := logger.NewNoop()
	assert.IsType(t, Noop{}, New(nil, &Config{Enabled: true}, l))
	assert.IsType(t, Noop{}, New(nil, nil, l))

	release, err := Noop{}.Acquire(context.Background(), 1)
	require.NoError(t, err)
	release()
}

func newTestRedis(t *testing.T) *redis.Client {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	addr := os.Getenv("GACHA_TEST_REDIS_HOST")
	if addr == "" {
		t.Skip("GACHA_TEST_REDIS_HOST not set")
	}
	cfg := redis.DefaultConfig()
	cfg.Standalone.Host = addr
	cfg.KeyPrefix = "gacha-test:"
	client, err := redis.NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLockerContention(t *testing.T) {
	client := newTestRedis(t)
	locker := NewRedisLocker(client, &Config{
		Enabled:       true,
		TTL:           time.Second,
		RetryInterval: 10 * time.Millisecond,
		MaxRetries:    3,
	}, logger.NewNoop())
	ctx := context.Background()

	release, err := locker.Acquire(ctx, 42)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, 42)
	assert.True(t, errors.Is(err, errcode.ErrLockTimeout))
	assert.True(t, errcode.IsTransient(err))

	// 不同玩家互不影响
	other, err := locker.Acquire(ctx, 43)
	require.NoError(t, err)
	other()

	release()
	again, err := locker.Acquire(ctx, 42)
	require.NoError(t, err)
	again()
}
