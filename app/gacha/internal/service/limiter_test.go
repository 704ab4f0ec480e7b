package service

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
)

func TestPlayerLimiter(t *testing.T) {
	l := NewPlayerLimiter(&LimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             2,
		MaxPlayers:        10,
		IdleTTL:           time.Minute,
	})
	defer l.Close()

	assert.NoError(t, l.Allow(1))
	assert.NoError(t, l.Allow(1))
	err := l.Allow(1)
	assert.True(t, errors.Is(err, errcode.ErrRateLimited))
	assert.NoError(t, l.Allow(2))

	var disabled *PlayerLimiter
	assert.NoError(t, disabled.Allow(1))
	assert.NoError(t, NewPlayerLimiter(&LimiterConfig{}).Allow(1))
}

func TestPlayerLimiterIdleTTLRefreshedByTraffic(t *testing.T) {
	const idle = 40 * time.Millisecond
	l := NewPlayerLimiter(&LimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             2,
		IdleTTL:           idle,
	})
	defer l.Close()

	require.NoError(t, l.Allow(7))
	require.NoError(t, l.Allow(7))

	// 持续请求超过 3 倍 IdleTTL，桶不能因创建时间到期而被重置
	deadline := time.Now().Add(3 * idle)
	for time.Now().Before(deadline) {
		assert.True(t, errors.Is(l.Allow(7), errcode.ErrRateLimited))
		time.Sleep(idle / 4)
	}

	// 空闲超过 IdleTTL 后桶被淘汰，重新获得突发额度
	time.Sleep(idle + idle/2)
	assert.NoError(t, l.Allow(7))
}
