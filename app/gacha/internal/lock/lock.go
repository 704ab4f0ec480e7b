package lock

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/redis"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// Locker 玩家级互斥守卫，位于数据库事务之外
// 正确性由数据库行锁保证，守卫只用于削减同一玩家的并发事务冲突
type Locker interface {
	// Acquire 获取守卫，竞争超出重试上限时返回 errcode.ErrLockTimeout
	Acquire(ctx context.Context, playerID int64) (release func(), err error)
}

// Config 守卫参数
type Config struct {
	Enabled       bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	TTL           time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval" json:"retry_interval" yaml:"retry_interval"`
	MaxRetries    int           `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Enabled:       false,
		TTL:           10 * time.Second,
		RetryInterval: 50 * time.Millisecond,
		MaxRetries:    20,
	}
}

// RedisLocker 基于 Redis SET NX PX 的守卫，释放时比对持有者
type RedisLocker struct {
	client *redis.Client
	cfg    *Config
	logger logger.Logger
}

// NewRedisLocker 创建 Redis 守卫
func NewRedisLocker(client *redis.Client, cfg *Config, l logger.Logger) *RedisLocker {
	if merged, err := config.MergeConfig(DefaultConfig(), cfg); err == nil {
		cfg = merged
	}
	return &RedisLocker{
		client: client,
		cfg:    cfg,
		logger: l.Named("lock.redis"),
	}
}

// Key 玩家守卫的键
func (r *RedisLocker) Key(playerID int64) string {
	return r.client.Key("lock", "player", strconv.FormatInt(playerID, 10))
}

func (r *RedisLocker) Acquire(ctx context.Context, playerID int64) (func(), error) {
	l := redis.NewLock(r.client, r.Key(playerID), r.cfg.TTL)
	if err := l.LockWithRetry(ctx, r.cfg.RetryInterval, r.cfg.MaxRetries); err != nil {
		if errors.Is(err, redis.ErrLockFailed) {
			return nil, errors.Mark(errors.Wrapf(err, "player %d is busy", playerID), errcode.ErrLockTimeout)
		}
		return nil, errors.Wrapf(err, "failed to acquire player %d guard", playerID)
	}

	return func() {
		// 请求 ctx 可能已取消，释放使用独立超时
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.Unlock(ctx); err != nil {
			r.logger.Warn("failed to release player guard", "player_id", playerID, "key", l.Key(), "error", err)
		}
	}, nil
}

// Noop 不做任何互斥
type Noop struct{}

func (Noop) Acquire(context.Context, int64) (func(), error) {
	return func() {}, nil
}

// New 按配置选择实现，未启用或没有 Redis 时返回 Noop
func New(client *redis.Client, cfg *Config, l logger.Logger) Locker {
	if cfg == nil || !cfg.Enabled || client == nil {
		return Noop{}
	}
	return NewRedisLocker(client, cfg, l)
}
