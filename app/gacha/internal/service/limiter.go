package service

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/pkg/cache/lru"
)

// LimiterConfig 玩家级限流配置
type LimiterConfig struct {
	Enabled           bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" json:"burst" yaml:"burst"`
	MaxPlayers        int           `mapstructure:"max_players" json:"max_players" yaml:"max_players"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl" json:"idle_ttl" yaml:"idle_ttl"`
}

// DefaultLimiterConfig 默认配置
func DefaultLimiterConfig() *LimiterConfig {
	return &LimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 5,
		Burst:             10,
		MaxPlayers:        100000,
		IdleTTL:           10 * time.Minute,
	}
}

// PlayerLimiter 每个玩家一个令牌桶，空闲的桶由 LRU 淘汰
type PlayerLimiter struct {
	cfg      *LimiterConfig
	limiters *lru.LRU[int64, *rate.Limiter]
}

// withDefaults 数值项缺省时取默认值，Enabled 保持调用方给定
func (c *LimiterConfig) withDefaults() *LimiterConfig {
	def := DefaultLimiterConfig()
	out := *c
	if out.RequestsPerSecond <= 0 {
		out.RequestsPerSecond = def.RequestsPerSecond
	}
	if out.Burst <= 0 {
		out.Burst = def.Burst
	}
	if out.MaxPlayers <= 0 {
		out.MaxPlayers = def.MaxPlayers
	}
	if out.IdleTTL <= 0 {
		out.IdleTTL = def.IdleTTL
	}
	return &out
}

// NewPlayerLimiter 创建玩家限流器
func NewPlayerLimiter(cfg *LimiterConfig) *PlayerLimiter {
	if cfg == nil {
		cfg = DefaultLimiterConfig()
	}
	cfg = cfg.withDefaults()
	return &PlayerLimiter{
		cfg: cfg,
		limiters: lru.New[int64, *rate.Limiter](lru.Config{
			MaxSize:         cfg.MaxPlayers,
			DefaultTTL:      cfg.IdleTTL,
			CleanupInterval: cfg.IdleTTL,
			Sliding:         true,
		}),
	}
}

// Allow 消耗一个令牌，超限返回 errcode.ErrRateLimited
func (l *PlayerLimiter) Allow(playerID int64) error {
	if l == nil || !l.cfg.Enabled {
		return nil
	}
	limiter := l.limiters.GetOrCreate(playerID, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)
	})
	if !limiter.Allow() {
		return errors.Wrapf(errcode.ErrRateLimited, "player %s", strconv.FormatInt(playerID, 10))
	}
	return nil
}

// Close 释放限流器
func (l *PlayerLimiter) Close() error {
	if l == nil {
		return nil
	}
	return l.limiters.Close()
}
