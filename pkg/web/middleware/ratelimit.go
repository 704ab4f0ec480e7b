package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/lk2023060901/xdooria-gacha/pkg/cache/lru"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond float64
	// Burst 突发容量
	Burst int
	// SkipPaths 跳过的路径
	SkipPaths []string
	// KeyFunc 限流键，默认按客户端 IP
	KeyFunc func(*gin.Context) string

	// MaxLimiters 最大限流器数量
	MaxLimiters int
	// LimiterTTL 限流器空闲过期时间
	LimiterTTL time.Duration
}

// RateLimiter 按键限流器
type RateLimiter struct {
	cfg      RateLimitConfig
	limiters *lru.LRU[string, *rate.Limiter]
	logger   logger.Logger
}

// NewRateLimiter 创建限流器
func NewRateLimiter(l logger.Logger, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return "ip:" + c.ClientIP() }
	}
	return &RateLimiter{
		cfg: cfg,
		limiters: lru.New[string, *rate.Limiter](lru.Config{
			MaxSize:         cfg.MaxLimiters,
			DefaultTTL:      cfg.LimiterTTL,
			CleanupInterval: cfg.LimiterTTL,
		}),
		logger: l,
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(key string) bool {
	limiter := rl.limiters.GetOrCreate(key, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)
	})
	return limiter.Allow()
}

// Close 关闭限流器
func (rl *RateLimiter) Close() error {
	return rl.limiters.Close()
}

// RateLimit 限流中间件，超限返回 429
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	skipPaths := make(map[string]struct{}, len(limiter.cfg.SkipPaths))
	for _, path := range limiter.cfg.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, skip := skipPaths[path]; skip {
			c.Next()
			return
		}

		key := limiter.cfg.KeyFunc(c)
		if !limiter.Allow(key) {
			limiter.logger.Warn("rate limit exceeded", "key", key, "path", path)
			c.Header("Retry-After", strconv.Itoa(1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    errors.CodeRateLimited,
				"message": "too many requests",
				"data":    nil,
			})
			return
		}

		c.Next()
	}
}
