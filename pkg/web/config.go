package web

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Config Web 服务配置
type Config struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableTLS       bool          `mapstructure:"enable_tls"`
	CertFile        string        `mapstructure:"cert_file"`
	KeyFile         string        `mapstructure:"key_file"`

	// ServiceName 追踪 span 上的服务名
	ServiceName string `mapstructure:"service_name"`

	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig 跨域配置，AllowOrigins 为空时不挂载中间件
type CORSConfig struct {
	AllowOrigins []string      `mapstructure:"allow_origins"`
	MaxAge       time.Duration `mapstructure:"max_age"`
}

// RateLimitConfig 按 IP 限流配置，RequestsPerSecond <= 0 时不挂载中间件
type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxLimiters       int           `mapstructure:"max_limiters"`
	LimiterTTL        time.Duration `mapstructure:"limiter_ttl"`
	SkipPaths         []string      `mapstructure:"skip_paths"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		Mode:            gin.ReleaseMode,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		ServiceName:     "gacha",
		CORS: CORSConfig{
			MaxAge: 12 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			MaxLimiters:       10000,
			LimiterTTL:        10 * time.Minute,
			SkipPaths:         []string{"/health", "/metrics"},
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidConfig
	}
	switch c.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return ErrInvalidConfig
	}
	if c.EnableTLS && (c.CertFile == "" || c.KeyFile == "") {
		return ErrInvalidConfig
	}
	return nil
}
