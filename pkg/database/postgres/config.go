package postgres

import (
	"fmt"
	"time"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
)

// DBConfig 数据库实例
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode"` // disable, require, verify-ca, verify-full
}

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// Config PostgreSQL 配置
type Config struct {
	DB   DBConfig   `mapstructure:"db"`
	Pool PoolConfig `mapstructure:"pool"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`

	// LockTimeout 事务内等待行锁的上限，对应 SET LOCAL lock_timeout
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		DB: DBConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "gacha",
			SSLMode: "disable",
		},
		Pool: PoolConfig{
			MaxConns:          25,
			MinConns:          2,
			MaxConnLifetime:   time.Hour,
			MaxConnIdleTime:   30 * time.Minute,
			HealthCheckPeriod: time.Minute,
		},
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   30 * time.Second,
		LockTimeout:    3 * time.Second,
	}
}

// MergeConfig 在默认配置上合并用户配置
func MergeConfig(dst, src *Config) (*Config, error) {
	return config.MergeConfig(dst, src)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.DB.Host == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidConfig)
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, c.DB.Port)
	}
	if c.DB.User == "" {
		return fmt.Errorf("%w: user is empty", ErrInvalidConfig)
	}
	if c.DB.DBName == "" {
		return fmt.Errorf("%w: db_name is empty", ErrInvalidConfig)
	}
	if c.Pool.MaxConns <= 0 {
		return fmt.Errorf("%w: max_conns must be positive", ErrInvalidConfig)
	}
	if c.Pool.MinConns < 0 || c.Pool.MinConns > c.Pool.MaxConns {
		return fmt.Errorf("%w: min_conns must be within [0, max_conns]", ErrInvalidConfig)
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("%w: lock_timeout must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// ConnString 构建 libpq 连接串
func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.DBName, c.DB.SSLMode,
		int(c.ConnectTimeout.Seconds()),
	)
}
