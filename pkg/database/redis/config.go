package redis

import (
	"fmt"
	"time"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
)

// Config Redis 配置（Standalone/Cluster 两种模式，必须且只能配置一种）
type Config struct {
	// Standalone 单机模式配置
	Standalone *NodeConfig `mapstructure:"standalone"`

	// Cluster 集群模式配置
	Cluster *ClusterConfig `mapstructure:"cluster"`

	// Pool 连接池配置（所有模式共享）
	Pool PoolConfig `mapstructure:"pool"`

	// KeyPrefix 所有业务键的统一前缀
	KeyPrefix string `mapstructure:"key_prefix"`
}

// NodeConfig 单节点配置
type NodeConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"` // 0-15
}

// ClusterConfig 集群配置
type ClusterConfig struct {
	Addrs    []string `mapstructure:"addrs"` // host:port
	Password string   `mapstructure:"password"`
}

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
}

// DefaultConfig 默认配置（本地单机）
func DefaultConfig() *Config {
	return &Config{
		Standalone: &NodeConfig{Host: "localhost", Port: 6379},
		Pool: PoolConfig{
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,
			DialTimeout:     5 * time.Second,
			ReadTimeout:     3 * time.Second,
			WriteTimeout:    3 * time.Second,
			PoolTimeout:     4 * time.Second,
		},
		KeyPrefix: "gacha:",
	}
}

// MergeConfig 合并配置，用户配置了集群模式时清掉默认的单机节点
func MergeConfig(cfg *Config) (*Config, error) {
	def := DefaultConfig()
	if cfg != nil && cfg.Cluster != nil {
		def.Standalone = nil
	}
	return config.MergeConfig(def, cfg)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}

	modeCount := 0
	if c.Standalone != nil {
		modeCount++
	}
	if c.Cluster != nil {
		modeCount++
	}
	if modeCount != 1 {
		return ErrInvalidConfig
	}

	if c.Standalone != nil {
		if c.Standalone.Host == "" || c.Standalone.Port <= 0 {
			return fmt.Errorf("%w: standalone host/port required", ErrInvalidConfig)
		}
		if c.Standalone.DB < 0 || c.Standalone.DB > 15 {
			return fmt.Errorf("%w: db must be within [0, 15]", ErrInvalidConfig)
		}
	}
	if c.Cluster != nil && len(c.Cluster.Addrs) == 0 {
		return fmt.Errorf("%w: cluster addrs required", ErrInvalidConfig)
	}
	return nil
}

// IsCluster 是否为集群模式
func (c *Config) IsCluster() bool {
	return c.Cluster != nil
}
