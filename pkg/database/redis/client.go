package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client Redis 客户端（单机与集群共用 UniversalClient）
type Client struct {
	rdb redis.UniversalClient
	cfg *Config
}

// NewClient 创建 Redis 客户端
func NewClient(cfg *Config) (*Client, error) {
	newCfg, err := MergeConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: newCfg}
	if newCfg.IsCluster() {
		c.rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           newCfg.Cluster.Addrs,
			Password:        newCfg.Cluster.Password,
			MaxIdleConns:    newCfg.Pool.MaxIdleConns,
			MaxActiveConns:  newCfg.Pool.MaxOpenConns,
			ConnMaxLifetime: newCfg.Pool.ConnMaxLifetime,
			ConnMaxIdleTime: newCfg.Pool.ConnMaxIdleTime,
			DialTimeout:     newCfg.Pool.DialTimeout,
			ReadTimeout:     newCfg.Pool.ReadTimeout,
			WriteTimeout:    newCfg.Pool.WriteTimeout,
			PoolTimeout:     newCfg.Pool.PoolTimeout,
		})
		return c, nil
	}

	c.rdb = redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%d", newCfg.Standalone.Host, newCfg.Standalone.Port),
		Password:        newCfg.Standalone.Password,
		DB:              newCfg.Standalone.DB,
		MaxIdleConns:    newCfg.Pool.MaxIdleConns,
		MaxActiveConns:  newCfg.Pool.MaxOpenConns,
		ConnMaxLifetime: newCfg.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: newCfg.Pool.ConnMaxIdleTime,
		DialTimeout:     newCfg.Pool.DialTimeout,
		ReadTimeout:     newCfg.Pool.ReadTimeout,
		WriteTimeout:    newCfg.Pool.WriteTimeout,
		PoolTimeout:     newCfg.Pool.PoolTimeout,
	})
	return c, nil
}

// Key 拼接统一前缀
func (c *Client) Key(parts ...string) string {
	key := c.cfg.KeyPrefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// Ping 测试连接
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get 获取字符串值，键不存在返回 ErrNil
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNil
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// SetNX 键不存在时设置
func (c *Client) SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("failed to setnx key %s: %w", key, err)
	}
	return ok, nil
}

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete keys: %w", err)
	}
	return n, nil
}

// HGetAll 获取哈希全部字段
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to hgetall key %s: %w", key, err)
	}
	return m, nil
}

// HIncrByWithTTL 在一个 pipeline 中累加哈希字段并刷新过期时间
func (c *Client) HIncrByWithTTL(ctx context.Context, key string, incr map[string]int64, ttl time.Duration) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for field, n := range incr {
			p.HIncrBy(ctx, key, field, n)
		}
		if ttl > 0 {
			p.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to hincrby key %s: %w", key, err)
	}
	return nil
}
