package rates

import (
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
	"github.com/lk2023060901/xdooria-gacha/pkg/cache/lru"
)

type cacheKey struct {
	level    int
	tunables *gameconfig.Tunables
}

// Cache 按等级缓存概率表
// 键里带上参数快照指针，热更新后旧快照的表不会再被命中
type Cache struct {
	holder *gameconfig.Holder
	tables *lru.LRU[cacheKey, *Table]
}

// NewCache 创建概率表缓存，参数热更新时清空
func NewCache(holder *gameconfig.Holder, size int) *Cache {
	c := &Cache{
		holder: holder,
		tables: lru.New[cacheKey, *Table](lru.Config{MaxSize: size}),
	}
	holder.OnChange(func(*gameconfig.Tunables) {
		c.tables.Clear()
	})
	return c
}

// Get 返回当前参数下指定等级的概率表
func (c *Cache) Get(level int) (*Table, error) {
	return c.For(c.holder.Load(), level)
}

// For 返回指定参数快照下的概率表，调用方在一次操作内固定使用同一快照
func (c *Cache) For(t *gameconfig.Tunables, level int) (*Table, error) {
	key := cacheKey{level: level, tunables: t}
	if table, ok := c.tables.Get(key); ok {
		return table, nil
	}
	table, err := Calculate(level, FromTunables(t))
	if err != nil {
		return nil, err
	}
	c.tables.Set(key, table)
	return table, nil
}

// Len 当前缓存条目数
func (c *Cache) Len() int {
	return c.tables.Len()
}

// Close 释放缓存
func (c *Cache) Close() error {
	return c.tables.Close()
}
