package lru

import (
	"container/list"
	"sync"
	"time"

	"github.com/lk2023060901/xdooria-gacha/pkg/util/conc"
)

// Config LRU 配置
type Config struct {
	// MaxSize 最大容量
	MaxSize int `mapstructure:"max_size"`
	// DefaultTTL 默认过期时间，<= 0 表示永不过期
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	// CleanupInterval 后台清理间隔，<= 0 时不启动清理协程，过期条目在访问时淘汰
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// Sliding 为 true 时 Get / GetOrCreate 命中会按条目自身的 TTL 续期，TTL 变为空闲时长
	Sliding bool `mapstructure:"sliding"`
}

// LRU 基于内存的 LRU 缓存
type LRU[K comparable, V any] struct {
	config  Config
	order   *list.List
	items   map[K]*list.Element
	mu      sync.Mutex
	cleaner *conc.Pool[struct{}]
	stopCh  chan struct{}
	stop    sync.Once

	onEvict func(key K, value V)
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	ttl       time.Duration
	expiresAt time.Time // 零值表示永不过期
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Option LRU 配置选项
type Option[K comparable, V any] func(*LRU[K, V])

// WithOnEvict 设置淘汰回调（容量淘汰、过期与 Delete 都会触发，Clear 不触发）
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.onEvict = fn
	}
}

// New 创建 LRU 缓存，MaxSize <= 0 时按 1 处理
func New[K comparable, V any](cfg Config, opts ...Option[K, V]) *LRU[K, V] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1
	}
	c := &LRU[K, V]{
		config: cfg,
		order:  list.New(),
		items:  make(map[K]*list.Element),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if cfg.CleanupInterval > 0 {
		c.cleaner = conc.NewPool[struct{}](1)
		c.cleaner.Submit(func() (struct{}, error) {
			ticker := time.NewTicker(cfg.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					c.removeExpired()
				case <-c.stopCh:
					return struct{}{}, nil
				}
			}
		})
	}
	return c
}

func (c *LRU[K, V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for e := c.order.Back(); e != nil; {
		prev := e.Prev()
		if e.Value.(*entry[K, V]).expired(now) {
			c.removeElement(e)
		}
		e = prev
	}
}

func (c *LRU[K, V]) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

// Get 获取值
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		if now := time.Now(); !ent.expired(now) {
			c.touch(elem, now)
			return ent.value, true
		}
		c.removeElement(elem)
	}

	var zero V
	return zero, false
}

// Set 设置值（使用默认 TTL）
func (c *LRU[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL 设置值（自定义 TTL）
func (c *LRU[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.insert(key, value, ttl)
}

// GetOrCreate 原子获取或创建，create 在锁内执行
func (c *LRU[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		if now := time.Now(); !ent.expired(now) {
			c.touch(elem, now)
			return ent.value
		}
		c.removeElement(elem)
	}

	value := create()
	c.insert(key, value, c.config.DefaultTTL)
	return value
}

func (c *LRU[K, V]) touch(elem *list.Element, now time.Time) {
	c.order.MoveToFront(elem)
	if ent := elem.Value.(*entry[K, V]); c.config.Sliding && ent.ttl > 0 {
		ent.expiresAt = now.Add(ent.ttl)
	}
}

func (c *LRU[K, V]) insert(key K, value V, ttl time.Duration) {
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.ttl = ttl
		ent.expiresAt = c.expiry(ttl)
		return
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{
		key:       key,
		value:     value,
		ttl:       ttl,
		expiresAt: c.expiry(ttl),
	})

	for c.order.Len() > c.config.MaxSize {
		c.removeElement(c.order.Back())
	}
}

// Delete 删除
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Len 当前条目数（包含尚未清理的过期条目）
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear 清空缓存
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[K]*list.Element)
}

// Close 停止后台清理，可重复调用
func (c *LRU[K, V]) Close() error {
	c.stop.Do(func() {
		close(c.stopCh)
		if c.cleaner != nil {
			c.cleaner.Release()
		}
	})
	return nil
}

func (c *LRU[K, V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	ent := elem.Value.(*entry[K, V])
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
