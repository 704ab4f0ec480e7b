package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Manager 配置管理器
type Manager interface {
	// LoadFile 加载配置文件（YAML、JSON、TOML）
	LoadFile(path string) error
	// BindEnv 绑定环境变量，prefix=GACHA 时 GACHA_DATABASE_POOL_MAX_CONNS 映射到 database.pool.max_conns
	BindEnv(prefix string)
	Unmarshal(v any) error
	// UnmarshalKey 解析某个子树，例如 "gacha"
	UnmarshalKey(key string, v any) error
	IsSet(key string) bool
	// Watch 监听配置文件变更，回调在 fsnotify 的 goroutine 中执行
	Watch(callback func(path string))
}

type manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	loaded    bool
	watching  bool
	callbacks []func(path string)
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) Manager {
	m := &manager{v: viper.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	m.loaded = true
	return nil
}

func (m *manager) BindEnv(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prefix != "" {
		m.v.SetEnvPrefix(prefix)
	}
	m.v.AutomaticEnv()
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (m *manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v, decodeHooks()); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

func (m *manager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.loaded {
		return ErrNotLoaded
	}
	if err := m.v.UnmarshalKey(key, v, decodeHooks()); err != nil {
		return fmt.Errorf("failed to unmarshal key %s: %w", key, err)
	}
	return nil
}

func (m *manager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}

func (m *manager) Watch(callback func(path string)) {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, callback)
	start := !m.watching
	m.watching = true
	m.mu.Unlock()

	if !start {
		return
	}

	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		m.mu.Lock()
		m.loaded = true
		callbacks := append([]func(string){}, m.callbacks...)
		m.mu.Unlock()

		for _, cb := range callbacks {
			cb(e.Name)
		}
	})
	m.v.WatchConfig()
}

// decodeHooks 支持 "30s" 形式的时长以及逗号分隔的切片
func decodeHooks() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}
