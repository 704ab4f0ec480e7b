package gameconfig

import (
	"sync"
	"sync/atomic"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// Holder 持有当前生效的参数快照，支持热更新
// 读取方每次操作开始时 Load 一次，整个操作使用同一份快照
type Holder struct {
	current   atomic.Pointer[Tunables]
	mu        sync.Mutex
	listeners []func(*Tunables)
	logger    logger.Logger
}

// NewHolder 校验初始参数并创建 Holder，校验失败即启动失败
func NewHolder(t *Tunables, l logger.Logger) (*Holder, error) {
	resolved, err := Resolve(t)
	if err != nil {
		return nil, err
	}
	h := &Holder{logger: l.Named("gameconfig")}
	h.current.Store(resolved)
	return h, nil
}

// Load 返回当前参数快照，调用方不得修改
func (h *Holder) Load() *Tunables {
	return h.current.Load()
}

// OnChange 注册热更新回调
func (h *Holder) OnChange(fn func(*Tunables)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Update 校验并替换参数，校验失败时保留旧参数
func (h *Holder) Update(t *Tunables) error {
	resolved, err := Resolve(t)
	if err != nil {
		h.logger.Error("rejected gacha config reload, keeping previous tunables", "error", err)
		return err
	}

	h.mu.Lock()
	h.current.Store(resolved)
	listeners := append([]func(*Tunables){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(resolved)
	}
	h.logger.Info("gacha tunables reloaded",
		"tiers", len(resolved.TierUnlockLevels),
		"decay_factor", resolved.DecayFactor,
		"pity_threshold", resolved.Summon.PityThreshold,
	)
	return nil
}

// Watch 监听配置文件变化，以默认参数为底重新解码 key 段后热更新
func (h *Holder) Watch(mgr config.Manager, key string) {
	mgr.Watch(func(path string) {
		t, err := Decode(mgr, key)
		if err != nil {
			h.logger.Error("failed to decode gacha config", "path", path, "error", err)
			return
		}
		_ = h.Update(t)
	})
}
