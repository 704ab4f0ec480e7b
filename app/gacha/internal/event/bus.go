package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/util/conc"
)

// Subscriber 事件订阅方，不得修改核心状态，返回的错误只记录日志
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, evt Event) error
}

// SubscriberFunc 函数形式的订阅方
type SubscriberFunc struct {
	SubscriberName string
	Fn             func(ctx context.Context, evt Event) error
}

func (f SubscriberFunc) Name() string { return f.SubscriberName }

func (f SubscriberFunc) Handle(ctx context.Context, evt Event) error { return f.Fn(ctx, evt) }

// Publisher 结果事件发布接口，服务层依赖它
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Config 事件总线配置
type Config struct {
	PoolSize       int           `mapstructure:"pool_size" json:"pool_size" yaml:"pool_size"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout" json:"handler_timeout" yaml:"handler_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		PoolSize:       64,
		HandlerTimeout: 5 * time.Second,
	}
}

// Bus 基于协程池的异步事件总线
type Bus struct {
	cfg     *Config
	logger  logger.Logger
	metrics *metrics.GachaMetrics
	pool    *conc.Pool[struct{}]

	mu          sync.RWMutex
	subscribers []Subscriber
	wg          sync.WaitGroup
	closed      bool
}

var _ Publisher = (*Bus)(nil)

// NewBus 创建事件总线
func NewBus(cfg *Config, l logger.Logger, m *metrics.GachaMetrics) *Bus {
	if merged, err := config.MergeConfig(DefaultConfig(), cfg); err == nil {
		cfg = merged
	}
	return &Bus{
		cfg:     cfg,
		logger:  l.Named("event.bus"),
		metrics: m,
		pool:    conc.NewPool[struct{}](cfg.PoolSize),
	}
}

// Subscribe 注册订阅方
func (b *Bus) Subscribe(subs ...Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, subs...)
}

// Publish 异步分发事件，不阻塞调用方
// 请求结束不影响已提交事件的投递，因此分发使用脱离取消的 ctx
func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Warn("event bus closed, dropping event", "event_id", evt.ID, "type", evt.Type)
		return
	}

	base := context.WithoutCancel(ctx)
	for _, sub := range b.subscribers {
		var started atomic.Bool
		b.wg.Add(1)
		future := b.pool.Submit(func() (struct{}, error) {
			started.Store(true)
			defer b.wg.Done()
			return struct{}{}, b.dispatch(base, sub, evt)
		})
		// 提交失败时 future 在 Submit 返回前已完成且任务未执行
		select {
		case <-future.Done():
			if !started.Load() {
				b.wg.Done()
				b.logger.Error("failed to submit event", "subscriber", sub.Name(), "event_id", evt.ID, "error", future.Err())
			}
		default:
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, sub Subscriber, evt Event) error {
	if b.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.HandlerTimeout)
		defer cancel()
	}

	err := sub.Handle(ctx, evt)
	if b.metrics != nil {
		b.metrics.RecordEvent(sub.Name(), err == nil)
	}
	if err != nil {
		b.logger.Error("event subscriber failed",
			"subscriber", sub.Name(),
			"event_id", evt.ID,
			"type", evt.Type,
			"player_id", evt.PlayerID,
			"error", err,
		)
	}
	return err
}

// Close 等待在途事件处理完成后释放协程池
func (b *Bus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	b.pool.Release()
	return nil
}
