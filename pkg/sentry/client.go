package sentry

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/getsentry/sentry-go"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
)

// Reporter 错误上报接口，HTTP 层对 5xx 与 panic 调用
type Reporter interface {
	CaptureError(ctx context.Context, err error, tags map[string]string)
	CapturePanic(ctx context.Context, recovered any)
	Close() error
}

// Client Sentry 客户端
type Client struct {
	hub    *sentry.Hub
	config *Config
	closed atomic.Bool

	captured atomic.Uint64
}

// Option 客户端选项
type Option func(*sentry.ClientOptions)

// WithBeforeSend 在事件发送前回调，返回 nil 丢弃事件
func WithBeforeSend(fn func(*sentry.Event, *sentry.EventHint) *sentry.Event) Option {
	return func(o *sentry.ClientOptions) {
		o.BeforeSend = fn
	}
}

// New 根据配置创建上报器，未启用时返回 Noop
func New(cfg *Config, opts ...Option) (Reporter, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}
	if !newCfg.Enabled {
		return NewNoop(), nil
	}
	return NewClient(newCfg, opts...)
}

// NewClient 创建 Sentry 客户端，DSN 为空时 SDK 不发送事件但仍执行 BeforeSend
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	clientOpts := cfg.toClientOptions()
	for _, opt := range opts {
		opt(&clientOpts)
	}

	client, err := sentry.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for key, value := range cfg.Tags {
			scope.SetTag(key, value)
		}
	})

	return &Client{hub: hub, config: cfg}, nil
}

// CaptureError 上报错误，tags 只作用于本次事件
func (c *Client) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if c.closed.Load() || err == nil {
		return
	}

	hub := c.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
	})
	if id := hub.CaptureException(err); id != nil {
		c.captured.Add(1)
	}
}

// CapturePanic 上报 panic，不重新抛出
func (c *Client) CapturePanic(ctx context.Context, recovered any) {
	if c.closed.Load() {
		return
	}
	if id := c.hub.Clone().RecoverWithContext(ctx, recovered); id != nil {
		c.captured.Add(1)
	}
}

// Captured 已上报事件数
func (c *Client) Captured() uint64 {
	return c.captured.Load()
}

// Close 等待事件上报完成后关闭
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}
	c.hub.Flush(c.config.ShutdownTimeout)
	return nil
}

type noopReporter struct{}

// NewNoop 不上报任何事件
func NewNoop() Reporter {
	return noopReporter{}
}

func (noopReporter) CaptureError(context.Context, error, map[string]string) {}
func (noopReporter) CapturePanic(context.Context, any)                      {}
func (noopReporter) Close() error                                           { return nil }
