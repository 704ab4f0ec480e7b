package prometheus

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/util/conc"
)

// Client Prometheus 客户端，持有独立的 Registry
type Client struct {
	config   *Config
	registry *prometheus.Registry
	logger   logger.Logger

	httpServer *http.Server
	closed     atomic.Bool
}

// New 创建 Prometheus 客户端
func New(cfg *Config, l logger.Logger) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.NewNoop()
	}

	c := &Client{
		config:   newCfg,
		registry: prometheus.NewRegistry(),
		logger:   l.Named("prometheus"),
	}

	if newCfg.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if newCfg.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	if newCfg.HTTPServer.Enabled {
		c.startHTTPServer()
	}

	return c, nil
}

// Namespace 指标命名空间
func (c *Client) Namespace() string {
	return c.config.Namespace
}

// Registry 获取底层 Registry
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 HTTP Handler（用于集成到现有 HTTP 服务器）
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (c *Client) startHTTPServer() {
	mux := http.NewServeMux()
	mux.Handle(c.config.HTTPServer.Path, c.Handler())

	c.httpServer = &http.Server{
		Addr:         c.config.HTTPServer.Addr,
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}

	conc.Go(func() (struct{}, error) {
		if err := c.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics http server stopped", "addr", c.config.HTTPServer.Addr, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	if c.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.HTTPServer.Timeout)
	defer cancel()
	return c.httpServer.Shutdown(ctx)
}
