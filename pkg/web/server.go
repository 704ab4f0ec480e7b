package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/sentry"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/metrics"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/middleware"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/validator"
)

// Server Web 服务核心结构
type Server struct {
	engine   *gin.Engine
	config   *Config
	logger   logger.Logger
	reporter sentry.Reporter
	limiter  *middleware.RateLimiter
	started  atomic.Bool
}

// Option 服务选项
type Option func(*options)

type options struct {
	reporter sentry.Reporter
	metrics  *metrics.HTTPMetrics
}

// WithReporter 设置 panic / 5xx 上报器
func WithReporter(r sentry.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithMetrics 挂载 HTTP 指标中间件
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// NewServer 创建 Web 服务并挂载基础中间件
func NewServer(cfg *Config, l logger.Logger, opts ...Option) (*Server, error) {
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

	o := &options{reporter: sentry.NewNoop()}
	for _, opt := range opts {
		opt(o)
	}

	gin.SetMode(newCfg.Mode)
	validator.Init()

	engine := gin.New()
	engine.Use(middleware.Recovery(l, o.reporter))
	engine.Use(middleware.Tracing(newCfg.ServiceName))
	engine.Use(middleware.Logger(l.Named("web.access")))
	if o.metrics != nil {
		engine.Use(middleware.Metrics(o.metrics))
	}
	if len(newCfg.CORS.AllowOrigins) > 0 {
		engine.Use(middleware.CORS(newCfg.CORS.AllowOrigins, newCfg.CORS.MaxAge))
	}

	s := &Server{
		engine:   engine,
		config:   newCfg,
		logger:   l.Named("web.server"),
		reporter: o.reporter,
	}

	if rl := newCfg.RateLimit; rl.RequestsPerSecond > 0 {
		s.limiter = middleware.NewRateLimiter(l.Named("web.ratelimit"), middleware.RateLimitConfig{
			RequestsPerSecond: rl.RequestsPerSecond,
			Burst:             rl.Burst,
			SkipPaths:         rl.SkipPaths,
			MaxLimiters:       rl.MaxLimiters,
			LimiterTTL:        rl.LimiterTTL,
		})
		engine.Use(middleware.RateLimit(s.limiter))
	}

	return s, nil
}

// Router 返回 Gin 引擎，用于注册路由
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Reporter 返回错误上报器，handler 对 5xx 调用
func (s *Server) Reporter() sentry.Reporter {
	return s.reporter
}

// Handler 返回 http.Handler 接口
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 启动服务，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	if s.started.Swap(true) {
		return ErrServerAlreadyStarted
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	srv := &http.Server{
		Addr:           addr,
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.config.EnableTLS {
			s.logger.Info("starting https server", "addr", addr)
			err = srv.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
		} else {
			s.logger.Info("starting http server", "addr", addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server startup failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if s.limiter != nil {
		_ = s.limiter.Close()
	}

	s.logger.Info("server exited")
	return nil
}
