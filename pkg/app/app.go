package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Server 长期运行的服务（HTTP、指标、定时任务）
type Server interface {
	// Run 阻塞运行直到 ctx 结束
	Run(ctx context.Context) error
}

// ServerFunc 把函数适配为 Server
type ServerFunc func(ctx context.Context) error

func (f ServerFunc) Run(ctx context.Context) error { return f(ctx) }

// Closer 需要在退出时释放的资源（DB、Redis、Kafka）
type Closer interface {
	Close() error
}

// CloserFunc 把无返回值的关闭函数适配为 Closer
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }

// App 进程生命周期：并发运行所有 Server，任意一个退出或收到信号后按注册逆序关闭资源
type App struct {
	logger      logger.Logger
	servers     []Server
	closers     []Closer
	stopTimeout time.Duration
}

func New(l logger.Logger) *App {
	return &App{
		logger:      l.Named("app"),
		stopTimeout: 10 * time.Second,
	}
}

func (a *App) AppendServer(s ...Server) { a.servers = append(a.servers, s...) }
func (a *App) AppendCloser(c ...Closer) { a.closers = append(a.closers, c...) }

// Run 阻塞直到收到 SIGINT/SIGTERM 或某个 Server 返回错误
func (a *App) Run(ctx context.Context) error {
	info := GetInfo()
	a.logger.Info("application starting",
		"name", info.AppName,
		"version", info.Version,
		"commit", info.GitCommit,
		"go_version", info.GoVersion,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range a.servers {
		g.Go(func() error { return s.Run(gctx) })
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	var runErr error
	select {
	case runErr = <-done:
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
		select {
		case runErr = <-done:
		case <-time.After(a.stopTimeout):
			a.logger.Warn("servers did not stop in time")
		}
	}
	if runErr != nil {
		a.logger.Error("server exited with error", "error", runErr)
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("failed to close component", "error", err)
		}
	}
	a.logger.Info("application exited")
	_ = a.logger.Sync()
	return runErr
}
