package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/dao"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/event"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/handler"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/listener"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/lock"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/rates"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/sampler"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/pkg/app"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/redis"
	"github.com/lk2023060901/xdooria-gacha/pkg/datatable"
	"github.com/lk2023060901/xdooria-gacha/pkg/idgen"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/mq/kafka"
	"github.com/lk2023060901/xdooria-gacha/pkg/otel"
	"github.com/lk2023060901/xdooria-gacha/pkg/prometheus"
	"github.com/lk2023060901/xdooria-gacha/pkg/sentry"
	"github.com/lk2023060901/xdooria-gacha/pkg/web"
	webmetrics "github.com/lk2023060901/xdooria-gacha/pkg/web/metrics"
)

// rateCacheSize 概率表缓存条目上限，覆盖全部常用等级
const rateCacheSize = 128

// provideHolder 创建抽卡参数持有者并监听配置文件热更新
func provideHolder(cfg *Config, mgr config.Manager, l logger.Logger) (*gameconfig.Holder, error) {
	t := cfg.Gacha
	if mgr != nil {
		decoded, err := gameconfig.Decode(mgr, "gacha")
		if err != nil {
			return nil, err
		}
		t = decoded
	}
	h, err := gameconfig.NewHolder(t, l)
	if err != nil {
		return nil, err
	}
	if mgr != nil {
		h.Watch(mgr, "gacha")
	}
	return h, nil
}

// providePrometheus 创建 Prometheus 客户端
func providePrometheus(cfg *Config, l logger.Logger) (*prometheus.Client, func(), error) {
	c, err := prometheus.New(&cfg.Prometheus, l)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

// provideMetrics 创建业务指标并注册
func provideMetrics(cfg *Config, prom *prometheus.Client) (*metrics.GachaMetrics, error) {
	m, err := metrics.New(&cfg.Metrics)
	if err != nil {
		return nil, err
	}
	if err := m.Register(prom.Registry()); err != nil {
		return nil, fmt.Errorf("failed to register gacha metrics: %w", err)
	}
	return m, nil
}

// provideHTTPMetrics 创建 HTTP 指标并注册
func provideHTTPMetrics(prom *prometheus.Client) (*webmetrics.HTTPMetrics, error) {
	m := webmetrics.New(prom.Namespace())
	if err := m.Register(prom.Registry()); err != nil {
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}
	return m, nil
}

// provideTracer 初始化链路追踪
func provideTracer(cfg *Config) (*otel.TracerProvider, func(), error) {
	tp, err := otel.New(&cfg.Tracing)
	if err != nil {
		return nil, nil, err
	}
	return tp, func() { _ = tp.Close() }, nil
}

// provideReporter 创建错误上报器
func provideReporter(cfg *Config) (sentry.Reporter, func(), error) {
	r, err := sentry.New(&cfg.Sentry)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { _ = r.Close() }, nil
}

// provideIDGenerator 创建流水 ID 生成器
func provideIDGenerator(cfg *Config) (idgen.Generator, error) {
	return idgen.NewSonyflake(cfg.IDGen)
}

// provideRandomSource 创建抽取使用的随机源
func provideRandomSource(cfg *Config) sampler.RandomSource {
	if cfg.Sampler.Seed != 0 {
		return sampler.NewLockedSource(sampler.NewSeeded(cfg.Sampler.Seed))
	}
	return sampler.NewLockedSource(sampler.NewRuntime())
}

// provideBackend 按配置选择存储后端
func provideBackend(cfg *Config, l logger.Logger, m *metrics.GachaMetrics) (repository.Backend, func(), error) {
	switch cfg.Store.Driver {
	case StoreDriverMemory:
		var opts []repository.MemoryOption
		if cfg.Store.LockTimeout > 0 {
			opts = append(opts, repository.WithLockTimeout(cfg.Store.LockTimeout))
		}
		l.Warn("using in-memory store, state is lost on restart")
		return repository.NewMemoryStore(opts...), func() {}, nil

	case StoreDriverPostgres, "":
		db, err := postgres.New(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Store.Migrate {
			if err := dao.Migrate(context.Background(), db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return dao.NewStore(db, l, m), func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func provideStore(b repository.Backend) repository.Store { return b }

// provideRedis 创建 Redis 客户端，未配置时返回 nil
func provideRedis(cfg *Config) (*redis.Client, func(), error) {
	if cfg.Redis == nil {
		return nil, func() {}, nil
	}
	c, err := redis.NewClient(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

// provideKafka 创建 Kafka 客户端，未配置时返回 nil
func provideKafka(cfg *Config, l logger.Logger) (*kafka.Client, func(), error) {
	if cfg.Kafka == nil {
		return nil, func() {}, nil
	}
	c, err := kafka.New(cfg.Kafka, kafka.WithLogger(l))
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

// provideLocker 玩家级分布式锁
func provideLocker(cfg *Config, rdb *redis.Client, l logger.Logger) lock.Locker {
	return lock.New(rdb, &cfg.Lock, l)
}

// provideEventBus 创建事件总线并挂载订阅方
func provideEventBus(
	cfg *Config,
	rdb *redis.Client,
	kc *kafka.Client,
	l logger.Logger,
	m *metrics.GachaMetrics,
) (*event.Bus, func(), error) {
	bus := event.NewBus(&cfg.Events.Bus, l, m)
	if kc != nil {
		sink, err := event.NewKafkaSink(kc, cfg.Events.KafkaTopic, cfg.Events.Encoding)
		if err != nil {
			_ = bus.Close()
			return nil, nil, err
		}
		bus.Subscribe(sink)
	}
	if rdb != nil && cfg.Events.Listeners {
		bus.Subscribe(
			listener.NewQuestTracker(rdb, l),
			listener.NewTutorialTracker(rdb, l),
		)
	}
	return bus, func() { _ = bus.Close() }, nil
}

func providePublisher(bus *event.Bus) event.Publisher { return bus }

// provideRateCache 概率表缓存
func provideRateCache(h *gameconfig.Holder) (*rates.Cache, func()) {
	c := rates.NewCache(h, rateCacheSize)
	return c, func() { _ = c.Close() }
}

// provideLimiter 玩家级限流
func provideLimiter(cfg *Config) (*service.PlayerLimiter, func()) {
	pl := service.NewPlayerLimiter(&cfg.Limiter)
	return pl, func() { _ = pl.Close() }
}

func providePlayerConfig(cfg *Config) *service.PlayerConfig { return &cfg.Player }

// provideRoster 写入种子图鉴，首次加载并启动定时刷新
func provideRoster(
	cfg *Config,
	l logger.Logger,
	backend repository.Backend,
	holder *gameconfig.Holder,
) (*service.RosterService, func(), error) {
	ctx := context.Background()
	if cfg.Roster.DataDir != "" {
		loader, err := datatable.NewLoader(cfg.Roster.DataDir, l)
		if err != nil {
			return nil, nil, err
		}
		defs, err := datatable.Load[model.MaidenDefinition](loader, "maidens")
		if err != nil {
			return nil, nil, err
		}
		if len(defs) > 0 {
			if err := backend.SeedRoster(ctx, defs); err != nil {
				return nil, nil, fmt.Errorf("failed to seed roster: %w", err)
			}
		}
	}

	rs := service.NewRosterService(l, backend, holder)
	if _, err := rs.Refresh(ctx); err != nil {
		return nil, nil, err
	}
	if err := rs.Start(cfg.Roster.RefreshCron); err != nil {
		return nil, nil, err
	}
	return rs, rs.Stop, nil
}

// provideWebServer 创建 HTTP 服务并注册路由
func provideWebServer(
	cfg *Config,
	l logger.Logger,
	reporter sentry.Reporter,
	httpMetrics *webmetrics.HTTPMetrics,
	prom *prometheus.Client,
	h *handler.GachaHandler,
) (*web.Server, error) {
	s, err := web.NewServer(&cfg.Web, l, web.WithReporter(reporter), web.WithMetrics(httpMetrics))
	if err != nil {
		return nil, err
	}
	h.Register(s.Router())
	s.Router().GET("/health", handler.Health)
	if !cfg.Prometheus.HTTPServer.Enabled {
		s.Router().GET("/metrics", gin.WrapH(prom.Handler()))
	}
	return s, nil
}

// provideApp 组装进程生命周期
func provideApp(l logger.Logger, s *web.Server, _ *otel.TracerProvider) *app.App {
	a := app.New(l)
	a.AppendServer(s)
	return a
}
