package main

import (
	"context"
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/event"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/lock"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/pkg/app"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/redis"
	"github.com/lk2023060901/xdooria-gacha/pkg/idgen"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/mq/kafka"
	"github.com/lk2023060901/xdooria-gacha/pkg/otel"
	"github.com/lk2023060901/xdooria-gacha/pkg/prometheus"
	"github.com/lk2023060901/xdooria-gacha/pkg/sentry"
	"github.com/lk2023060901/xdooria-gacha/pkg/web"
)

// 存储后端
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// StoreConfig 存储后端选择
type StoreConfig struct {
	// Driver postgres | memory
	Driver string `mapstructure:"driver"`
	// Migrate 启动时执行建表语句
	Migrate bool `mapstructure:"migrate"`
	// LockTimeout 内存存储的行锁等待上限
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// RosterConfig 图鉴加载配置
type RosterConfig struct {
	// DataDir 数据表目录，存在 maidens.json 时启动时写入图鉴
	DataDir string `mapstructure:"data_dir"`
	// RefreshCron 定时刷新图鉴，为空时只在启动时加载
	RefreshCron string `mapstructure:"refresh_cron"`
}

// EventsConfig 结果事件投递配置
type EventsConfig struct {
	Bus event.Config `mapstructure:"bus"`
	// KafkaTopic 为空时使用默认 topic，kafka 段未配置时不投递
	KafkaTopic string `mapstructure:"kafka_topic"`
	// Encoding 事件消息编码 json | msgpack
	Encoding string `mapstructure:"encoding"`
	// Listeners 启用 Redis 上的任务计数与新手引导监听
	Listeners bool `mapstructure:"listeners"`
}

// SamplerConfig 随机源配置
type SamplerConfig struct {
	// Seed 非零时使用固定种子，用于复现问题
	Seed uint64 `mapstructure:"seed"`
}

// Config 定义 Gacha 服务的完整配置结构
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// Web Server 配置
	Web web.Config `mapstructure:"web"`

	// 存储配置
	Store    StoreConfig     `mapstructure:"store"`
	Database postgres.Config `mapstructure:"database"`

	// Redis 配置，未配置时分布式锁与监听器不启用
	Redis *redis.Config `mapstructure:"redis"`

	// Kafka 配置，未配置时不向外投递事件
	Kafka *kafka.Config `mapstructure:"kafka"`

	// 可观测性
	Prometheus prometheus.Config `mapstructure:"prometheus"`
	Metrics    metrics.Config    `mapstructure:"metrics"`
	Tracing    otel.Config       `mapstructure:"tracing"`
	Sentry     sentry.Config     `mapstructure:"sentry"`

	// 抽卡参数，支持热更新
	// 由 provideHolder 在默认参数之上单独解码 gacha 段，为 nil 时使用默认参数
	Gacha *gameconfig.Tunables `mapstructure:"-"`

	Player  service.PlayerConfig  `mapstructure:"player"`
	Limiter service.LimiterConfig `mapstructure:"limiter"`
	Lock    lock.Config           `mapstructure:"lock"`
	Events  EventsConfig          `mapstructure:"events"`
	Roster  RosterConfig          `mapstructure:"roster"`
	Sampler SamplerConfig         `mapstructure:"sampler"`
	IDGen   idgen.Config          `mapstructure:"idgen"`
}

func main() {
	var cfg Config

	// 1. 加载配置
	mgr, err := app.LoadConfig(&cfg)
	if err != nil {
		panic(err)
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}

	// 3. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, mgr, l)
	if err != nil {
		l.Error("failed to init app", "error", err)
		return
	}
	defer cleanup()

	// 4. 运行
	if err := application.Run(context.Background()); err != nil {
		l.Error("app exited with error", "error", err)
	}
}
