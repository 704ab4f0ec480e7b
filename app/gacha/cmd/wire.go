//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/handler"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/txlog"
	"github.com/lk2023060901/xdooria-gacha/pkg/app"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

func InitApp(cfg *Config, mgr config.Manager, l logger.Logger) (*app.App, func(), error) {
	panic(wire.Build(
		// 1. 抽卡参数
		provideHolder,

		// 2. 可观测性
		providePrometheus,
		provideMetrics,
		provideHTTPMetrics,
		provideTracer,
		provideReporter,

		// 3. 存储与外部依赖
		provideBackend,
		provideStore,
		provideRedis,
		provideKafka,
		provideLocker,

		// 4. 事件
		provideEventBus,
		providePublisher,

		// 5. 领域组件
		provideIDGenerator,
		txlog.New,
		provideRandomSource,
		provideRateCache,
		provideLimiter,
		provideRoster,
		providePlayerConfig,

		// 6. 服务层
		service.NewSummonService,
		service.NewFusionService,
		service.NewPlayerService,

		// 7. 接口层
		handler.NewGachaHandler,
		provideWebServer,

		// 8. 组装
		provideApp,
	))
}
