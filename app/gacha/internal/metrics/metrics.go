package metrics

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
)

// Config 指标配置
type Config struct {
	// Namespace 指标命名空间
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace: "gacha",
	}
}

// GachaMetrics 抽卡服务指标
type GachaMetrics struct {
	config *Config

	// 业务指标
	SummonTotal *prometheus.CounterVec // 抽取次数（按是否保底）
	FusionTotal *prometheus.CounterVec // 融合次数（按结果）

	// 操作指标
	OperationTotal    *prometheus.CounterVec   // 操作总数（按操作、结果类别）
	OperationDuration *prometheus.HistogramVec // 操作耗时
	LockTimeoutTotal  *prometheus.CounterVec   // 锁等待超时/序列化冲突（按操作）

	// 数据库指标
	DBQueryTotal    *prometheus.CounterVec   // 数据库查询总数（按操作、结果）
	DBQueryDuration *prometheus.HistogramVec // 数据库查询延迟

	// 事件指标
	EventsPublished *prometheus.CounterVec // 事件投递（按订阅方、结果）

	// 缓存指标
	CacheHitTotal  *prometheus.CounterVec // 缓存命中（按缓存类型）
	CacheMissTotal *prometheus.CounterVec // 缓存未命中（按缓存类型）
}

// New 创建抽卡服务指标
func New(cfg *Config) (*GachaMetrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge metrics config: %w", err)
	}

	ns := newCfg.Namespace
	return &GachaMetrics{
		config: newCfg,

		SummonTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "summons_total",
				Help:      "抽取次数",
			},
			[]string{"pity"}, // pity: true/false
		),
		FusionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "fusions_total",
				Help:      "融合次数",
			},
			[]string{"outcome"}, // outcome: success/failed/redeemed
		),

		OperationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "operations_total",
				Help:      "业务操作总数",
			},
			[]string{"op", "result"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "operation_duration_seconds",
				Help:      "业务操作耗时（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
			},
			[]string{"op"},
		),
		LockTimeoutTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "lock_timeouts_total",
				Help:      "锁等待超时与序列化冲突次数",
			},
			[]string{"op"},
		),

		DBQueryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "db_queries_total",
				Help:      "数据库查询总数",
			},
			[]string{"operation", "result"}, // operation: select/insert/update/delete/lock
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "db_query_duration_seconds",
				Help:      "数据库查询延迟（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "events_published_total",
				Help:      "事件投递次数",
			},
			[]string{"sink", "result"},
		),

		CacheHitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_hits_total",
				Help:      "缓存命中总数",
			},
			[]string{"cache_type"},
		),
		CacheMissTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_misses_total",
				Help:      "缓存未命中总数",
			},
			[]string{"cache_type"},
		),
	}, nil
}

// Register 注册指标到 Prometheus Registry
func (m *GachaMetrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.SummonTotal,
		m.FusionTotal,
		m.OperationTotal,
		m.OperationDuration,
		m.LockTimeoutTotal,
		m.DBQueryTotal,
		m.DBQueryDuration,
		m.EventsPublished,
		m.CacheHitTotal,
		m.CacheMissTotal,
	}

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// RecordSummon 记录一次抽取
func (m *GachaMetrics) RecordSummon(wasPity bool) {
	m.SummonTotal.WithLabelValues(fmt.Sprint(wasPity)).Inc()
}

// RecordFusion 记录一次融合
func (m *GachaMetrics) RecordFusion(outcome string) {
	m.FusionTotal.WithLabelValues(outcome).Inc()
}

// RecordOperation 记录一次业务操作的结果与耗时
func (m *GachaMetrics) RecordOperation(op string, err error, duration float64) {
	result := Classify(err)
	m.OperationTotal.WithLabelValues(op, result).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(duration)
	if result == "transient" {
		m.LockTimeoutTotal.WithLabelValues(op).Inc()
	}
}

// RecordDBQuery 记录数据库查询
func (m *GachaMetrics) RecordDBQuery(operation string, success bool, duration float64) {
	result := "success"
	if !success {
		result = "failed"
	}
	m.DBQueryTotal.WithLabelValues(operation, result).Inc()
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// RecordEvent 记录事件投递
func (m *GachaMetrics) RecordEvent(sink string, success bool) {
	result := "success"
	if !success {
		result = "failed"
	}
	m.EventsPublished.WithLabelValues(sink, result).Inc()
}

// RecordCacheHit 记录缓存命中
func (m *GachaMetrics) RecordCacheHit(cacheType string) {
	m.CacheHitTotal.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *GachaMetrics) RecordCacheMiss(cacheType string) {
	m.CacheMissTotal.WithLabelValues(cacheType).Inc()
}

// Classify 把错误归为指标标签
func Classify(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errcode.ErrValidation):
		return "validation"
	case errors.Is(err, errcode.ErrInsufficientResources),
		errors.Is(err, errcode.ErrInsufficientMaidens),
		errors.Is(err, errcode.ErrInsufficientShards):
		return "insufficient"
	case errcode.IsTransient(err):
		return "transient"
	case errors.Is(err, errcode.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, errcode.ErrPlayerNotFound), errors.Is(err, errcode.ErrMaidenNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// GetConfig 获取配置
func (m *GachaMetrics) GetConfig() *Config {
	return m.config
}
