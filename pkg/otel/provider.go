package otel

import (
	"context"
	"sync/atomic"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider 追踪提供者
type TracerProvider struct {
	config   *Config
	provider *sdktrace.TracerProvider
	closed   atomic.Bool
}

// New 创建追踪提供者，未启用或 noop 导出器时只持有配置，Tracer 退回全局 noop 实现
func New(cfg *Config) (*TracerProvider, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}

	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	if !newCfg.Enabled {
		return &TracerProvider{config: newCfg}, nil
	}

	exporter, err := createExporter(context.Background(), newCfg)
	if err != nil {
		return nil, err
	}
	if exporter == nil {
		return &TracerProvider{config: newCfg}, nil
	}

	return newWithExporter(newCfg, sdktrace.WithBatcher(exporter,
		sdktrace.WithBatchTimeout(newCfg.BatchExport.BatchTimeout),
		sdktrace.WithExportTimeout(newCfg.BatchExport.ExportTimeout),
		sdktrace.WithMaxExportBatchSize(newCfg.BatchExport.BatchSize),
		sdktrace.WithMaxQueueSize(newCfg.BatchExport.MaxQueueSize),
	)), nil
}

// NewWithSpanProcessor 使用自定义 SpanProcessor 创建（测试中配合 tracetest.SpanRecorder）
func NewWithSpanProcessor(cfg *Config, sp sdktrace.SpanProcessor) (*TracerProvider, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	newCfg.Enabled = true
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}
	return newWithExporter(newCfg, sdktrace.WithSpanProcessor(sp)), nil
}

func newWithExporter(cfg *Config, opt sdktrace.TracerProviderOption) *TracerProvider {
	provider := sdktrace.NewTracerProvider(
		opt,
		sdktrace.WithResource(createResource(cfg)),
		sdktrace.WithSampler(createSampler(cfg.Sampler)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		config:   cfg,
		provider: provider,
	}
}

func createResource(cfg *Config) *resource.Resource {
	return resource.NewWithAttributes(semconv.SchemaURL, cfg.resourceAttributes()...)
}

func createSampler(cfg SamplerConfig) sdktrace.Sampler {
	switch cfg.Type {
	case SamplerTypeAlways:
		return sdktrace.AlwaysSample()
	case SamplerTypeNever:
		return sdktrace.NeverSample()
	case SamplerTypeRatio:
		return sdktrace.TraceIDRatioBased(cfg.Ratio)
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}

// Tracer 获取指定名称的 Tracer
func (p *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.provider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return p.provider.Tracer(name, opts...)
}

// Shutdown 关闭提供者
func (p *TracerProvider) Shutdown(ctx context.Context) error {
	if p.closed.Swap(true) {
		return ErrProviderClosed
	}
	if p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// Close 关闭提供者（使用配置的超时）
func (p *TracerProvider) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.ShutdownTimeout)
	defer cancel()

	return p.Shutdown(ctx)
}

// IsEnabled 是否启用
func (p *TracerProvider) IsEnabled() bool {
	return p.config.Enabled && p.provider != nil
}
