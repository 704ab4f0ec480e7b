package otel

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidServiceName 服务名称无效
	ErrInvalidServiceName = errors.New("otel: invalid service name")

	// ErrInvalidSamplerRatio 采样比率无效
	ErrInvalidSamplerRatio = errors.New("otel: sampler ratio must be between 0 and 1")

	// ErrUnknownExporter 导出器类型未知
	ErrUnknownExporter = errors.New("otel: unknown exporter type")

	// ErrMissingEndpoint OTLP 导出器缺少端点
	ErrMissingEndpoint = errors.New("otel: otlp exporter requires an endpoint")

	// ErrInvalidBatchExport 批量导出参数无效
	ErrInvalidBatchExport = errors.New("otel: batch size must be positive and not exceed max queue size")

	// ErrProviderClosed 提供者已关闭
	ErrProviderClosed = errors.New("otel: provider is closed")

	// ErrExporterFailed 导出器创建失败
	ErrExporterFailed = errors.New("otel: failed to create exporter")
)
