package otel

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type exporterFactory func(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error)

var exporterFactories = map[ExporterType]exporterFactory{
	ExporterTypeOTLPHTTP: newOTLPHTTPExporter,
	ExporterTypeOTLPGRPC: newOTLPGRPCExporter,
	ExporterTypeStdout:   newStdoutExporter,
	ExporterTypeNoop:     newNoopExporter,
}

// createExporter 按 ExporterType 创建导出器，noop 返回 nil
func createExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	factory, ok := exporterFactories[cfg.ExporterType]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownExporter, "exporter type %q", cfg.ExporterType)
	}

	exp, err := factory(ctx, cfg)
	if err != nil {
		return nil, errors.WithSecondaryError(
			errors.Wrapf(ErrExporterFailed, "%s exporter to %s", cfg.ExporterType, cfg.Endpoint), err)
	}
	return exp, nil
}

func newOTLPHTTPExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithTimeout(cfg.BatchExport.ExportTimeout),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
}

func newOTLPGRPCExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(cfg.BatchExport.ExportTimeout),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
}

// newStdoutExporter 写 stderr，stdout 留给 JSON 日志
func newStdoutExporter(context.Context, *Config) (sdktrace.SpanExporter, error) {
	return stdouttrace.New(
		stdouttrace.WithWriter(os.Stderr),
		stdouttrace.WithPrettyPrint(),
	)
}

func newNoopExporter(context.Context, *Config) (sdktrace.SpanExporter, error) {
	return nil, nil
}
