package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// 重导出常用类型，避免使用者直接依赖 go.opentelemetry.io/otel
type (
	Span            = trace.Span
	SpanKind        = trace.SpanKind
	SpanStartOption = trace.SpanStartOption
	Attribute       = attribute.KeyValue
)

const (
	SpanKindInternal = trace.SpanKindInternal
	SpanKindServer   = trace.SpanKindServer
	SpanKindProducer = trace.SpanKindProducer
)

// 属性构造函数
var (
	String = attribute.String
	Int    = attribute.Int
	Int64  = attribute.Int64
	Bool   = attribute.Bool
)

// Tracer 获取全局 Tracer
func Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return otel.Tracer(name, opts...)
}

// WithSpanKind 设置 span 类型
func WithSpanKind(kind SpanKind) SpanStartOption {
	return trace.WithSpanKind(kind)
}

// WithAttributes 设置 span 属性
func WithAttributes(attrs ...Attribute) SpanStartOption {
	return trace.WithAttributes(attrs...)
}

// StartSpan 以全局 Tracer 开启 span
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...Attribute) (context.Context, Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// EndSpan 记录错误并结束 span
func EndSpan(span Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceIDFromContext 返回当前 span 的 trace id，无有效 span 时为空
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
