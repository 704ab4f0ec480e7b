package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type fieldsKey struct{}

// ContextFieldExtractor 从 context 提取日志字段
type ContextFieldExtractor func(ctx context.Context) []zap.Field

// WithContextFields 把 key-value 对挂到 ctx 上，之后的 *Context 日志都会带上这些字段
func WithContextFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	fields := toZapFields(keysAndValues...)
	if len(fields) == 0 {
		return ctx
	}
	if prev, ok := ctx.Value(fieldsKey{}).([]zap.Field); ok {
		merged := make([]zap.Field, 0, len(prev)+len(fields))
		merged = append(merged, prev...)
		fields = append(merged, fields...)
	}
	return context.WithValue(ctx, fieldsKey{}, fields)
}

// DefaultContextExtractor 提取 trace_id/span_id 以及 WithContextFields 挂载的字段
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}

	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if extra, ok := ctx.Value(fieldsKey{}).([]zap.Field); ok {
		fields = append(fields, extra...)
	}
	return fields
}
