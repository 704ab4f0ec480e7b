package logger

import "context"

// Leveled 按等级输出 key-value 日志
type Leveled interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ContextLeveled 附带 ctx 中的 trace_id、span_id 以及 WithContextFields 挂载的字段
type ContextLeveled interface {
	DebugContext(ctx context.Context, msg string, keysAndValues ...interface{})
	InfoContext(ctx context.Context, msg string, keysAndValues ...interface{})
	WarnContext(ctx context.Context, msg string, keysAndValues ...interface{})
	ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{})
}

// Logger 业务模块依赖的日志接口，测试中替换为 NoopLogger
type Logger interface {
	Leveled
	ContextLeveled

	// Enabled 报告该等级是否会被输出，逐条明细日志在拼装字段前先判断
	Enabled(level Level) bool

	Named(name string) Logger
	WithFields(keysAndValues ...interface{}) Logger

	Sync() error
}
