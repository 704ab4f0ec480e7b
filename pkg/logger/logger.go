package logger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Logger = (*BaseLogger)(nil)

// BaseLogger 基于 zap 的 Logger 实现
type BaseLogger struct {
	*zap.Logger
	config           *Config
	name             string
	globalFields     map[string]interface{}
	contextExtractor ContextFieldExtractor
}

// New 创建 BaseLogger，cfg 中未设置的字段使用 DefaultConfig 补齐
// 只开启文件输出时不再附加控制台输出
func New(cfg *Config, opts ...Option) (*BaseLogger, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge logger config: %w", err)
	}
	if cfg != nil {
		merged.EnableConsole = cfg.EnableConsole || !cfg.EnableFile
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	l := &BaseLogger{
		config:           merged,
		globalFields:     make(map[string]interface{}),
		contextExtractor: DefaultContextExtractor,
	}
	for k, v := range merged.GlobalFields {
		l.globalFields[k] = v
	}
	for _, opt := range opts {
		opt(l)
	}

	zl, err := l.build()
	if err != nil {
		return nil, err
	}
	l.Logger = zl
	return l, nil
}

// NewFromZap 包装一个现成的 zap.Logger，测试中配合 zaptest/observer 使用
func NewFromZap(zl *zap.Logger) *BaseLogger {
	return &BaseLogger{
		Logger:           zl,
		config:           DefaultConfig(),
		globalFields:     make(map[string]interface{}),
		contextExtractor: DefaultContextExtractor,
	}
}

func (l *BaseLogger) build() (*zap.Logger, error) {
	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(l.config.TimeFormat),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if l.config.Development {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if l.config.Format == ConsoleFormat {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	writers := make([]zapcore.WriteSyncer, 0, 2)
	if l.config.EnableConsole {
		writers = append(writers, consoleSyncer{zapcore.AddSync(os.Stdout)})
	}
	if l.config.EnableFile {
		w, err := newRotationWriter(&l.config.Rotation, l.config.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create rotation writer: %w", err)
		}
		writers = append(writers, zapcore.AddSync(w))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), parseLevel(l.config.Level))
	if l.config.EnableSampling {
		core = zapcore.NewSamplerWithOptions(core, 1e9, l.config.SamplingInitial, l.config.SamplingThereafter)
	}

	options := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(parseLevel(l.config.StacktraceLevel)),
	}
	if l.config.Development {
		options = append(options, zap.Development())
	}

	zl := zap.New(core, options...)
	if len(l.globalFields) > 0 {
		fields := make([]zap.Field, 0, len(l.globalFields))
		for k, v := range l.globalFields {
			fields = append(fields, zap.Any(k, v))
		}
		zl = zl.With(fields...)
	}
	if l.name != "" {
		zl = zl.Named(l.name)
	}
	return zl, nil
}

func parseLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *BaseLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Info(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.Logger.Warn(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Error(msg string, keysAndValues ...interface{}) {
	l.Logger.Error(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.Logger.Debug(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.Logger.Info(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.Logger.Warn(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.Logger.Error(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) withContext(ctx context.Context, keysAndValues []interface{}) []zap.Field {
	return append(l.contextExtractor(ctx), toZapFields(keysAndValues...)...)
}

// Named 创建具名子 logger，名称以 "." 连接
func (l *BaseLogger) Named(name string) Logger {
	return l.derive(l.Logger.Named(name))
}

// WithFields 创建附带固定字段的子 logger
func (l *BaseLogger) WithFields(keysAndValues ...interface{}) Logger {
	fields := toZapFields(keysAndValues...)
	if len(fields) == 0 {
		return l
	}
	return l.derive(l.Logger.With(fields...))
}

func (l *BaseLogger) derive(zl *zap.Logger) *BaseLogger {
	return &BaseLogger{
		Logger:           zl,
		config:           l.config,
		name:             l.name,
		globalFields:     l.globalFields,
		contextExtractor: l.contextExtractor,
	}
}

// Enabled 以底层 core 的等级判断
func (l *BaseLogger) Enabled(level Level) bool {
	return l.Logger.Core().Enabled(parseLevel(level))
}

func (l *BaseLogger) Sync() error {
	return l.Logger.Sync()
}

// toZapFields 把 key-value 对转换为 zap.Field，也接受直接传入的 zap.Field
func toZapFields(keysAndValues ...interface{}) []zap.Field {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i++ {
		switch v := keysAndValues[i].(type) {
		case zap.Field:
			fields = append(fields, v)
		case string:
			if i+1 >= len(keysAndValues) {
				fields = append(fields, zap.Any("!BADKEY", v))
				continue
			}
			fields = append(fields, zap.Any(v, keysAndValues[i+1]))
			i++
		}
	}
	return fields
}

// consoleSyncer stdout 指向管道或终端时 fsync 返回 EINVAL / ENOTTY，视为成功
type consoleSyncer struct {
	zapcore.WriteSyncer
}

func (s consoleSyncer) Sync() error {
	err := s.WriteSyncer.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
