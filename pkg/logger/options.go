package logger

// Option 构造选项
type Option func(*BaseLogger)

// WithName 设置 logger 名称
func WithName(name string) Option {
	return func(l *BaseLogger) {
		l.name = name
	}
}

// WithGlobalFields 追加全局字段
func WithGlobalFields(keysAndValues ...interface{}) Option {
	return func(l *BaseLogger) {
		for i := 0; i+1 < len(keysAndValues); i += 2 {
			key, ok := keysAndValues[i].(string)
			if !ok {
				continue
			}
			l.globalFields[key] = keysAndValues[i+1]
		}
	}
}

// WithContextExtractor 替换默认的 context 字段提取器
func WithContextExtractor(fn ContextFieldExtractor) Option {
	return func(l *BaseLogger) {
		if fn != nil {
			l.contextExtractor = fn
		}
	}
}
