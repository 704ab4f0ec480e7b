package config

import "github.com/spf13/viper"

// Option 配置管理器选项
type Option func(*manager)

// WithDefaults 设置默认值（优先级最低）
func WithDefaults(defaults map[string]any) Option {
	return func(m *manager) {
		for key, value := range defaults {
			m.v.SetDefault(key, value)
		}
	}
}

// WithConfigType 显式指定配置类型（yaml、json、toml）
func WithConfigType(configType string) Option {
	return func(m *manager) {
		m.v.SetConfigType(configType)
	}
}

// WithViper 使用外部创建的 viper 实例（例如已经绑定了环境变量）
func WithViper(v *viper.Viper) Option {
	return func(m *manager) {
		m.v = v
	}
}
