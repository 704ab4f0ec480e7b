package prometheus

import "time"

// Config Prometheus 配置
type Config struct {
	// Namespace 指标命名空间（应用名称）
	Namespace string `mapstructure:"namespace"`

	// HTTPServer 独立的指标 HTTP 服务（未启用时由 Web 服务挂载 /metrics）
	HTTPServer HTTPServerConfig `mapstructure:"http_server"`

	EnableGoCollector      bool `mapstructure:"enable_go_collector"`
	EnableProcessCollector bool `mapstructure:"enable_process_collector"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Addr    string        `mapstructure:"addr"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace: "gacha",
		HTTPServer: HTTPServerConfig{
			Addr:    ":9090",
			Path:    "/metrics",
			Timeout: 10 * time.Second,
		},
		EnableGoCollector:      true,
		EnableProcessCollector: true,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return ErrInvalidConfig
	}
	if c.HTTPServer.Enabled && (c.HTTPServer.Addr == "" || c.HTTPServer.Path == "") {
		return ErrInvalidConfig
	}
	return nil
}
