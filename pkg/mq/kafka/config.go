package kafka

import "time"

// Config Kafka 配置
type Config struct {
	// Brokers Kafka broker 地址列表
	Brokers []string `mapstructure:"brokers"`

	// Producer 生产者配置
	Producer ProducerConfig `mapstructure:"producer"`

	// SASL 认证配置（可选）
	SASL *SASLConfig `mapstructure:"sasl"`

	// TLS 配置（可选）
	TLS *TLSConfig `mapstructure:"tls"`
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	// Async 是否异步发送
	Async bool `mapstructure:"async"`

	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`

	// RequiredAcks 0: 不等待, 1: Leader, -1: 所有副本
	RequiredAcks int `mapstructure:"required_acks"`

	// Compression 压缩算法: none, gzip, snappy, lz4, zstd
	Compression string `mapstructure:"compression"`

	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
}

// SASLConfig SASL 认证配置
type SASLConfig struct {
	// Mechanism 认证机制: PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Mechanism string `mapstructure:"mechanism"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// TLSConfig TLS 配置
type TLSConfig struct {
	Enable             bool   `mapstructure:"enable"`
	CertFile           string `mapstructure:"cert_file"`
	KeyFile            string `mapstructure:"key_file"`
	CAFile             string `mapstructure:"ca_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Brokers: []string{"localhost:9092"},
		Producer: ProducerConfig{
			BatchSize:    100,
			BatchTimeout: 50 * time.Millisecond,
			MaxRetries:   3,
			RequiredAcks: -1,
			Compression:  "snappy",
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  10 * time.Second,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	switch c.Producer.Compression {
	case "", "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return ErrInvalidCompression
	}
	switch c.Producer.RequiredAcks {
	case -1, 0, 1:
	default:
		return ErrInvalidConfig
	}
	return nil
}
