package kafka

import "errors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("kafka: invalid config")

	// ErrNoBrokers 无 broker 地址
	ErrNoBrokers = errors.New("kafka: no brokers configured")

	// ErrInvalidCompression 不支持的压缩算法
	ErrInvalidCompression = errors.New("kafka: unsupported compression")

	// ErrEmptyTopic 空主题
	ErrEmptyTopic = errors.New("kafka: empty topic")

	// ErrClientClosed 客户端已关闭
	ErrClientClosed = errors.New("kafka: client is closed")

	// ErrProducerClosed 生产者已关闭
	ErrProducerClosed = errors.New("kafka: producer is closed")

	// ErrProducerPanic 生产者 panic
	ErrProducerPanic = errors.New("kafka: producer panic")
)
