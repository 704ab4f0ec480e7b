package kafka

import (
	"context"
	"time"
)

// Message 消息结构
type Message struct {
	// Topic 主题（由 Producer 填充）
	Topic string

	// Key 消息键，同一 Key 路由到同一分区
	Key []byte

	Value []byte

	// Headers 消息头（trace 上下文、事件类型等）
	Headers map[string]string
}

// PublishFunc 实际发送函数
type PublishFunc func(ctx context.Context, msg *Message) error

// ProducerMiddleware 生产者中间件
type ProducerMiddleware func(ctx context.Context, msg *Message, next PublishFunc) error

// ProducerStats 生产者统计
type ProducerStats struct {
	MessagesProduced  int64
	MessagesSucceeded int64
	MessagesFailed    int64
	LastMessageTime   time.Time
}
