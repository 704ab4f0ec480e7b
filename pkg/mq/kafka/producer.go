package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer Kafka 生产者
type Producer struct {
	client *Client
	topic  string
	writer messageWriter

	produced  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	lastTime  atomic.Int64

	publish PublishFunc

	closed atomic.Bool
}

func newWriter(cfg *Config, topic string, transport *kafka.Transport) *kafka.Writer {
	pc := cfg.Producer
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              pc.BatchSize,
		BatchTimeout:           pc.BatchTimeout,
		MaxAttempts:            pc.MaxRetries + 1,
		WriteTimeout:           pc.WriteTimeout,
		ReadTimeout:            pc.ReadTimeout,
		RequiredAcks:           kafka.RequiredAcks(pc.RequiredAcks),
		Async:                  pc.Async,
		Compression:            parseCompression(pc.Compression),
		AllowAutoTopicCreation: true,
	}
	if transport != nil {
		w.Transport = transport
	}
	return w
}

func newProducer(c *Client, topic string, w messageWriter) *Producer {
	p := &Producer{
		client: c,
		topic:  topic,
		writer: w,
	}

	// 构建中间件链，先添加的在外层
	publish := p.doPublish
	for i := len(c.producerMiddlewares) - 1; i >= 0; i-- {
		mw := c.producerMiddlewares[i]
		next := publish
		publish = func(ctx context.Context, msg *Message) error {
			return mw(ctx, msg, next)
		}
	}
	p.publish = publish

	return p
}

// Publish 发布单条消息
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	msg.Topic = p.topic
	p.produced.Add(1)

	if err := p.publish(ctx, msg); err != nil {
		p.failed.Add(1)
		return err
	}

	p.succeeded.Add(1)
	p.lastTime.Store(time.Now().UnixNano())
	return nil
}

// PublishJSON 发布已编码的 JSON 消息
func (p *Producer) PublishJSON(ctx context.Context, key string, value []byte, headers map[string]string) error {
	if headers == nil {
		headers = make(map[string]string)
	}
	headers["content-type"] = "application/json"

	return p.Publish(ctx, &Message{
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
	})
}

func (p *Producer) doPublish(ctx context.Context, msg *Message) error {
	km := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
	}
	if len(msg.Headers) > 0 {
		km.Headers = make([]kafka.Header, 0, len(msg.Headers))
		for k, v := range msg.Headers {
			km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}
	return p.writer.WriteMessages(ctx, km)
}

// Topic 返回 topic 名称
func (p *Producer) Topic() string {
	return p.topic
}

// Stats 返回统计信息
func (p *Producer) Stats() ProducerStats {
	stats := ProducerStats{
		MessagesProduced:  p.produced.Load(),
		MessagesSucceeded: p.succeeded.Load(),
		MessagesFailed:    p.failed.Load(),
	}
	if ns := p.lastTime.Load(); ns > 0 {
		stats.LastMessageTime = time.Unix(0, ns)
	}
	return stats
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}

	p.client.logger.Debug("producer closing", "topic", p.topic)

	return p.writer.Close()
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}
