package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Client Kafka 客户端
type Client struct {
	config *Config
	logger logger.Logger

	// 生产者（按 topic 缓存）
	producers  map[string]*Producer
	producerMu sync.RWMutex

	producerMiddlewares []ProducerMiddleware

	// writerFactory 测试中替换为不连接 broker 的实现
	writerFactory func(topic string) messageWriter

	closed atomic.Bool
}

// messageWriter kafka.Writer 的最小抽象
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithLogger 设置日志
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProducerMiddleware 添加生产者中间件，按添加顺序由外向内执行
func WithProducerMiddleware(mw ...ProducerMiddleware) ClientOption {
	return func(c *Client) {
		c.producerMiddlewares = append(c.producerMiddlewares, mw...)
	}
}

// New 创建 Kafka 客户端
func New(cfg *Config, opts ...ClientOption) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	transport, err := newTransport(newCfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:    newCfg,
		logger:    logger.NewNoop(),
		producers: make(map[string]*Producer),
	}
	c.writerFactory = func(topic string) messageWriter {
		return newWriter(newCfg, topic, transport)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Producer 获取或创建指定 topic 的生产者
func (c *Client) Producer(topic string) (*Producer, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	c.producerMu.RLock()
	p, exists := c.producers[topic]
	c.producerMu.RUnlock()
	if exists {
		return p, nil
	}

	c.producerMu.Lock()
	defer c.producerMu.Unlock()

	// 双重检查
	if p, exists = c.producers[topic]; exists {
		return p, nil
	}

	p = newProducer(c, topic, c.writerFactory(topic))
	c.producers[topic] = p

	c.logger.Debug("producer created", "topic", topic)

	return p, nil
}

// Close 关闭所有生产者
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.producerMu.Lock()
	defer c.producerMu.Unlock()

	var errs []error
	for topic, p := range c.producers {
		if err := p.Close(); err != nil {
			c.logger.Error("failed to close producer", "topic", topic, "error", err)
			errs = append(errs, err)
		}
	}
	c.producers = make(map[string]*Producer)

	return errors.Join(errs...)
}

// Config 返回合并后的配置
func (c *Client) Config() *Config {
	return c.config
}
