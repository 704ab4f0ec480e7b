package kafka

import (
	"context"
	"time"

	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/otel"
)

// LoggingMiddleware 生产者日志中间件
func LoggingMiddleware(log logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			log.ErrorContext(ctx, "message publish failed",
				"topic", msg.Topic,
				"key", string(msg.Key),
				"duration", time.Since(start),
				"error", err,
			)
			return err
		}

		log.DebugContext(ctx, "message published",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"duration", time.Since(start),
		)
		return nil
	}
}

// TracingMiddleware 生产者追踪中间件，把追踪上下文注入消息头
func TracingMiddleware(tracerName string) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) error {
		ctx, span := otel.Tracer(tracerName).Start(ctx, "kafka.publish",
			otel.WithSpanKind(otel.SpanKindProducer),
			otel.WithAttributes(
				otel.String("messaging.system", "kafka"),
				otel.String("messaging.destination", msg.Topic),
				otel.String("messaging.kafka.message_key", string(msg.Key)),
			),
		)

		if msg.Headers == nil {
			msg.Headers = make(map[string]string)
		}
		otel.Inject(ctx, otel.MapCarrier(msg.Headers))

		err := next(ctx, msg)
		otel.EndSpan(span, err)
		return err
	}
}

// RecoveryMiddleware 生产者恢复中间件
func RecoveryMiddleware(log logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("producer panic recovered",
					"topic", msg.Topic,
					"key", string(msg.Key),
					"panic", r,
				)
				err = ErrProducerPanic
			}
		}()
		return next(ctx, msg)
	}
}
