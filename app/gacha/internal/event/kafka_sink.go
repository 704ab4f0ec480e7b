package event

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/pkg/mq/kafka"
	"github.com/lk2023060901/xdooria-gacha/pkg/serializer"
)

// DefaultTopic 结果事件的 Kafka topic
const DefaultTopic = "gacha.events"

// messagePublisher kafka.Producer 的最小抽象
type messagePublisher interface {
	Publish(ctx context.Context, msg *kafka.Message) error
}

// KafkaSink 将结果事件写入 Kafka，以玩家 id 为分区键保证单玩家有序
type KafkaSink struct {
	producer messagePublisher
	codec    serializer.Serializer
}

var _ Subscriber = (*KafkaSink)(nil)

// NewKafkaSink 创建 Kafka 订阅方，encoding 取 json 或 msgpack
func NewKafkaSink(client *kafka.Client, topic, encoding string) (*KafkaSink, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	codec, err := serializer.New(encoding)
	if err != nil {
		return nil, err
	}
	p, err := client.Producer(topic)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create producer for %s", topic)
	}
	return &KafkaSink{producer: p, codec: codec}, nil
}

func (s *KafkaSink) Name() string {
	return "kafka"
}

func (s *KafkaSink) Handle(ctx context.Context, evt Event) error {
	body, err := s.codec.Serialize(evt)
	if err != nil {
		return errors.Wrap(err, "failed to encode event")
	}
	return s.producer.Publish(ctx, &kafka.Message{
		Key:   []byte(strconv.FormatInt(evt.PlayerID, 10)),
		Value: body,
		Headers: map[string]string{
			"content-type": s.codec.ContentType(),
			"event_id":     evt.ID,
			"event_type":   string(evt.Type),
		},
	})
}
