package messaging

import (
	"context"

	"github.com/wyfcoding/provisionstore/internal/inventory/domain"
	"github.com/wyfcoding/provisionstore/pkg/mq"
)

// kafkaPublisher 基于 Kafka 的事件发布者实现
type kafkaPublisher struct {
	producer *mq.KafkaProducer
}

// NewKafkaPublisher 创建 Kafka 事件发布者
func NewKafkaPublisher(producer *mq.KafkaProducer) domain.EventPublisher {
	return &kafkaPublisher{producer: producer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return p.producer.SendMessage(ctx, topic, key, event)
}
