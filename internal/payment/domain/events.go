package domain

import (
	"context"
	"time"
)

// Kafka 事件主题
const (
	TopicPaymentInitialized = "payment.initialized"
	TopicPaymentSucceeded   = "payment.succeeded"
	TopicPaymentFailed      = "payment.failed"
)

// EventPublisher 事件发布者接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}

// PaymentInitializedEvent 支付单创建事件
type PaymentInitializedEvent struct {
	Reference   string    `json:"reference"`
	OrderNumber string    `json:"order_number"`
	Method      string    `json:"method"`
	Amount      string    `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// PaymentSucceededEvent 支付成功事件
type PaymentSucceededEvent struct {
	Reference   string    `json:"reference"`
	OrderNumber string    `json:"order_number"`
	ProviderRef string    `json:"provider_ref"`
	Timestamp   time.Time `json:"timestamp"`
}

// PaymentFailedEvent 支付失败事件
type PaymentFailedEvent struct {
	Reference   string    `json:"reference"`
	OrderNumber string    `json:"order_number"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}
