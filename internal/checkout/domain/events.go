package domain

import (
	"context"
	"time"
)

// Kafka 事件主题
const (
	TopicOrderCreated       = "checkout.order.created"
	TopicOrderConfirmed     = "checkout.order.confirmed"
	TopicOrderStatusChanged = "checkout.order.status.changed"
	TopicOrderCancelled     = "checkout.order.cancelled"
)

// EventPublisher 事件发布者接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}

// OrderCreatedEvent 订单创建事件
type OrderCreatedEvent struct {
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	Region      string    `json:"region"`
	Total       string    `json:"total"`
	ItemCount   int       `json:"item_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// OrderConfirmedEvent 支付确认事件
type OrderConfirmedEvent struct {
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	PaymentRef  string    `json:"payment_ref"`
	Timestamp   time.Time `json:"timestamp"`
}

// OrderStatusChangedEvent 订单状态变更事件
type OrderStatusChangedEvent struct {
	OrderNumber string    `json:"order_number"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	Timestamp   time.Time `json:"timestamp"`
}

// OrderCancelledEvent 订单取消事件
type OrderCancelledEvent struct {
	OrderNumber   string    `json:"order_number"`
	UserID        string    `json:"user_id"`
	Reason        string    `json:"reason"`
	StockReleased bool      `json:"stock_released"`
	Timestamp     time.Time `json:"timestamp"`
}
