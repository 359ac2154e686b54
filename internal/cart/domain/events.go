package domain

import (
	"context"
	"time"
)

// Kafka 事件主题
const (
	TopicCartItemAdded   = "cart.item.added"
	TopicCartItemRemoved = "cart.item.removed"
	TopicCartCleared     = "cart.cleared"
	TopicCartValidated   = "cart.validated"
)

// EventPublisher 事件发布者接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}

// CartItemAddedEvent 购物车添加商品事件
type CartItemAddedEvent struct {
	UserID    string    `json:"user_id"`
	ProductID uint      `json:"product_id"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Timestamp time.Time `json:"timestamp"`
}

// CartItemRemovedEvent 购物车移除商品事件
type CartItemRemovedEvent struct {
	UserID    string    `json:"user_id"`
	ProductID uint      `json:"product_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CartClearedEvent 购物车清空事件
type CartClearedEvent struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CartValidatedEvent 购物车校验通过事件，携带报价快照
type CartValidatedEvent struct {
	UserID    string    `json:"user_id"`
	Region    string    `json:"region"`
	ItemCount int       `json:"item_count"`
	Total     string    `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}
