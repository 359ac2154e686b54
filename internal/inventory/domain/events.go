package domain

import (
	"context"
	"time"
)

// Kafka 事件主题
const (
	TopicStockReserved  = "inventory.stock.reserved"
	TopicStockReleased  = "inventory.stock.released"
	TopicLowStock       = "inventory.stock.low"
	TopicStockOut       = "inventory.stock.out"
	TopicProductCreated = "inventory.product.created"
	TopicProductUpdated = "inventory.product.updated"
)

// EventPublisher 事件发布者接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}

// ReservedLine 单个商品的预留明细
type ReservedLine struct {
	ProductID uint   `json:"product_id"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	Remaining int    `json:"remaining"`
}

// StockReservedEvent 库存预留成功事件
type StockReservedEvent struct {
	Reference string         `json:"reference"`
	Lines     []ReservedLine `json:"lines"`
	Timestamp time.Time      `json:"timestamp"`
}

// StockReleasedEvent 库存返还事件
type StockReleasedEvent struct {
	Reference string         `json:"reference"`
	Lines     []ReservedLine `json:"lines"`
	Timestamp time.Time      `json:"timestamp"`
}

// LowStockEvent 低库存预警事件
type LowStockEvent struct {
	ProductID uint      `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// StockOutEvent 售罄事件
type StockOutEvent struct {
	ProductID uint      `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductCreatedEvent 商品创建事件
type ProductCreatedEvent struct {
	ProductID uint      `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductUpdatedEvent 商品更新事件
type ProductUpdatedEvent struct {
	ProductID uint      `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}
