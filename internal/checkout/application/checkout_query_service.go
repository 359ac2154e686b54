package application

import (
	"context"

	"github.com/wyfcoding/provisionstore/internal/checkout/domain"
)

// CheckoutQueryService 订单查询服务
type CheckoutQueryService struct {
	orders domain.OrderRepository
}

// NewCheckoutQueryService 创建订单查询服务实例
func NewCheckoutQueryService(orders domain.OrderRepository) *CheckoutQueryService {
	return &CheckoutQueryService{orders: orders}
}

// GetOrder 按订单号获取订单
func (s *CheckoutQueryService) GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.orders.GetByNumber(ctx, orderNumber)
}

// ListByUser 分页列出用户订单
func (s *CheckoutQueryService) ListByUser(ctx context.Context, userID string, page, size int) ([]*domain.Order, int, error) {
	offset := (page - 1) * size
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListByUser(ctx, userID, offset, size)
}

// ListByStatus 分页列出某状态的订单
func (s *CheckoutQueryService) ListByStatus(ctx context.Context, status domain.OrderStatus, page, size int) ([]*domain.Order, int, error) {
	offset := (page - 1) * size
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListByStatus(ctx, status, offset, size)
}

// GetTracking 获取订单轨迹
func (s *CheckoutQueryService) GetTracking(ctx context.Context, orderNumber string) ([]domain.TrackingEvent, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return order.Tracking, nil
}
