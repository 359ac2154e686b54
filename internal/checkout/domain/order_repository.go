package domain

import "context"

// OrderRepository 订单仓储接口
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uint) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*Order, int, error)
	ListByStatus(ctx context.Context, status OrderStatus, offset, limit int) ([]*Order, int, error)
}
