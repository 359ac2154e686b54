package domain

import "context"

// PaymentRepository 支付单仓储接口
type PaymentRepository interface {
	Save(ctx context.Context, payment *Payment) error
	Update(ctx context.Context, payment *Payment) error
	GetByReference(ctx context.Context, reference string) (*Payment, error)
	ListByOrder(ctx context.Context, orderNumber string) ([]*Payment, error)
}
