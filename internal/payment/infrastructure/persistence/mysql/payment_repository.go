package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"

	"github.com/wyfcoding/provisionstore/internal/payment/domain"
)

type baseRepository struct {
	db *gorm.DB
}

// getDB 返回事务句柄，无事务时回落到根连接
func (r *baseRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

type paymentRepository struct {
	baseRepository
}

// NewPaymentRepository 创建支付 MySQL 仓储
func NewPaymentRepository(db *gorm.DB) domain.PaymentRepository {
	return &paymentRepository{baseRepository{db: db}}
}

func (r *paymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	if err := r.getDB(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	if err := r.getDB(ctx).Save(payment).Error; err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.getDB(ctx).Where("reference = ?", reference).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment by reference: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderNumber string) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := r.getDB(ctx).
		Where("order_number = ?", orderNumber).
		Order("id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list payments by order: %w", err)
	}
	return payments, nil
}
