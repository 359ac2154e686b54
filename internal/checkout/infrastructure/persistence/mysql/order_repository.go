package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/provisionstore/internal/checkout/domain"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单 MySQL 仓储
func NewOrderRepository(db *gorm.DB) domain.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// TransactionManager 事务管理器
type TransactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// Transaction 开启一个新事务
func (tm *TransactionManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	return r.getDB(ctx).WithContext(ctx).Create(order).Error
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	return r.getDB(ctx).WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*domain.Order, error) {
	var order domain.Order
	err := r.getDB(ctx).WithContext(ctx).
		Preload("Items").
		Preload("Tracking").
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	order.InitFSM()
	return &order, nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var order domain.Order
	err := r.getDB(ctx).WithContext(ctx).
		Preload("Items").
		Preload("Tracking").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	order.InitFSM()
	return &order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*domain.Order, int, error) {
	var orders []*domain.Order
	var total int64
	q := r.getDB(ctx).WithContext(ctx).Model(&domain.Order{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Items").Order("id DESC").Offset(offset).Limit(limit).Find(&orders).Error
	return orders, int(total), err
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, offset, limit int) ([]*domain.Order, int, error) {
	var orders []*domain.Order
	var total int64
	q := r.getDB(ctx).WithContext(ctx).Model(&domain.Order{}).Where("status = ?", status)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Items").Order("id DESC").Offset(offset).Limit(limit).Find(&orders).Error
	return orders, int(total), err
}
