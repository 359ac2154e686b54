// 库存上下文的 MySQL 仓储实现。
// 统一通过 contextx.GetTx 感知事务上下文，事务内外复用同一套仓储。
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/provisionstore/internal/inventory/domain"
	"gorm.io/gorm"
)

type baseRepository struct {
	db *gorm.DB
}

func (r *baseRepository) getDB(ctx context.Context) *gorm.DB {
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

type productRepository struct {
	baseRepository
}

func NewProductRepository(db *gorm.DB) domain.ProductRepository {
	return &productRepository{baseRepository{db: db}}
}

func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	return r.getDB(ctx).WithContext(ctx).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	return r.getDB(ctx).WithContext(ctx).Save(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*domain.Product, error) {
	var p domain.Product
	err := r.getDB(ctx).WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	var p domain.Product
	err := r.getDB(ctx).WithContext(ctx).Where("sku = ?", sku).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context, category string, activeOnly bool, offset, limit int) ([]*domain.Product, int, error) {
	var products []*domain.Product
	var total int64
	q := r.getDB(ctx).WithContext(ctx).Model(&domain.Product{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id").Offset(offset).Limit(limit).Find(&products).Error
	return products, int(total), err
}

func (r *productRepository) Search(ctx context.Context, keyword string, offset, limit int) ([]*domain.Product, int, error) {
	var products []*domain.Product
	var total int64
	pattern := fmt.Sprintf("%%%s%%", keyword)
	q := r.getDB(ctx).WithContext(ctx).Model(&domain.Product{}).
		Where("name LIKE ? OR description LIKE ? OR sku LIKE ?", pattern, pattern, pattern)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id").Offset(offset).Limit(limit).Find(&products).Error
	return products, int(total), err
}

func (r *productRepository) ListLowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	var products []*domain.Product
	err := r.getDB(ctx).WithContext(ctx).
		Where("active = ? AND stock <= IF(reorder_point > 0, reorder_point, ?)", true, threshold).
		Order("stock").
		Find(&products).Error
	return products, err
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	return r.getDB(ctx).WithContext(ctx).Delete(&domain.Product{}, id).Error
}

type stockMovementRepository struct {
	baseRepository
}

func NewStockMovementRepository(db *gorm.DB) domain.StockMovementRepository {
	return &stockMovementRepository{baseRepository{db: db}}
}

func (r *stockMovementRepository) Save(ctx context.Context, movement *domain.StockMovement) error {
	return r.getDB(ctx).WithContext(ctx).Create(movement).Error
}

func (r *stockMovementRepository) ListByProduct(ctx context.Context, productID uint, offset, limit int) ([]*domain.StockMovement, int, error) {
	var movements []*domain.StockMovement
	var total int64
	q := r.getDB(ctx).WithContext(ctx).Model(&domain.StockMovement{}).Where("product_id = ?", productID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&movements).Error
	return movements, int(total), err
}

func (r *stockMovementRepository) ListByReference(ctx context.Context, reference string) ([]*domain.StockMovement, error) {
	var movements []*domain.StockMovement
	err := r.getDB(ctx).WithContext(ctx).
		Where("reference = ?", reference).
		Order("id").
		Find(&movements).Error
	return movements, err
}
