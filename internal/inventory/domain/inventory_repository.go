package domain

import "context"

// ProductRepository 商品仓储接口
type ProductRepository interface {
	Save(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id uint) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	List(ctx context.Context, category string, activeOnly bool, offset, limit int) ([]*Product, int, error)
	Search(ctx context.Context, keyword string, offset, limit int) ([]*Product, int, error)
	ListLowStock(ctx context.Context, threshold int) ([]*Product, error)
	Delete(ctx context.Context, id uint) error
}

// StockMovementRepository 库存流水仓储接口
type StockMovementRepository interface {
	Save(ctx context.Context, movement *StockMovement) error
	ListByProduct(ctx context.Context, productID uint, offset, limit int) ([]*StockMovement, int, error)
	ListByReference(ctx context.Context, reference string) ([]*StockMovement, error)
}
