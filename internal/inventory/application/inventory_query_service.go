package application

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/provisionstore/internal/inventory/domain"
)

// InventoryQueryService 库存查询服务
type InventoryQueryService struct {
	products          domain.ProductRepository
	movements         domain.StockMovementRepository
	lowStockThreshold int
}

// NewInventoryQueryService 创建库存查询服务实例
func NewInventoryQueryService(
	products domain.ProductRepository,
	movements domain.StockMovementRepository,
	lowStockThreshold int,
) *InventoryQueryService {
	return &InventoryQueryService{
		products:          products,
		movements:         movements,
		lowStockThreshold: lowStockThreshold,
	}
}

// GetProduct 根据ID获取商品
func (s *InventoryQueryService) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// GetProductBySKU 根据SKU获取商品
func (s *InventoryQueryService) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return s.products.GetBySKU(ctx, sku)
}

// ListProducts 分页列出商品
func (s *InventoryQueryService) ListProducts(ctx context.Context, category string, activeOnly bool, page, size int) ([]*domain.Product, int, error) {
	offset := (page - 1) * size
	if offset < 0 {
		offset = 0
	}
	return s.products.List(ctx, category, activeOnly, offset, size)
}

// SearchProducts 按关键字搜索商品名称与描述
func (s *InventoryQueryService) SearchProducts(ctx context.Context, keyword string, page, size int) ([]*domain.Product, int, error) {
	offset := (page - 1) * size
	if offset < 0 {
		offset = 0
	}
	return s.products.Search(ctx, keyword, offset, size)
}

// ListLowStock 列出低库存商品（含售罄）
func (s *InventoryQueryService) ListLowStock(ctx context.Context) ([]*domain.Product, error) {
	return s.products.ListLowStock(ctx, s.lowStockThreshold)
}

// ListMovements 分页列出某商品的库存流水
func (s *InventoryQueryService) ListMovements(ctx context.Context, productID uint, page, size int) ([]*domain.StockMovement, int, error) {
	offset := (page - 1) * size
	if offset < 0 {
		offset = 0
	}
	return s.movements.ListByProduct(ctx, productID, offset, size)
}

// ListMovementsByReference 按业务引用列出库存流水
func (s *InventoryQueryService) ListMovementsByReference(ctx context.Context, reference string) ([]*domain.StockMovement, error) {
	return s.movements.ListByReference(ctx, reference)
}

// InventorySummary 库存概览
type InventorySummary struct {
	TotalProducts int             `json:"total_products"`
	TotalStock    int             `json:"total_stock"`
	TotalValue    decimal.Decimal `json:"total_value"`
	LowStock      int             `json:"low_stock"`
	StockOut      int             `json:"stock_out"`
}

// Summary 汇总在售商品的件数与货值
func (s *InventoryQueryService) Summary(ctx context.Context) (*InventorySummary, error) {
	products, total, err := s.products.List(ctx, "", false, 0, 10000)
	if err != nil {
		return nil, err
	}

	summary := &InventorySummary{TotalProducts: total, TotalValue: decimal.Zero}
	for _, p := range products {
		summary.TotalStock += p.Stock
		summary.TotalValue = summary.TotalValue.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
		if p.IsStockOut() {
			summary.StockOut++
		} else if p.IsLowStock(p.LowStockPoint(s.lowStockThreshold)) {
			summary.LowStock++
		}
	}
	return summary, nil
}
