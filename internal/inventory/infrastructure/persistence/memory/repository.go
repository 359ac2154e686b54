// 内存仓储实现，用于单元测试与本地开发。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/wyfcoding/provisionstore/internal/inventory/domain"
)

// ProductRepository 内存商品仓储
type ProductRepository struct {
	mu     sync.RWMutex
	nextID uint
	byID   map[uint]*domain.Product
}

// NewProductRepository 创建内存商品仓储
func NewProductRepository() *ProductRepository {
	return &ProductRepository{nextID: 1, byID: make(map[uint]*domain.Product)}
}

func (r *ProductRepository) Save(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.SKU == product.SKU {
			return domain.ErrDuplicateSKU
		}
	}
	product.ID = r.nextID
	r.nextID++
	clone := *product
	r.byID[product.ID] = &clone
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	clone := *product
	r.byID[product.ID] = &clone
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id uint) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byID {
		if p.SKU == sku {
			clone := *p
			return &clone, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (r *ProductRepository) List(ctx context.Context, category string, activeOnly bool, offset, limit int) ([]*domain.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*domain.Product, 0, len(r.byID))
	for _, p := range r.byID {
		if category != "" && p.Category != category {
			continue
		}
		if activeOnly && !p.Active {
			continue
		}
		clone := *p
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, offset, limit), len(matched), nil
}

func (r *ProductRepository) Search(ctx context.Context, keyword string, offset, limit int) ([]*domain.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kw := strings.ToLower(keyword)
	matched := make([]*domain.Product, 0)
	for _, p := range r.byID {
		if strings.Contains(strings.ToLower(p.Name), kw) ||
			strings.Contains(strings.ToLower(p.Description), kw) ||
			strings.Contains(strings.ToLower(p.SKU), kw) {
			clone := *p
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, offset, limit), len(matched), nil
}

func (r *ProductRepository) ListLowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*domain.Product, 0)
	for _, p := range r.byID {
		if p.Active && p.Stock <= p.LowStockPoint(threshold) {
			clone := *p
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Stock < matched[j].Stock })
	return matched, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.byID, id)
	return nil
}

func paginate(products []*domain.Product, offset, limit int) []*domain.Product {
	if offset >= len(products) {
		return nil
	}
	end := len(products)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return products[offset:end]
}

// StockMovementRepository 内存库存流水仓储
type StockMovementRepository struct {
	mu        sync.RWMutex
	nextID    uint
	movements []*domain.StockMovement
}

// NewStockMovementRepository 创建内存库存流水仓储
func NewStockMovementRepository() *StockMovementRepository {
	return &StockMovementRepository{nextID: 1}
}

func (r *StockMovementRepository) Save(ctx context.Context, movement *domain.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	movement.ID = r.nextID
	r.nextID++
	clone := *movement
	r.movements = append(r.movements, &clone)
	return nil
}

func (r *StockMovementRepository) ListByProduct(ctx context.Context, productID uint, offset, limit int) ([]*domain.StockMovement, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*domain.StockMovement, 0)
	for _, m := range r.movements {
		if m.ProductID == productID {
			clone := *m
			matched = append(matched, &clone)
		}
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func (r *StockMovementRepository) ListByReference(ctx context.Context, reference string) ([]*domain.StockMovement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*domain.StockMovement, 0)
	for _, m := range r.movements {
		if m.Reference == reference {
			clone := *m
			matched = append(matched, &clone)
		}
	}
	return matched, nil
}

// TransactionManager 内存事务管理器，直接执行回调
type TransactionManager struct{}

// NewTransactionManager 创建内存事务管理器
func NewTransactionManager() *TransactionManager { return &TransactionManager{} }

func (tm *TransactionManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
