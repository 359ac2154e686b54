// 组合仓储：MySQL 为权威存储，Redis 作读穿缓存。
// 缓存读写失败不阻断主流程，仅记录日志。
package persistence

import (
	"context"

	"github.com/wyfcoding/provisionstore/internal/inventory/domain"
	"github.com/wyfcoding/provisionstore/internal/inventory/infrastructure/persistence/redis"
	"github.com/wyfcoding/provisionstore/pkg/logger"
)

// CompositeProductRepository 读穿缓存的商品仓储
type CompositeProductRepository struct {
	primary domain.ProductRepository
	cache   *redis.ProductCache
}

// NewCompositeProductRepository 创建组合商品仓储
func NewCompositeProductRepository(primary domain.ProductRepository, cache *redis.ProductCache) domain.ProductRepository {
	return &CompositeProductRepository{primary: primary, cache: cache}
}

func (r *CompositeProductRepository) Save(ctx context.Context, product *domain.Product) error {
	if err := r.primary.Save(ctx, product); err != nil {
		return err
	}
	if err := r.cache.Set(ctx, product); err != nil {
		logger.Warn(ctx, "product cache backfill failed", "sku", product.SKU, "error", err)
	}
	return nil
}

func (r *CompositeProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if err := r.primary.Update(ctx, product); err != nil {
		return err
	}
	// 更新后同步失效，下一次读取回填
	if err := r.cache.Invalidate(ctx, product); err != nil {
		logger.Warn(ctx, "product cache invalidation failed", "sku", product.SKU, "error", err)
	}
	return nil
}

func (r *CompositeProductRepository) GetByID(ctx context.Context, id uint) (*domain.Product, error) {
	if p, err := r.cache.Get(ctx, id); err == nil && p != nil {
		return p, nil
	}
	p, err := r.primary.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, p); err != nil {
		logger.Warn(ctx, "product cache backfill failed", "sku", p.SKU, "error", err)
	}
	return p, nil
}

func (r *CompositeProductRepository) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	if p, err := r.cache.GetBySKU(ctx, sku); err == nil && p != nil {
		return p, nil
	}
	p, err := r.primary.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, p); err != nil {
		logger.Warn(ctx, "product cache backfill failed", "sku", p.SKU, "error", err)
	}
	return p, nil
}

func (r *CompositeProductRepository) List(ctx context.Context, category string, activeOnly bool, offset, limit int) ([]*domain.Product, int, error) {
	return r.primary.List(ctx, category, activeOnly, offset, limit)
}

func (r *CompositeProductRepository) Search(ctx context.Context, keyword string, offset, limit int) ([]*domain.Product, int, error) {
	return r.primary.Search(ctx, keyword, offset, limit)
}

func (r *CompositeProductRepository) ListLowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	return r.primary.ListLowStock(ctx, threshold)
}

func (r *CompositeProductRepository) Delete(ctx context.Context, id uint) error {
	p, err := r.primary.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.primary.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.cache.Invalidate(ctx, p); err != nil {
		logger.Warn(ctx, "product cache invalidation failed", "sku", p.SKU, "error", err)
	}
	return nil
}
