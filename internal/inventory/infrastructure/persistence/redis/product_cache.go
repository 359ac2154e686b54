// 商品读缓存，JSON 快照存于 Redis，key 形如 inventory:product:{id}。
// SKU 通过二级索引 key 映射到商品 ID。
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/wyfcoding/provisionstore/internal/inventory/domain"
	"github.com/wyfcoding/provisionstore/pkg/cache"
)

const (
	productKeyPrefix = "inventory:product:"
	skuKeyPrefix     = "inventory:sku:"
)

// ProductCache 商品 Redis 缓存
type ProductCache struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewProductCache 创建商品缓存实例
func NewProductCache(c *cache.RedisCache, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ProductCache{cache: c, ttl: ttl}
}

func productKey(id uint) string { return fmt.Sprintf("%s%d", productKeyPrefix, id) }
func skuKey(sku string) string  { return skuKeyPrefix + sku }

// Get 按ID读取缓存的商品
func (pc *ProductCache) Get(ctx context.Context, id uint) (*domain.Product, error) {
	var p domain.Product
	if err := pc.cache.GetJSON(ctx, productKey(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBySKU 按SKU读取缓存的商品
func (pc *ProductCache) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	idStr, err := pc.cache.Get(ctx, skuKey(sku))
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return nil, err
	}
	return pc.Get(ctx, uint(id))
}

// Set 写入商品快照并维护SKU索引
func (pc *ProductCache) Set(ctx context.Context, product *domain.Product) error {
	if err := pc.cache.SetJSON(ctx, productKey(product.ID), product, pc.ttl); err != nil {
		return err
	}
	return pc.cache.Set(ctx, skuKey(product.SKU), strconv.FormatUint(uint64(product.ID), 10), pc.ttl)
}

// Invalidate 删除商品缓存
func (pc *ProductCache) Invalidate(ctx context.Context, product *domain.Product) error {
	return pc.cache.Delete(ctx, productKey(product.ID), skuKey(product.SKU))
}
