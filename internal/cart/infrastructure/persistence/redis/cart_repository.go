// 购物车 Redis 仓储，整车 JSON 快照存于 cart:{userID}，带滑动过期。
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wyfcoding/provisionstore/internal/cart/domain"
	"github.com/wyfcoding/provisionstore/pkg/cache"
)

const cartKeyPrefix = "cart:"

type cartRepository struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewCartRepository 创建购物车 Redis 仓储
func NewCartRepository(c *cache.RedisCache, ttl time.Duration) domain.CartRepository {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &cartRepository{cache: c, ttl: ttl}
}

func cartKey(userID string) string { return cartKeyPrefix + userID }

// GetByUserID 取出整车快照。key 不存在映射为 ErrCartNotFound，
// 其余 Redis 错误原样上抛，不得退化成一辆空车。
func (r *cartRepository) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	val, err := r.cache.Get(ctx, cartKey(userID))
	if err != nil {
		return nil, err
	}
	if val == "" {
		return nil, domain.ErrCartNotFound
	}
	var cart domain.Cart
	if err := json.Unmarshal([]byte(val), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	return r.cache.SetJSON(ctx, cartKey(cart.UserID), cart, r.ttl)
}

func (r *cartRepository) Delete(ctx context.Context, userID string) error {
	return r.cache.Delete(ctx, cartKey(userID))
}
