package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/provisionstore/internal/cart/domain"
)

// CartQueryService 购物车查询服务
type CartQueryService struct {
	carts    domain.CartRepository
	products domain.ProductGateway
	pricing  *domain.PricingEngine
}

// NewCartQueryService 创建购物车查询服务实例
func NewCartQueryService(carts domain.CartRepository, products domain.ProductGateway, pricing *domain.PricingEngine) *CartQueryService {
	return &CartQueryService{carts: carts, products: products, pricing: pricing}
}

// GetCart 获取购物车，不存在返回空车，存储故障上抛
func (s *CartQueryService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return domain.NewCart(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// GetQuote 按目录当前价格对购物车报价，未给出的参数回退到购物车上保存的选择
func (s *CartQueryService) GetQuote(ctx context.Context, userID, regionName, discountCode string) (*domain.Quote, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil, domain.ErrCartEmpty
	}
	if err != nil {
		return nil, err
	}
	if regionName == "" {
		regionName = cart.Region
	}
	if discountCode == "" {
		discountCode = cart.DiscountCode
	}
	lines, err := priceCartLines(ctx, s.products, cart)
	if err != nil {
		return nil, err
	}
	return s.pricing.Quote(lines, regionName, discountCode)
}

// ListRegions 列出配送区域
func (s *CartQueryService) ListRegions(ctx context.Context) []domain.Region {
	return s.pricing.Regions()
}

// priceCartLines 逐条取商品当前快照，以折后价为条目计价
func priceCartLines(ctx context.Context, products domain.ProductGateway, cart *domain.Cart) ([]domain.PricedLine, error) {
	lines := make([]domain.PricedLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, err := products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.SKU, err)
		}
		unit := product.DiscountedPrice()
		lines = append(lines, domain.PricedLine{
			ProductID: item.ProductID,
			SKU:       product.SKU,
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return lines, nil
}
