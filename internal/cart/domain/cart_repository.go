package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CartRepository 购物车仓储接口，快照整存整取
type CartRepository interface {
	GetByUserID(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, userID string) error
}

// ProductSnapshot 商品在校验时刻的快照
type ProductSnapshot struct {
	ID       uint
	SKU      string
	Name     string
	Price    decimal.Decimal
	Stock    int
	Active   bool
	Discount decimal.Decimal
}

// DiscountedPrice 折后单价
func (p *ProductSnapshot) DiscountedPrice() decimal.Decimal {
	if p.Discount.IsZero() {
		return p.Price
	}
	factor := decimal.NewFromInt(1).Sub(p.Discount)
	return p.Price.Mul(factor).Round(2)
}

// ProductGateway 商品信息入口，由库存上下文适配实现
type ProductGateway interface {
	GetProduct(ctx context.Context, productID uint) (*ProductSnapshot, error)
}
