// 库存上下文的进程内适配器，购物车经由它读取商品快照。
package gateway

import (
	"context"

	cartdomain "github.com/wyfcoding/provisionstore/internal/cart/domain"
	invapp "github.com/wyfcoding/provisionstore/internal/inventory/application"
)

type inventoryGateway struct {
	queries *invapp.InventoryQueryService
}

// NewInventoryGateway 创建库存适配器
func NewInventoryGateway(queries *invapp.InventoryQueryService) cartdomain.ProductGateway {
	return &inventoryGateway{queries: queries}
}

func (g *inventoryGateway) GetProduct(ctx context.Context, productID uint) (*cartdomain.ProductSnapshot, error) {
	product, err := g.queries.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &cartdomain.ProductSnapshot{
		ID:       product.ID,
		SKU:      product.SKU,
		Name:     product.Name,
		Price:    product.Price,
		Stock:    product.Stock,
		Active:   product.Active,
		Discount: product.Discount,
	}, nil
}
