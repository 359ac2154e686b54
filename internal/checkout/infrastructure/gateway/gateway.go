// 结算上下文的进程内适配器：购物车校验入口与库存预留入口。
package gateway

import (
	"context"

	cartapp "github.com/wyfcoding/provisionstore/internal/cart/application"
	"github.com/wyfcoding/provisionstore/internal/checkout/application"
	invapp "github.com/wyfcoding/provisionstore/internal/inventory/application"
)

type cartGateway struct {
	commands *cartapp.CartCommandService
}

// NewCartGateway 创建购物车适配器
func NewCartGateway(commands *cartapp.CartCommandService) application.CheckoutCart {
	return &cartGateway{commands: commands}
}

func (g *cartGateway) Validate(ctx context.Context, userID string, v application.CartValidation) (*application.CartQuote, []application.CartLine, []string, error) {
	result, err := g.commands.ValidateForCheckout(ctx, userID, cartapp.CheckoutContext{
		Region:        v.Region,
		DiscountCode:  v.DiscountCode,
		PaymentMethod: v.PaymentMethod,
		CustomerPhone: v.Phone,
		Address:       v.Address,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if !result.Valid {
		return nil, nil, result.Issues, nil
	}

	// 订单行采用校验时刻的计价快照，与报价同源
	lines := make([]application.CartLine, 0, len(result.Lines))
	for _, line := range result.Lines {
		lines = append(lines, application.CartLine{
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}

	quote := &application.CartQuote{
		Currency:      result.Quote.Currency,
		Region:        result.Quote.Region,
		EstimatedDays: result.Quote.EstimatedDays,
		Subtotal:      result.Quote.Subtotal,
		ShippingFee:   result.Quote.ShippingFee,
		Tax:           result.Quote.Tax,
		Discount:      result.Quote.Discount,
		Total:         result.Quote.Total,
	}
	return quote, lines, nil, nil
}

func (g *cartGateway) Clear(ctx context.Context, userID string) error {
	return g.commands.ClearCart(ctx, userID)
}

type stockGateway struct {
	commands *invapp.InventoryCommandService
}

// NewStockGateway 创建库存预留适配器
func NewStockGateway(commands *invapp.InventoryCommandService) application.StockReserver {
	return &stockGateway{commands: commands}
}

func (g *stockGateway) Reserve(ctx context.Context, reference string, lines []application.StockLine) error {
	_, err := g.commands.Reserve(ctx, reference, toReserveLines(lines))
	return err
}

func (g *stockGateway) Release(ctx context.Context, reference string, lines []application.StockLine) error {
	_, err := g.commands.Release(ctx, reference, toReserveLines(lines))
	return err
}

func toReserveLines(lines []application.StockLine) []invapp.ReserveLine {
	out := make([]invapp.ReserveLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, invapp.ReserveLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}
