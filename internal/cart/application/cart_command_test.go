package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/provisionstore/internal/cart/application"
	"github.com/wyfcoding/provisionstore/internal/cart/domain"
)

type memoryCartRepo struct {
	carts map[string]*domain.Cart
}

func newMemoryCartRepo() *memoryCartRepo {
	return &memoryCartRepo{carts: make(map[string]*domain.Cart)}
}

func (r *memoryCartRepo) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, ok := r.carts[userID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	clone := *cart
	clone.Items = append([]domain.CartItem(nil), cart.Items...)
	return &clone, nil
}

func (r *memoryCartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	clone := *cart
	clone.Items = append([]domain.CartItem(nil), cart.Items...)
	r.carts[cart.UserID] = &clone
	return nil
}

func (r *memoryCartRepo) Delete(ctx context.Context, userID string) error {
	delete(r.carts, userID)
	return nil
}

type stubGateway struct {
	products map[uint]*domain.ProductSnapshot
}

func (g *stubGateway) GetProduct(ctx context.Context, productID uint) (*domain.ProductSnapshot, error) {
	p, ok := g.products[productID]
	if !ok {
		return nil, errors.New("product not found")
	}
	clone := *p
	return &clone, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return nil
}

func testPricing() *domain.PricingEngine {
	return domain.NewPricingEngine(
		"NGN",
		decimal.NewFromFloat(0.075),
		decimal.NewFromInt(500),
		[]domain.Region{{Name: "Lagos", ShippingFee: decimal.NewFromInt(1500), EstimatedDays: 1}},
		map[string]decimal.Decimal{"FIRST10": decimal.NewFromFloat(0.10)},
	)
}

func newCartService(products map[uint]*domain.ProductSnapshot) (*application.CartCommandService, *memoryCartRepo, *stubGateway) {
	repo := newMemoryCartRepo()
	gateway := &stubGateway{products: products}
	svc := application.NewCartCommandService(repo, gateway, testPricing(), nopPublisher{},
		[]string{"paystack", "pay_on_delivery"})
	return svc, repo, gateway
}

// checkoutCtx 模拟结算请求随单携带的上下文
func checkoutCtx(region, code string) application.CheckoutContext {
	return application.CheckoutContext{
		Region:        region,
		DiscountCode:  code,
		PaymentMethod: "paystack",
		CustomerPhone: "+2348012345678",
		Address:       "12 Marina Road, Lagos",
	}
}

func snapshot(id uint, sku string, price float64, stock int) *domain.ProductSnapshot {
	return &domain.ProductSnapshot{
		ID:     id,
		SKU:    sku,
		Name:   "Product " + sku,
		Price:  decimal.NewFromFloat(price),
		Stock:  stock,
		Active: true,
	}
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("adds and merges within stock", func(t *testing.T) {
		svc, _, _ := newCartService(map[uint]*domain.ProductSnapshot{
			1: snapshot(1, "RICE-5KG", 8500, 10),
		})

		cart, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 3})
		require.NoError(t, err)
		assert.Equal(t, 3, cart.ItemCount())

		cart, err = svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 4})
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 7, cart.Items[0].Quantity)
	})

	t.Run("merged quantity cannot exceed stock", func(t *testing.T) {
		svc, _, _ := newCartService(map[uint]*domain.ProductSnapshot{
			1: snapshot(1, "RICE-5KG", 8500, 5),
		})

		_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 3})
		require.NoError(t, err)

		_, err = svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 3})
		require.ErrorIs(t, err, domain.ErrStockHeadroom)
		assert.Contains(t, err.Error(), "only 2 more can be added")
		assert.Contains(t, err.Error(), "5 in stock, 3 already in cart")
	})

	t.Run("options merge with new keys overriding", func(t *testing.T) {
		svc, _, _ := newCartService(map[uint]*domain.ProductSnapshot{
			1: snapshot(1, "RICE-5KG", 8500, 10),
		})

		_, err := svc.AddItem(ctx, application.AddItemCommand{
			UserID: "u-1", ProductID: 1, Quantity: 1,
			Options: map[string]string{"bag": "jute", "milling": "parboiled"},
		})
		require.NoError(t, err)

		cart, err := svc.AddItem(ctx, application.AddItemCommand{
			UserID: "u-1", ProductID: 1, Quantity: 1,
			Options: map[string]string{"bag": "plastic"},
		})
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, "plastic", cart.Items[0].Options["bag"])
		assert.Equal(t, "parboiled", cart.Items[0].Options["milling"])
		assert.False(t, cart.Items[0].AddedAt.IsZero())
	})

	t.Run("inactive product rejected", func(t *testing.T) {
		p := snapshot(1, "MILK-400G", 1800, 10)
		p.Active = false
		svc, _, _ := newCartService(map[uint]*domain.ProductSnapshot{1: p})

		_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 1})
		assert.Error(t, err)
	})
}

func TestUpdateItemQuantity(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCartService(map[uint]*domain.ProductSnapshot{
		1: snapshot(1, "RICE-5KG", 8500, 10),
	})

	_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	cart, err := svc.UpdateItemQuantity(ctx, "u-1", 1, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, cart.Items[0].Quantity)

	_, err = svc.UpdateItemQuantity(ctx, "u-1", 1, 11)
	assert.ErrorIs(t, err, domain.ErrStockHeadroom)

	cart, err = svc.UpdateItemQuantity(ctx, "u-1", 1, 0)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	// 负数与 0 一样视同移除
	_, err = svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	cart, err = svc.UpdateItemQuantity(ctx, "u-1", 1, -2)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestValidateForCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("valid cart yields quote", func(t *testing.T) {
		svc, _, _ := newCartService(map[uint]*domain.ProductSnapshot{
			1: snapshot(1, "RICE-5KG", 8500, 10),
		})
		_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 2})
		require.NoError(t, err)

		result, err := svc.ValidateForCheckout(ctx, "u-1", checkoutCtx("Lagos", "FIRST10"))
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Issues)
		require.NotNil(t, result.Quote)
		assert.Equal(t, "17000", result.Quote.Subtotal.String())
		assert.Equal(t, "1700", result.Quote.Discount.String())
	})

	t.Run("collects every issue instead of stopping at the first", func(t *testing.T) {
		svc, _, gateway := newCartService(map[uint]*domain.ProductSnapshot{
			1: snapshot(1, "RICE-5KG", 8500, 10),
			2: snapshot(2, "OIL-1L", 2500, 10),
		})
		_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 2})
		require.NoError(t, err)
		_, err = svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 2, Quantity: 4})
		require.NoError(t, err)

		// 商品1 库存跌至 1，商品2 下架
		gateway.products[1].Stock = 1
		gateway.products[2].Active = false

		result, err := svc.ValidateForCheckout(ctx, "u-1", checkoutCtx("Enugu", "NOSUCHCODE"))
		require.NoError(t, err)
		assert.False(t, result.Valid)
		require.Len(t, result.Issues, 4)
		assert.Contains(t, result.Issues[0], "only 1 in stock")
		assert.Contains(t, result.Issues[1], "no longer available")
		assert.Contains(t, result.Issues[2], "not supported")
		assert.Contains(t, result.Issues[3], "invalid")
	})

	t.Run("validation prices lines at the current catalog price", func(t *testing.T) {
		svc, repo, gateway := newCartService(map[uint]*domain.ProductSnapshot{
			1: snapshot(1, "RICE-5KG", 8500, 10),
		})
		_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 2})
		require.NoError(t, err)

		// 加车之后涨价，校验与报价立即跟随新价，购物车本身不变
		gateway.products[1].Price = decimal.NewFromFloat(9000)

		for i := 0; i < 2; i++ {
			result, err := svc.ValidateForCheckout(ctx, "u-1", checkoutCtx("Lagos", ""))
			require.NoError(t, err)
			assert.True(t, result.Valid)
			require.NotNil(t, result.Quote)
			assert.Equal(t, "18000", result.Quote.Subtotal.String())
			require.Len(t, result.Lines, 1)
			assert.Equal(t, "9000", result.Lines[0].UnitPrice.String())
		}

		stored, err := repo.GetByUserID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Items[0].Quantity)
	})

	t.Run("below minimum order", func(t *testing.T) {
		svc, _, _ := newCartService(map[uint]*domain.ProductSnapshot{
			1: snapshot(1, "SALT-500G", 250, 10),
		})
		_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 1})
		require.NoError(t, err)

		result, err := svc.ValidateForCheckout(ctx, "u-1", checkoutCtx("Lagos", ""))
		require.NoError(t, err)
		assert.False(t, result.Valid)
		require.Len(t, result.Issues, 1)
		assert.Contains(t, result.Issues[0], "below minimum order")
	})

	t.Run("empty cart invalid", func(t *testing.T) {
		svc, repo, _ := newCartService(nil)
		require.NoError(t, repo.Save(ctx, domain.NewCart("u-1")))

		result, err := svc.ValidateForCheckout(ctx, "u-1", checkoutCtx("Lagos", ""))
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Issues, "cart is empty")
	})

	t.Run("missing checkout context reported", func(t *testing.T) {
		svc, _, _ := newCartService(map[uint]*domain.ProductSnapshot{
			1: snapshot(1, "RICE-5KG", 8500, 10),
		})
		_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 2})
		require.NoError(t, err)

		result, err := svc.ValidateForCheckout(ctx, "u-1", application.CheckoutContext{})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Issues, "customer information is required")
		assert.Contains(t, result.Issues, "shipping address is required")
		assert.Contains(t, result.Issues, "delivery region not selected")
		assert.Contains(t, result.Issues, "payment method not selected")
	})

	t.Run("falls back to selections stored on the cart", func(t *testing.T) {
		svc, _, _ := newCartService(map[uint]*domain.ProductSnapshot{
			1: snapshot(1, "RICE-5KG", 8500, 10),
		})
		_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 2})
		require.NoError(t, err)

		_, err = svc.SetCustomer(ctx, "u-1", domain.Customer{Name: "Nkechi Obi", Phone: "+2348012345678"})
		require.NoError(t, err)
		_, err = svc.SetShippingAddress(ctx, "u-1", domain.Address{Street: "12 Marina Road", State: "Lagos"})
		require.NoError(t, err)
		_, err = svc.SetPaymentMethod(ctx, "u-1", "Paystack")
		require.NoError(t, err)
		_, err = svc.ApplyDiscountCode(ctx, "u-1", "first10")
		require.NoError(t, err)

		result, err := svc.ValidateForCheckout(ctx, "u-1", application.CheckoutContext{})
		require.NoError(t, err)
		assert.True(t, result.Valid)
		require.NotNil(t, result.Quote)
		assert.Equal(t, "Lagos", result.Quote.Region)
		assert.Equal(t, "1700", result.Quote.Discount.String())
	})
}

func TestGetQuoteReflectsCurrentCatalogPrices(t *testing.T) {
	ctx := context.Background()
	svc, repo, gateway := newCartService(map[uint]*domain.ProductSnapshot{
		1: snapshot(1, "OIL-1L", 1000, 10),
	})
	queries := application.NewCartQueryService(repo, gateway, testPricing())

	_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 1})
	require.NoError(t, err)

	quote, err := queries.GetQuote(ctx, "u-1", "Lagos", "")
	require.NoError(t, err)
	assert.Equal(t, "1000", quote.Subtotal.String())

	// 商品打五折后重新报价，无需改动购物车即生效
	gateway.products[1].Discount = decimal.NewFromFloat(0.50)
	quote, err = queries.GetQuote(ctx, "u-1", "Lagos", "")
	require.NoError(t, err)
	assert.Equal(t, "500", quote.Subtotal.String())
}

type failingCartRepo struct {
	err error
}

func (r *failingCartRepo) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	return nil, r.err
}

func (r *failingCartRepo) Save(ctx context.Context, cart *domain.Cart) error { return r.err }

func (r *failingCartRepo) Delete(ctx context.Context, userID string) error { return r.err }

func TestStorageFailuresSurface(t *testing.T) {
	ctx := context.Background()
	repoErr := errors.New("redis: connection refused")
	repo := &failingCartRepo{err: repoErr}
	gateway := &stubGateway{products: map[uint]*domain.ProductSnapshot{
		1: snapshot(1, "RICE-5KG", 8500, 10),
	}}
	svc := application.NewCartCommandService(repo, gateway, testPricing(), nopPublisher{},
		[]string{"paystack"})
	queries := application.NewCartQueryService(repo, gateway, testPricing())

	// 读失败不得退化成一辆空车去覆盖用户已有的购物车
	_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 1})
	assert.ErrorIs(t, err, repoErr)

	assert.ErrorIs(t, svc.ClearCart(ctx, "u-1"), repoErr)

	_, err = queries.GetCart(ctx, "u-1")
	assert.ErrorIs(t, err, repoErr)

	_, err = queries.GetQuote(ctx, "u-1", "Lagos", "")
	assert.ErrorIs(t, err, repoErr)
}

func TestCheckoutContextSetters(t *testing.T) {
	ctx := context.Background()

	t.Run("address auto selects region by state", func(t *testing.T) {
		svc, _, _ := newCartService(nil)
		cart, err := svc.SetShippingAddress(ctx, "u-1", domain.Address{Street: "5 Allen Avenue", State: "Lagos State"})
		require.NoError(t, err)
		assert.Equal(t, "Lagos", cart.Region)
	})

	t.Run("unmatched state leaves region unset", func(t *testing.T) {
		svc, _, _ := newCartService(nil)
		cart, err := svc.SetShippingAddress(ctx, "u-1", domain.Address{Street: "3 Zik Avenue", State: "Enugu"})
		require.NoError(t, err)
		assert.Empty(t, cart.Region)
	})

	t.Run("region and method must be in the configured sets", func(t *testing.T) {
		svc, _, _ := newCartService(nil)

		_, err := svc.SetDeliveryRegion(ctx, "u-1", "Enugu")
		assert.ErrorIs(t, err, domain.ErrUnknownRegion)

		cart, err := svc.SetDeliveryRegion(ctx, "u-1", "lagos")
		require.NoError(t, err)
		assert.Equal(t, "Lagos", cart.Region)

		_, err = svc.SetPaymentMethod(ctx, "u-1", "bitcoin")
		assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)

		cart, err = svc.SetPaymentMethod(ctx, "u-1", "Pay_On_Delivery")
		require.NoError(t, err)
		assert.Equal(t, "pay_on_delivery", cart.PaymentMethod)
	})

	t.Run("discount code applied upper-cased and removable", func(t *testing.T) {
		svc, _, _ := newCartService(nil)

		_, err := svc.ApplyDiscountCode(ctx, "u-1", "NOSUCHCODE")
		assert.ErrorIs(t, err, domain.ErrInvalidDiscountCode)

		cart, err := svc.ApplyDiscountCode(ctx, "u-1", "first10")
		require.NoError(t, err)
		assert.Equal(t, "FIRST10", cart.DiscountCode)

		cart, err = svc.RemoveDiscountCode(ctx, "u-1")
		require.NoError(t, err)
		assert.Empty(t, cart.DiscountCode)
	})

	t.Run("clear drops items and discount code but keeps selections", func(t *testing.T) {
		svc, repo, _ := newCartService(map[uint]*domain.ProductSnapshot{
			1: snapshot(1, "RICE-5KG", 8500, 10),
		})
		_, err := svc.AddItem(ctx, application.AddItemCommand{UserID: "u-1", ProductID: 1, Quantity: 2})
		require.NoError(t, err)
		_, err = svc.SetCustomer(ctx, "u-1", domain.Customer{Name: "Nkechi Obi"})
		require.NoError(t, err)
		_, err = svc.SetDeliveryRegion(ctx, "u-1", "Lagos")
		require.NoError(t, err)
		_, err = svc.ApplyDiscountCode(ctx, "u-1", "FIRST10")
		require.NoError(t, err)

		require.NoError(t, svc.ClearCart(ctx, "u-1"))

		stored, err := repo.GetByUserID(ctx, "u-1")
		require.NoError(t, err)
		assert.True(t, stored.IsEmpty())
		assert.Empty(t, stored.DiscountCode)
		require.NotNil(t, stored.Customer)
		assert.Equal(t, "Lagos", stored.Region)
	})
}
