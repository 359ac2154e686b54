package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/provisionstore/internal/checkout/application"
	"github.com/wyfcoding/provisionstore/internal/checkout/domain"
)

type memoryOrderRepo struct {
	nextID uint
	byNum  map[string]*domain.Order
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{nextID: 1, byNum: make(map[string]*domain.Order)}
}

func (r *memoryOrderRepo) Save(ctx context.Context, order *domain.Order) error {
	order.ID = r.nextID
	r.nextID++
	r.byNum[order.OrderNumber] = order
	return nil
}

func (r *memoryOrderRepo) Update(ctx context.Context, order *domain.Order) error {
	if _, ok := r.byNum[order.OrderNumber]; !ok {
		return domain.ErrOrderNotFound
	}
	r.byNum[order.OrderNumber] = order
	return nil
}

func (r *memoryOrderRepo) GetByID(ctx context.Context, id uint) (*domain.Order, error) {
	for _, o := range r.byNum {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *memoryOrderRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	o, ok := r.byNum[number]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (r *memoryOrderRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*domain.Order, int, error) {
	out := make([]*domain.Order, 0)
	for _, o := range r.byNum {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (r *memoryOrderRepo) ListByStatus(ctx context.Context, status domain.OrderStatus, offset, limit int) ([]*domain.Order, int, error) {
	out := make([]*domain.Order, 0)
	for _, o := range r.byNum {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

type stubCart struct {
	quote   *application.CartQuote
	lines   []application.CartLine
	issues  []string
	cleared bool
}

func (c *stubCart) Validate(ctx context.Context, userID string, v application.CartValidation) (*application.CartQuote, []application.CartLine, []string, error) {
	if len(c.issues) > 0 {
		return nil, nil, c.issues, nil
	}
	return c.quote, c.lines, nil, nil
}

func (c *stubCart) Clear(ctx context.Context, userID string) error {
	c.cleared = true
	return nil
}

type stubReserver struct {
	reserved map[string][]application.StockLine
	released map[string][]application.StockLine
	failNext error
}

func newStubReserver() *stubReserver {
	return &stubReserver{
		reserved: make(map[string][]application.StockLine),
		released: make(map[string][]application.StockLine),
	}
}

func (r *stubReserver) Reserve(ctx context.Context, reference string, lines []application.StockLine) error {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	r.reserved[reference] = lines
	return nil
}

func (r *stubReserver) Release(ctx context.Context, reference string, lines []application.StockLine) error {
	r.released[reference] = lines
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return nil
}

type nopTxm struct{}

func (nopTxm) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func validCart() *stubCart {
	return &stubCart{
		quote: &application.CartQuote{
			Currency:      "NGN",
			Region:        "Lagos",
			EstimatedDays: 1,
			Subtotal:      decimal.NewFromInt(17000),
			ShippingFee:   decimal.NewFromInt(1500),
			Tax:           decimal.NewFromFloat(1275),
			Discount:      decimal.Zero,
			Total:         decimal.NewFromFloat(19775),
		},
		lines: []application.CartLine{
			{ProductID: 1, SKU: "RICE-5KG", Name: "Rice 5kg", UnitPrice: decimal.NewFromInt(8500), Quantity: 2},
		},
	}
}

func newCheckoutService(cart *stubCart, reserver *stubReserver) (*application.CheckoutCommandService, *memoryOrderRepo) {
	orders := newMemoryOrderRepo()
	svc := application.NewCheckoutCommandService(
		orders, cart, reserver, nopPublisher{}, nopTxm{},
		[]string{"paystack", "flutterwave", "bank_transfer", "ussd", "pay_on_delivery"})
	return svc, orders
}

func validCommand() application.CreateOrderCommand {
	return application.CreateOrderCommand{
		UserID:        "u-1",
		Region:        "Lagos",
		Address:       "12 Allen Avenue, Ikeja",
		Phone:         "+2348012345678",
		PaymentMethod: "Paystack",
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending order without touching stock", func(t *testing.T) {
		cart := validCart()
		reserver := newStubReserver()
		svc, _ := newCheckoutService(cart, reserver)

		order, err := svc.CreateOrder(ctx, validCommand())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, order.Status)
		assert.Equal(t, "paystack", order.PaymentMethod)
		assert.Equal(t, "19775", order.Total.String())
		require.Len(t, order.Items, 1)
		assert.Equal(t, "17000", order.Items[0].LineTotal.String())

		// 下单不预留库存，购物车被清空
		assert.Empty(t, reserver.reserved)
		assert.False(t, order.StockReserved)
		assert.True(t, cart.cleared)
	})

	t.Run("rejects unsupported payment method", func(t *testing.T) {
		svc, _ := newCheckoutService(validCart(), newStubReserver())
		cmd := validCommand()
		cmd.PaymentMethod = "bitcoin"

		_, err := svc.CreateOrder(ctx, cmd)
		assert.ErrorIs(t, err, domain.ErrUnsupportedPaymentMethod)
	})

	t.Run("rejects bad phone", func(t *testing.T) {
		svc, _ := newCheckoutService(validCart(), newStubReserver())
		cmd := validCommand()
		cmd.Phone = "08012345678"

		_, err := svc.CreateOrder(ctx, cmd)
		assert.ErrorIs(t, err, domain.ErrInvalidPhone)
	})

	t.Run("surfaces validation issues", func(t *testing.T) {
		cart := &stubCart{issues: []string{"RICE-5KG: only 1 in stock, cart has 2"}}
		svc, _ := newCheckoutService(cart, newStubReserver())

		_, err := svc.CreateOrder(ctx, validCommand())
		require.ErrorIs(t, err, application.ErrCartInvalid)
		assert.Contains(t, err.Error(), "only 1 in stock")
	})
}

func TestReserveStock(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves once", func(t *testing.T) {
		reserver := newStubReserver()
		svc, _ := newCheckoutService(validCart(), reserver)

		order, err := svc.CreateOrder(ctx, validCommand())
		require.NoError(t, err)

		order, err = svc.ReserveStock(ctx, order.OrderNumber)
		require.NoError(t, err)
		assert.True(t, order.StockReserved)
		require.Len(t, reserver.reserved[order.OrderNumber], 1)
		assert.Equal(t, 2, reserver.reserved[order.OrderNumber][0].Quantity)

		_, err = svc.ReserveStock(ctx, order.OrderNumber)
		assert.ErrorIs(t, err, domain.ErrStockAlreadyReserved)
	})

	t.Run("propagates reservation failure", func(t *testing.T) {
		reserver := newStubReserver()
		reserver.failNext = errors.New("insufficient stock")
		svc, _ := newCheckoutService(validCart(), reserver)

		order, err := svc.CreateOrder(ctx, validCommand())
		require.NoError(t, err)

		_, err = svc.ReserveStock(ctx, order.OrderNumber)
		require.Error(t, err)

		stored, err := svc.CancelOrder(ctx, order.OrderNumber, "could not reserve")
		require.NoError(t, err)
		assert.False(t, stored.StockReserved)
	})
}

func TestConfirmPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves then confirms when not yet reserved", func(t *testing.T) {
		reserver := newStubReserver()
		svc, _ := newCheckoutService(validCart(), reserver)

		order, err := svc.CreateOrder(ctx, validCommand())
		require.NoError(t, err)

		order, err = svc.ConfirmPayment(ctx, order.OrderNumber, "PAY-77")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusConfirmed, order.Status)
		assert.Equal(t, "PAY-77", order.PaymentRef)
		assert.True(t, order.StockReserved)
		assert.Contains(t, reserver.reserved, order.OrderNumber)
	})

	t.Run("cannot confirm twice", func(t *testing.T) {
		svc, _ := newCheckoutService(validCart(), newStubReserver())

		order, err := svc.CreateOrder(ctx, validCommand())
		require.NoError(t, err)

		_, err = svc.ConfirmPayment(ctx, order.OrderNumber, "PAY-1")
		require.NoError(t, err)
		_, err = svc.ConfirmPayment(ctx, order.OrderNumber, "PAY-2")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCheckoutService(validCart(), newStubReserver())

	order, err := svc.CreateOrder(ctx, validCommand())
	require.NoError(t, err)
	_, err = svc.ConfirmPayment(ctx, order.OrderNumber, "PAY-1")
	require.NoError(t, err)

	for _, target := range []domain.OrderStatus{
		domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered,
	} {
		order, err = svc.UpdateStatus(ctx, order.OrderNumber, target, "moved along")
		require.NoError(t, err)
		assert.Equal(t, target, order.Status)
	}

	// delivered 后只能退款
	_, err = svc.UpdateStatus(ctx, order.OrderNumber, domain.StatusShipped, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	order, err = svc.UpdateStatus(ctx, order.OrderNumber, domain.StatusRefunded, "customer refund")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, order.Status)
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelling reserved order releases stock", func(t *testing.T) {
		reserver := newStubReserver()
		svc, _ := newCheckoutService(validCart(), reserver)

		order, err := svc.CreateOrder(ctx, validCommand())
		require.NoError(t, err)
		_, err = svc.ReserveStock(ctx, order.OrderNumber)
		require.NoError(t, err)

		order, err = svc.CancelOrder(ctx, order.OrderNumber, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, order.Status)
		assert.False(t, order.StockReserved)
		assert.Contains(t, reserver.released, order.OrderNumber)
	})

	t.Run("cancelling unreserved order skips release", func(t *testing.T) {
		reserver := newStubReserver()
		svc, _ := newCheckoutService(validCart(), reserver)

		order, err := svc.CreateOrder(ctx, validCommand())
		require.NoError(t, err)

		order, err = svc.CancelOrder(ctx, order.OrderNumber, "no longer needed")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, order.Status)
		assert.Empty(t, reserver.released)
	})

	t.Run("shipped order cannot be cancelled", func(t *testing.T) {
		svc, _ := newCheckoutService(validCart(), newStubReserver())

		order, err := svc.CreateOrder(ctx, validCommand())
		require.NoError(t, err)
		_, err = svc.ConfirmPayment(ctx, order.OrderNumber, "PAY-1")
		require.NoError(t, err)
		_, err = svc.UpdateStatus(ctx, order.OrderNumber, domain.StatusProcessing, "")
		require.NoError(t, err)
		_, err = svc.UpdateStatus(ctx, order.OrderNumber, domain.StatusShipped, "")
		require.NoError(t, err)

		_, err = svc.CancelOrder(ctx, order.OrderNumber, "too late")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}
