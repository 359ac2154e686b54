package domain

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePhone(t *testing.T) {
	valid := []string{"+2348012345678", "2348012345678", "+2349098765432"}
	for _, phone := range valid {
		assert.NoError(t, ValidatePhone(phone), phone)
	}

	invalid := []string{"", "08012345678", "+234801234567", "+23480123456789", "+1348012345678", "+234abc1234567"}
	for _, phone := range invalid {
		assert.ErrorIs(t, ValidatePhone(phone), ErrInvalidPhone, phone)
	}
}

func newPendingOrder() *Order {
	return &Order{
		OrderNumber: NewOrderNumber(),
		UserID:      "u-1",
		Status:      StatusPending,
		Phone:       "+2348012345678",
		Address:     "12 Allen Avenue, Ikeja",
		Total:       decimal.NewFromInt(10000),
		Items:       []OrderItem{{ProductID: 1, SKU: "RICE-5KG", Quantity: 1}},
	}
}

func TestOrderLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("full happy path", func(t *testing.T) {
		order := newPendingOrder()

		require.NoError(t, order.Confirm(ctx, "PAY-1"))
		assert.Equal(t, StatusConfirmed, order.Status)
		assert.Equal(t, "PAY-1", order.PaymentRef)

		require.NoError(t, order.StartProcessing(ctx))
		require.NoError(t, order.Ship(ctx))
		require.NoError(t, order.Deliver(ctx))
		assert.Equal(t, StatusDelivered, order.Status)
		assert.True(t, order.IsTerminal())
	})

	t.Run("delivered order can be refunded", func(t *testing.T) {
		order := newPendingOrder()
		require.NoError(t, order.Confirm(ctx, "PAY-1"))
		require.NoError(t, order.StartProcessing(ctx))
		require.NoError(t, order.Ship(ctx))
		require.NoError(t, order.Deliver(ctx))

		require.NoError(t, order.Refund(ctx))
		assert.Equal(t, StatusRefunded, order.Status)
	})

	t.Run("illegal transitions rejected", func(t *testing.T) {
		order := newPendingOrder()
		assert.ErrorIs(t, order.Ship(ctx), ErrInvalidTransition)
		assert.ErrorIs(t, order.Deliver(ctx), ErrInvalidTransition)
		assert.ErrorIs(t, order.Refund(ctx), ErrInvalidTransition)
		assert.Equal(t, StatusPending, order.Status)
	})

	t.Run("shipped order cannot be cancelled", func(t *testing.T) {
		order := newPendingOrder()
		require.NoError(t, order.Confirm(ctx, "PAY-1"))
		require.NoError(t, order.StartProcessing(ctx))
		require.NoError(t, order.Ship(ctx))

		assert.False(t, order.CanCancel())
		assert.ErrorIs(t, order.Cancel(ctx, "changed my mind"), ErrInvalidTransition)
	})

	t.Run("cancel allowed before shipping", func(t *testing.T) {
		for _, setup := range []func(*Order) error{
			func(o *Order) error { return nil },
			func(o *Order) error { return o.Confirm(ctx, "PAY-1") },
			func(o *Order) error {
				if err := o.Confirm(ctx, "PAY-1"); err != nil {
					return err
				}
				return o.StartProcessing(ctx)
			},
		} {
			order := newPendingOrder()
			require.NoError(t, setup(order))
			assert.True(t, order.CanCancel())
			require.NoError(t, order.Cancel(ctx, "out of budget"))
			assert.Equal(t, StatusCancelled, order.Status)
			assert.Equal(t, "out of budget", order.CancelReason)
		}
	})
}

func TestOrderValidate(t *testing.T) {
	t.Run("valid order", func(t *testing.T) {
		assert.NoError(t, newPendingOrder().Validate())
	})

	t.Run("no items", func(t *testing.T) {
		order := newPendingOrder()
		order.Items = nil
		assert.ErrorIs(t, order.Validate(), ErrEmptyOrder)
	})

	t.Run("bad phone", func(t *testing.T) {
		order := newPendingOrder()
		order.Phone = "12345"
		assert.ErrorIs(t, order.Validate(), ErrInvalidPhone)
	})

	t.Run("missing address", func(t *testing.T) {
		order := newPendingOrder()
		order.Address = ""
		assert.Error(t, order.Validate())
	})
}

func TestMarkStockReserved(t *testing.T) {
	order := newPendingOrder()
	require.NoError(t, order.MarkStockReserved())
	assert.True(t, order.StockReserved)
	assert.ErrorIs(t, order.MarkStockReserved(), ErrStockAlreadyReserved)
}

func TestAppendTracking(t *testing.T) {
	order := newPendingOrder()
	order.AppendTracking("order created")
	require.Len(t, order.Tracking, 1)
	assert.Equal(t, string(StatusPending), order.Tracking[0].Status)
	assert.Equal(t, "order created", order.Tracking[0].Note)
}
