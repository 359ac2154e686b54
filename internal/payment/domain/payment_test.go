package domain

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountInKobo(t *testing.T) {
	p := Payment{Amount: decimal.NewFromFloat(8500)}
	assert.Equal(t, int64(850000), p.AmountInKobo())

	p.Amount = decimal.NewFromFloat(199.99)
	assert.Equal(t, int64(19999), p.AmountInKobo())

	p.Amount = decimal.NewFromFloat(0.5)
	assert.Equal(t, int64(50), p.AmountInKobo())
}

func TestPaymentFinalization(t *testing.T) {
	t.Run("mark success", func(t *testing.T) {
		p := Payment{Status: PaymentPending}
		require.NoError(t, p.MarkSuccess("flw-123"))
		assert.Equal(t, PaymentSuccess, p.Status)
		assert.Equal(t, "flw-123", p.ProviderRef)
		require.NotNil(t, p.VerifiedAt)
		assert.True(t, p.IsFinal())
	})

	t.Run("mark failed", func(t *testing.T) {
		p := Payment{Status: PaymentPending}
		require.NoError(t, p.MarkFailed("card declined"))
		assert.Equal(t, PaymentFailed, p.Status)
		assert.Equal(t, "card declined", p.FailureReason)
		assert.True(t, p.IsFinal())
	})

	t.Run("final state is sticky", func(t *testing.T) {
		p := Payment{Status: PaymentPending}
		require.NoError(t, p.MarkSuccess(""))
		assert.ErrorIs(t, p.MarkFailed("too late"), ErrPaymentFinalized)
		assert.ErrorIs(t, p.MarkSuccess("again"), ErrPaymentFinalized)
		assert.Equal(t, PaymentSuccess, p.Status)
	})

	t.Run("empty provider ref keeps existing", func(t *testing.T) {
		p := Payment{Status: PaymentPending, ProviderRef: "original"}
		require.NoError(t, p.MarkSuccess(""))
		assert.Equal(t, "original", p.ProviderRef)
	})
}

type fakeProvider struct {
	name string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Initialize(ctx context.Context, payment *Payment) (*InitResult, error) {
	return &InitResult{}, nil
}

func (p *fakeProvider) Verify(ctx context.Context, payment *Payment) (*Result, error) {
	return &Result{State: ResultPending}, nil
}

func TestProviderRegistry(t *testing.T) {
	registry := NewProviderRegistry()
	registry.Register(&fakeProvider{name: "Paystack"})
	registry.Register(&fakeProvider{name: "ussd"})

	// 名称按小写归一，查找忽略大小写
	p, err := registry.Get("paystack")
	require.NoError(t, err)
	assert.Equal(t, "Paystack", p.Name())

	p, err = registry.Get("USSD")
	require.NoError(t, err)
	assert.Equal(t, "ussd", p.Name())

	_, err = registry.Get("bitcoin")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	assert.ElementsMatch(t, []string{"paystack", "ussd"}, registry.Names())
}
