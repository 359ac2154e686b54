package application_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/provisionstore/internal/payment/application"
	"github.com/wyfcoding/provisionstore/internal/payment/domain"
)

type memoryPaymentRepo struct {
	byRef map[string]*domain.Payment
}

func newMemoryPaymentRepo() *memoryPaymentRepo {
	return &memoryPaymentRepo{byRef: make(map[string]*domain.Payment)}
}

func (r *memoryPaymentRepo) Save(ctx context.Context, payment *domain.Payment) error {
	clone := *payment
	r.byRef[payment.Reference] = &clone
	return nil
}

func (r *memoryPaymentRepo) Update(ctx context.Context, payment *domain.Payment) error {
	if _, ok := r.byRef[payment.Reference]; !ok {
		return domain.ErrPaymentNotFound
	}
	clone := *payment
	r.byRef[payment.Reference] = &clone
	return nil
}

func (r *memoryPaymentRepo) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	p, ok := r.byRef[reference]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *memoryPaymentRepo) ListByOrder(ctx context.Context, orderNumber string) ([]*domain.Payment, error) {
	out := make([]*domain.Payment, 0)
	for _, p := range r.byRef {
		if p.OrderNumber == orderNumber {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

type scriptedProvider struct {
	name   string
	init   domain.InitResult
	result domain.Result
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Initialize(ctx context.Context, payment *domain.Payment) (*domain.InitResult, error) {
	init := p.init
	return &init, nil
}

func (p *scriptedProvider) Verify(ctx context.Context, payment *domain.Payment) (*domain.Result, error) {
	result := p.result
	return &result, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return nil
}

func newPaymentService(providers ...domain.Provider) (*application.PaymentCommandService, *memoryPaymentRepo, *domain.ProviderRegistry) {
	repo := newMemoryPaymentRepo()
	registry := domain.NewProviderRegistry()
	for _, p := range providers {
		registry.Register(p)
	}
	svc := application.NewPaymentCommandService(repo, registry, nopPublisher{}, slog.Default())
	return svc, repo, registry
}

func initCommand(method string) application.InitializePaymentCommand {
	return application.InitializePaymentCommand{
		OrderNumber: "ORD-1001",
		UserID:      "u-1",
		Email:       "ada@example.com",
		Method:      method,
		Amount:      decimal.NewFromInt(19775),
	}
}

func TestInitializePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("online provider returns authorize url", func(t *testing.T) {
		svc, repo, _ := newPaymentService(&scriptedProvider{
			name: "paystack",
			init: domain.InitResult{ProviderRef: "ps-1", AuthorizeURL: "https://checkout.paystack.com/ps-1"},
		})

		payment, err := svc.InitializePayment(ctx, initCommand("Paystack"))
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, payment.Status)
		assert.Equal(t, "paystack", payment.Method)
		assert.Equal(t, "NGN", payment.Currency)
		assert.Equal(t, "https://checkout.paystack.com/ps-1", payment.AuthorizeURL)
		assert.Contains(t, payment.Reference, "PAY-")

		stored, err := repo.GetByReference(ctx, payment.Reference)
		require.NoError(t, err)
		assert.Equal(t, "ORD-1001", stored.OrderNumber)
	})

	t.Run("offline provider returns instructions", func(t *testing.T) {
		svc, _, _ := newPaymentService(&scriptedProvider{
			name: "bank_transfer",
			init: domain.InitResult{Instructions: "Transfer NGN 19775.00 to 0123456789"},
		})

		payment, err := svc.InitializePayment(ctx, initCommand("bank_transfer"))
		require.NoError(t, err)
		assert.Empty(t, payment.AuthorizeURL)
		assert.Contains(t, payment.Instructions, "0123456789")
	})

	t.Run("unknown method rejected", func(t *testing.T) {
		svc, _, _ := newPaymentService()
		_, err := svc.InitializePayment(ctx, initCommand("bitcoin"))
		assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		svc, _, _ := newPaymentService(&scriptedProvider{name: "paystack"})
		cmd := initCommand("paystack")
		cmd.Amount = decimal.Zero
		_, err := svc.InitializePayment(ctx, cmd)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("success result finalizes payment", func(t *testing.T) {
		provider := &scriptedProvider{
			name:   "paystack",
			result: domain.Result{State: domain.ResultSuccess, ProviderRef: "ps-99"},
		}
		svc, repo, _ := newPaymentService(provider)

		payment, err := svc.InitializePayment(ctx, initCommand("paystack"))
		require.NoError(t, err)

		verified, err := svc.VerifyPayment(ctx, payment.Reference)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentSuccess, verified.Status)
		assert.Equal(t, "ps-99", verified.ProviderRef)

		stored, _ := repo.GetByReference(ctx, payment.Reference)
		assert.Equal(t, domain.PaymentSuccess, stored.Status)
	})

	t.Run("failed result records reason", func(t *testing.T) {
		provider := &scriptedProvider{
			name:   "flutterwave",
			result: domain.Result{State: domain.ResultFailed, Message: "card declined"},
		}
		svc, _, _ := newPaymentService(provider)

		payment, err := svc.InitializePayment(ctx, initCommand("flutterwave"))
		require.NoError(t, err)

		verified, err := svc.VerifyPayment(ctx, payment.Reference)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentFailed, verified.Status)
		assert.Equal(t, "card declined", verified.FailureReason)
	})

	t.Run("pending result leaves payment open", func(t *testing.T) {
		provider := &scriptedProvider{
			name:   "ussd",
			result: domain.Result{State: domain.ResultPending},
		}
		svc, repo, _ := newPaymentService(provider)

		payment, err := svc.InitializePayment(ctx, initCommand("ussd"))
		require.NoError(t, err)

		verified, err := svc.VerifyPayment(ctx, payment.Reference)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, verified.Status)

		stored, _ := repo.GetByReference(ctx, payment.Reference)
		assert.False(t, stored.IsFinal())
	})

	t.Run("verify is idempotent after final state", func(t *testing.T) {
		provider := &scriptedProvider{
			name:   "paystack",
			result: domain.Result{State: domain.ResultSuccess, ProviderRef: "ps-1"},
		}
		svc, _, _ := newPaymentService(provider)

		payment, err := svc.InitializePayment(ctx, initCommand("paystack"))
		require.NoError(t, err)

		_, err = svc.VerifyPayment(ctx, payment.Reference)
		require.NoError(t, err)

		// 渠道结果翻转也不再改变终态
		provider.result = domain.Result{State: domain.ResultFailed, Message: "late reversal"}
		verified, err := svc.VerifyPayment(ctx, payment.Reference)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentSuccess, verified.Status)
	})

	t.Run("unknown reference", func(t *testing.T) {
		svc, _, _ := newPaymentService()
		_, err := svc.VerifyPayment(ctx, "PAY-404")
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})
}
