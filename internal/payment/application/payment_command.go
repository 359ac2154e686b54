package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/provisionstore/internal/payment/domain"
)

// InitializePaymentCommand 发起支付命令
type InitializePaymentCommand struct {
	OrderNumber string
	UserID      string
	Email       string
	Method      string
	Amount      decimal.Decimal
	Currency    string
}

// PaymentCommandService 支付命令服务
type PaymentCommandService struct {
	payments  domain.PaymentRepository
	providers *domain.ProviderRegistry
	publisher domain.EventPublisher
	logger    *slog.Logger
}

func NewPaymentCommandService(
	payments domain.PaymentRepository,
	providers *domain.ProviderRegistry,
	publisher domain.EventPublisher,
	logger *slog.Logger,
) *PaymentCommandService {
	return &PaymentCommandService{
		payments:  payments,
		providers: providers,
		publisher: publisher,
		logger:    logger,
	}
}

// InitializePayment 创建支付单并调用渠道发起收款
func (s *PaymentCommandService) InitializePayment(ctx context.Context, cmd InitializePaymentCommand) (*domain.Payment, error) {
	if cmd.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	provider, err := s.providers.Get(cmd.Method)
	if err != nil {
		return nil, err
	}

	currency := cmd.Currency
	if currency == "" {
		currency = "NGN"
	}
	payment := &domain.Payment{
		Reference:   domain.NewPaymentReference(),
		OrderNumber: cmd.OrderNumber,
		UserID:      cmd.UserID,
		Email:       cmd.Email,
		Method:      provider.Name(),
		Amount:      cmd.Amount,
		Currency:    currency,
		Status:      domain.PaymentPending,
	}

	init, err := provider.Initialize(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("initialize %s payment: %w", provider.Name(), err)
	}
	payment.ProviderRef = init.ProviderRef
	payment.AuthorizeURL = init.AuthorizeURL
	payment.Instructions = init.Instructions

	if err := s.payments.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	s.publish(ctx, domain.TopicPaymentInitialized, payment.Reference, domain.PaymentInitializedEvent{
		Reference:   payment.Reference,
		OrderNumber: payment.OrderNumber,
		Method:      payment.Method,
		Amount:      payment.Amount.StringFixed(2),
		Timestamp:   time.Now(),
	})

	s.logger.InfoContext(ctx, "payment initialized",
		"reference", payment.Reference, "order", payment.OrderNumber, "method", payment.Method)
	return payment, nil
}

// VerifyPayment 向渠道核对支付结果并落库
func (s *PaymentCommandService) VerifyPayment(ctx context.Context, reference string) (*domain.Payment, error) {
	payment, err := s.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.IsFinal() {
		return payment, nil
	}

	provider, err := s.providers.Get(payment.Method)
	if err != nil {
		return nil, err
	}
	result, err := provider.Verify(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("verify %s payment: %w", payment.Method, err)
	}

	switch result.State {
	case domain.ResultSuccess:
		if err := payment.MarkSuccess(result.ProviderRef); err != nil {
			return nil, err
		}
	case domain.ResultFailed:
		if err := payment.MarkFailed(result.Message); err != nil {
			return nil, err
		}
	default:
		// 渠道仍在处理中，保持 pending 等待下次核对
		return payment, nil
	}

	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	if payment.Status == domain.PaymentSuccess {
		s.publish(ctx, domain.TopicPaymentSucceeded, payment.Reference, domain.PaymentSucceededEvent{
			Reference:   payment.Reference,
			OrderNumber: payment.OrderNumber,
			ProviderRef: payment.ProviderRef,
			Timestamp:   time.Now(),
		})
	} else {
		s.publish(ctx, domain.TopicPaymentFailed, payment.Reference, domain.PaymentFailedEvent{
			Reference:   payment.Reference,
			OrderNumber: payment.OrderNumber,
			Reason:      payment.FailureReason,
			Timestamp:   time.Now(),
		})
	}

	s.logger.InfoContext(ctx, "payment verified",
		"reference", payment.Reference, "status", payment.Status)
	return payment, nil
}

func (s *PaymentCommandService) publish(ctx context.Context, topic, key string, event any) {
	if err := s.publisher.Publish(ctx, topic, key, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish payment event", "topic", topic, "error", err)
	}
}
