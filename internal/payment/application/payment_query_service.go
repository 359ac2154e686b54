package application

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/provisionstore/internal/payment/domain"
)

// PaymentQueryService 支付查询服务
type PaymentQueryService struct {
	payments  domain.PaymentRepository
	providers *domain.ProviderRegistry
	logger    *slog.Logger
}

func NewPaymentQueryService(payments domain.PaymentRepository, providers *domain.ProviderRegistry, logger *slog.Logger) *PaymentQueryService {
	return &PaymentQueryService{payments: payments, providers: providers, logger: logger}
}

// GetPayment 按支付引用号查询
func (s *PaymentQueryService) GetPayment(ctx context.Context, reference string) (*domain.Payment, error) {
	return s.payments.GetByReference(ctx, reference)
}

// ListByOrder 查询订单下全部支付记录
func (s *PaymentQueryService) ListByOrder(ctx context.Context, orderNumber string) ([]*domain.Payment, error) {
	return s.payments.ListByOrder(ctx, orderNumber)
}

// ListMethods 列出已注册的支付方式
func (s *PaymentQueryService) ListMethods(ctx context.Context) []string {
	return s.providers.Names()
}
