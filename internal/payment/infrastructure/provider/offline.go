// 线下支付渠道：银行转账、USSD、货到付款。
// 初始化即返回支付指引，到账确认由人工或回调完成。
package provider

import (
	"context"
	"fmt"

	"github.com/wyfcoding/provisionstore/internal/payment/domain"
)

// BankTransferProvider 银行转账
type BankTransferProvider struct {
	AccountName   string
	AccountNumber string
	BankName      string
}

func (p *BankTransferProvider) Name() string { return "bank_transfer" }

func (p *BankTransferProvider) Initialize(ctx context.Context, payment *domain.Payment) (*domain.InitResult, error) {
	return &domain.InitResult{
		Instructions: fmt.Sprintf("Transfer %s %s to %s (%s, %s), narration: %s",
			payment.Currency, payment.Amount.StringFixed(2),
			p.AccountNumber, p.AccountName, p.BankName, payment.Reference),
	}, nil
}

func (p *BankTransferProvider) Verify(ctx context.Context, payment *domain.Payment) (*domain.Result, error) {
	// 到账依赖人工对账，未确认前一律视作处理中
	return &domain.Result{State: domain.ResultPending, Message: "awaiting bank transfer confirmation"}, nil
}

// USSDProvider USSD 支付
type USSDProvider struct {
	Code string
}

func (p *USSDProvider) Name() string { return "ussd" }

func (p *USSDProvider) Initialize(ctx context.Context, payment *domain.Payment) (*domain.InitResult, error) {
	return &domain.InitResult{
		Instructions: fmt.Sprintf("Dial %s*%d# and follow the prompts, reference %s",
			p.Code, payment.AmountInKobo()/100, payment.Reference),
	}, nil
}

func (p *USSDProvider) Verify(ctx context.Context, payment *domain.Payment) (*domain.Result, error) {
	return &domain.Result{State: domain.ResultPending, Message: "awaiting ussd confirmation"}, nil
}

// PayOnDeliveryProvider 货到付款
type PayOnDeliveryProvider struct{}

func (p *PayOnDeliveryProvider) Name() string { return "pay_on_delivery" }

func (p *PayOnDeliveryProvider) Initialize(ctx context.Context, payment *domain.Payment) (*domain.InitResult, error) {
	return &domain.InitResult{
		Instructions: fmt.Sprintf("Pay %s %s in cash or by POS on delivery, reference %s",
			payment.Currency, payment.Amount.StringFixed(2), payment.Reference),
	}, nil
}

func (p *PayOnDeliveryProvider) Verify(ctx context.Context, payment *domain.Payment) (*domain.Result, error) {
	// 货到付款在妥投确认前始终处理中
	return &domain.Result{State: domain.ResultPending, Message: "collected on delivery"}, nil
}
