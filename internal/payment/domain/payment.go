package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/idgen"
	"gorm.io/gorm"
)

var (
	// ErrPaymentNotFound 支付记录不存在
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrUnknownProvider 未注册的支付渠道
	ErrUnknownProvider = errors.New("unknown payment provider")
	// ErrPaymentFinalized 支付已到终态
	ErrPaymentFinalized = errors.New("payment already finalized")
	// ErrInvalidAmount 金额非法
	ErrInvalidAmount = errors.New("amount must be positive")
)

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment 支付单
type Payment struct {
	gorm.Model
	Reference     string          `gorm:"column:reference;type:varchar(32);uniqueIndex;not null" json:"reference"`
	OrderNumber   string          `gorm:"column:order_number;type:varchar(32);index;not null" json:"order_number"`
	UserID        string          `gorm:"column:user_id;type:varchar(64);index;not null" json:"user_id"`
	Email         string          `gorm:"column:email;type:varchar(255)" json:"email"`
	Method        string          `gorm:"column:method;type:varchar(32);not null" json:"method"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Currency      string          `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status        PaymentStatus   `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	ProviderRef   string          `gorm:"column:provider_ref;type:varchar(128)" json:"provider_ref"`
	AuthorizeURL  string          `gorm:"column:authorize_url;type:varchar(512)" json:"authorize_url,omitempty"`
	Instructions  string          `gorm:"column:instructions;type:varchar(512)" json:"instructions,omitempty"`
	FailureReason string          `gorm:"column:failure_reason;type:varchar(255)" json:"failure_reason,omitempty"`
	VerifiedAt    *time.Time      `gorm:"column:verified_at" json:"verified_at,omitempty"`
}

func (Payment) TableName() string { return "payments" }

// NewPaymentReference 生成支付单号
func NewPaymentReference() string {
	return fmt.Sprintf("PAY-%d", idgen.GenID())
}

// AmountInKobo 奈拉转科博（×100），网关按最小货币单位计价
func (p *Payment) AmountInKobo() int64 {
	return p.Amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// IsFinal 是否到达终态
func (p *Payment) IsFinal() bool {
	return p.Status == PaymentSuccess || p.Status == PaymentFailed
}

// MarkSuccess 标记成功
func (p *Payment) MarkSuccess(providerRef string) error {
	if p.IsFinal() {
		return ErrPaymentFinalized
	}
	p.Status = PaymentSuccess
	if providerRef != "" {
		p.ProviderRef = providerRef
	}
	now := time.Now()
	p.VerifiedAt = &now
	return nil
}

// MarkFailed 标记失败
func (p *Payment) MarkFailed(reason string) error {
	if p.IsFinal() {
		return ErrPaymentFinalized
	}
	p.Status = PaymentFailed
	p.FailureReason = reason
	now := time.Now()
	p.VerifiedAt = &now
	return nil
}
