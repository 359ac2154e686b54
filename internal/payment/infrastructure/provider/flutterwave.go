package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wyfcoding/provisionstore/internal/payment/domain"
	"github.com/wyfcoding/provisionstore/pkg/utils"
)

// FlutterwaveProvider Flutterwave 在线收款渠道
type FlutterwaveProvider struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

// NewFlutterwaveProvider 创建 Flutterwave 渠道
func NewFlutterwaveProvider(secretKey, baseURL string, timeout time.Duration) *FlutterwaveProvider {
	if baseURL == "" {
		baseURL = "https://api.flutterwave.com/v3"
	}
	return &FlutterwaveProvider{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *FlutterwaveProvider) Name() string { return "flutterwave" }

type flutterwaveInitRequest struct {
	TxRef       string              `json:"tx_ref"`
	Amount      string              `json:"amount"`
	Currency    string              `json:"currency"`
	RedirectURL string              `json:"redirect_url,omitempty"`
	Customer    flutterwaveCustomer `json:"customer"`
}

type flutterwaveCustomer struct {
	Email string `json:"email"`
}

type flutterwaveInitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

func (p *FlutterwaveProvider) Initialize(ctx context.Context, payment *domain.Payment) (*domain.InitResult, error) {
	body, err := json.Marshal(flutterwaveInitRequest{
		TxRef:    payment.Reference,
		Amount:   payment.Amount.StringFixed(2),
		Currency: payment.Currency,
		Customer: flutterwaveCustomer{Email: payment.Email},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal flutterwave request: %w", err)
	}

	var resp flutterwaveInitResponse
	if err := p.do(ctx, http.MethodPost, "/payments", body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("flutterwave initialize: %s", resp.Message)
	}
	return &domain.InitResult{
		ProviderRef:  payment.Reference,
		AuthorizeURL: resp.Data.Link,
	}, nil
}

type flutterwaveVerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status string `json:"status"`
		TxRef  string `json:"tx_ref"`
		FlwRef string `json:"flw_ref"`
	} `json:"data"`
}

func (p *FlutterwaveProvider) Verify(ctx context.Context, payment *domain.Payment) (*domain.Result, error) {
	var resp flutterwaveVerifyResponse
	path := "/transactions/verify_by_reference?tx_ref=" + payment.Reference
	// 查询是只读操作，瞬时故障时重试
	err := utils.RetryWithBackoff(3, 200*time.Millisecond, 2*time.Second, func() error {
		return p.do(ctx, http.MethodGet, path, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("flutterwave verify: %s", resp.Message)
	}

	result := &domain.Result{ProviderRef: resp.Data.FlwRef, Message: resp.Message}
	switch resp.Data.Status {
	case "successful":
		result.State = domain.ResultSuccess
	case "failed", "cancelled":
		result.State = domain.ResultFailed
	default:
		result.State = domain.ResultPending
	}
	return result, nil
}

func (p *FlutterwaveProvider) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build flutterwave request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("call flutterwave: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("flutterwave unavailable: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode flutterwave response: %w", err)
	}
	return nil
}
