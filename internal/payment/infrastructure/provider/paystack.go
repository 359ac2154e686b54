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

// PaystackProvider Paystack 在线收款渠道
type PaystackProvider struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

// NewPaystackProvider 创建 Paystack 渠道
func NewPaystackProvider(secretKey, baseURL string, timeout time.Duration) *PaystackProvider {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &PaystackProvider{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *PaystackProvider) Name() string { return "paystack" }

type paystackInitRequest struct {
	Email     string `json:"email"`
	Amount    int64  `json:"amount"` // kobo
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (p *PaystackProvider) Initialize(ctx context.Context, payment *domain.Payment) (*domain.InitResult, error) {
	body, err := json.Marshal(paystackInitRequest{
		Email:     payment.Email,
		Amount:    payment.AmountInKobo(),
		Currency:  payment.Currency,
		Reference: payment.Reference,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal paystack request: %w", err)
	}

	var resp paystackInitResponse
	if err := p.do(ctx, http.MethodPost, "/transaction/initialize", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack initialize: %s", resp.Message)
	}
	return &domain.InitResult{
		ProviderRef:  resp.Data.Reference,
		AuthorizeURL: resp.Data.AuthorizationURL,
	}, nil
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status         string `json:"status"`
		Reference      string `json:"reference"`
		GatewayMessage string `json:"gateway_response"`
	} `json:"data"`
}

func (p *PaystackProvider) Verify(ctx context.Context, payment *domain.Payment) (*domain.Result, error) {
	var resp paystackVerifyResponse
	path := "/transaction/verify/" + payment.Reference
	// 查询是只读操作，瞬时故障时重试
	err := utils.RetryWithBackoff(3, 200*time.Millisecond, 2*time.Second, func() error {
		return p.do(ctx, http.MethodGet, path, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack verify: %s", resp.Message)
	}

	result := &domain.Result{ProviderRef: resp.Data.Reference, Message: resp.Data.GatewayMessage}
	switch resp.Data.Status {
	case "success":
		result.State = domain.ResultSuccess
	case "failed", "abandoned", "reversed":
		result.State = domain.ResultFailed
	default:
		result.State = domain.ResultPending
	}
	return result, nil
}

func (p *PaystackProvider) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("call paystack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("paystack unavailable: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode paystack response: %w", err)
	}
	return nil
}
