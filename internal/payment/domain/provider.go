package domain

import (
	"context"
	"strings"
	"sync"
)

// ResultState 渠道验证结果的三态
type ResultState string

const (
	ResultSuccess ResultState = "success"
	ResultPending ResultState = "pending"
	ResultFailed  ResultState = "failed"
)

// InitResult 渠道初始化结果。在线渠道返回跳转地址，
// 线下渠道返回支付指引。
type InitResult struct {
	ProviderRef  string `json:"provider_ref,omitempty"`
	AuthorizeURL string `json:"authorize_url,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Result 渠道验证结果
type Result struct {
	State       ResultState `json:"state"`
	ProviderRef string      `json:"provider_ref,omitempty"`
	Message     string      `json:"message,omitempty"`
}

// Provider 支付渠道接口
type Provider interface {
	Name() string
	Initialize(ctx context.Context, payment *Payment) (*InitResult, error)
	Verify(ctx context.Context, payment *Payment) (*Result, error)
}

// ProviderRegistry 渠道注册表
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewProviderRegistry 创建渠道注册表
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[string]Provider)}
}

// Register 注册渠道，名称按小写归一
func (r *ProviderRegistry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(p.Name())] = p
}

// Get 按名称取渠道
func (r *ProviderRegistry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names 已注册渠道名称列表
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
