package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownRegion 不支持的配送区域
	ErrUnknownRegion = errors.New("unsupported delivery region")
	// ErrInvalidDiscountCode 折扣码无效
	ErrInvalidDiscountCode = errors.New("invalid discount code")
	// ErrBelowMinimumOrder 未达最低下单金额
	ErrBelowMinimumOrder = errors.New("order below minimum amount")
)

// Region 配送区域
type Region struct {
	Name          string          `json:"name"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	EstimatedDays int             `json:"estimated_days"`
}

// PricedLine 以目录当前折后价计价的购物车条目
type PricedLine struct {
	ProductID uint            `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Subtotal 全部条目小计之和
func Subtotal(lines []PricedLine) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.LineTotal)
	}
	return sum
}

// Quote 一次报价的完整拆解。Total = Subtotal + ShippingFee + Tax - Discount。
type Quote struct {
	Currency      string          `json:"currency"`
	Region        string          `json:"region"`
	EstimatedDays int             `json:"estimated_days"`
	DiscountCode  string          `json:"discount_code,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
}

// PricingEngine 购物车定价引擎。纯计算，不访问任何外部状态。
type PricingEngine struct {
	currency      string
	vatRate       decimal.Decimal
	minimumOrder  decimal.Decimal
	regions       []Region
	discountCodes map[string]decimal.Decimal
}

// NewPricingEngine 创建定价引擎，折扣码统一按大写匹配
func NewPricingEngine(currency string, vatRate, minimumOrder decimal.Decimal, regions []Region, discountCodes map[string]decimal.Decimal) *PricingEngine {
	codes := make(map[string]decimal.Decimal, len(discountCodes))
	for code, rate := range discountCodes {
		codes[strings.ToUpper(code)] = rate
	}
	return &PricingEngine{
		currency:      currency,
		vatRate:       vatRate,
		minimumOrder:  minimumOrder,
		regions:       regions,
		discountCodes: codes,
	}
}

// Regions 全部配送区域
func (e *PricingEngine) Regions() []Region { return e.regions }

// MinimumOrder 最低下单金额
func (e *PricingEngine) MinimumOrder() decimal.Decimal { return e.minimumOrder }

// MatchRegion 按名称匹配配送区域，忽略大小写与首尾空白
func (e *PricingEngine) MatchRegion(name string) (*Region, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i := range e.regions {
		if strings.ToLower(e.regions[i].Name) == needle {
			return &e.regions[i], nil
		}
	}
	return nil, ErrUnknownRegion
}

// DiscountRate 校验折扣码并返回折扣比例，空码返回零折扣
func (e *PricingEngine) DiscountRate(code string) (decimal.Decimal, error) {
	if strings.TrimSpace(code) == "" {
		return decimal.Zero, nil
	}
	rate, ok := e.discountCodes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return decimal.Zero, ErrInvalidDiscountCode
	}
	return rate, nil
}

// Quote 对计价后的条目报价。税基为商品小计，折扣作用于商品小计，运费不参与抵扣。
func (e *PricingEngine) Quote(lines []PricedLine, regionName, discountCode string) (*Quote, error) {
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	// 未选择区域时运费为零，区域留待结算前校验强制选择
	var region *Region
	if strings.TrimSpace(regionName) != "" {
		matched, err := e.MatchRegion(regionName)
		if err != nil {
			return nil, err
		}
		region = matched
	}

	rate, err := e.DiscountRate(discountCode)
	if err != nil {
		return nil, err
	}

	subtotal := Subtotal(lines)
	tax := subtotal.Mul(e.vatRate).Round(2)
	discount := subtotal.Mul(rate).Round(2)
	shipping := decimal.Zero

	quote := &Quote{
		Currency: e.currency,
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
	}
	if region != nil {
		quote.Region = region.Name
		quote.EstimatedDays = region.EstimatedDays
		shipping = region.ShippingFee
	}
	quote.ShippingFee = shipping
	quote.Total = subtotal.Add(shipping).Add(tax).Sub(discount)
	if !discount.IsZero() {
		quote.DiscountCode = strings.ToUpper(strings.TrimSpace(discountCode))
	}
	return quote, nil
}
