package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrProductNotFound 商品不存在
	ErrProductNotFound = errors.New("product not found")
	// ErrDuplicateSKU SKU 已存在
	ErrDuplicateSKU = errors.New("duplicate sku")
	// ErrInsufficientStock 库存不足
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity 数量非法
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrProductInactive 商品已下架
	ErrProductInactive = errors.New("product is inactive")
)

// ValidationError 汇总商品结构校验的全部失败项
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid product: " + strings.Join(e.Violations, "; ")
}

// Product 商品聚合根，库存以整数件数计，价格使用 decimal 精确表示
type Product struct {
	gorm.Model
	SKU         string          `gorm:"column:sku;type:varchar(64);uniqueIndex;not null" json:"sku"`
	Name        string          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	Category    string          `gorm:"column:category;type:varchar(100);index" json:"category"`
	Unit        string          `gorm:"column:unit;type:varchar(32)" json:"unit"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null" json:"price"`
	Discount    decimal.Decimal `gorm:"column:discount;type:decimal(5,4);not null;default:0" json:"discount"`
	Stock       int             `gorm:"column:stock;not null;default:0" json:"stock"`
	// ReorderPoint 为 0 时沿用门店级默认低库存阈值
	ReorderPoint int  `gorm:"column:reorder_point;not null;default:0" json:"reorder_point"`
	Active       bool `gorm:"column:active;not null;default:true" json:"active"`
}

func (Product) TableName() string { return "products" }

// Validate 校验商品基础字段，汇总全部违规项后一次性返回
func (p *Product) Validate() error {
	var violations []string
	if strings.TrimSpace(p.SKU) == "" {
		violations = append(violations, "sku is required")
	}
	if len(strings.TrimSpace(p.Name)) < 2 {
		violations = append(violations, "name must be at least 2 characters")
	}
	if strings.TrimSpace(p.Category) == "" {
		violations = append(violations, "category is required")
	}
	if !p.Price.IsPositive() {
		violations = append(violations, "price must be positive")
	}
	if p.Discount.IsNegative() || p.Discount.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		violations = append(violations, "discount must be in [0, 1)")
	}
	if p.Stock < 0 {
		violations = append(violations, "stock must not be negative")
	}
	if p.ReorderPoint < 0 {
		violations = append(violations, "reorder point must not be negative")
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// LowStockPoint 返回生效的低库存阈值
func (p *Product) LowStockPoint(defaultThreshold int) int {
	if p.ReorderPoint > 0 {
		return p.ReorderPoint
	}
	return defaultThreshold
}

// DiscountedPrice 折后单价
func (p *Product) DiscountedPrice() decimal.Decimal {
	if p.Discount.IsZero() {
		return p.Price
	}
	factor := decimal.NewFromInt(1).Sub(p.Discount)
	return p.Price.Mul(factor).Round(2)
}

// InStock 判断当前库存是否足以覆盖 qty 件
func (p *Product) InStock(qty int) bool {
	return qty > 0 && p.Stock >= qty
}

// AdjustStock 按 delta 调整库存，扣减不允许越过零
func (p *Product) AdjustStock(delta int) error {
	next := p.Stock + delta
	if next < 0 {
		return ErrInsufficientStock
	}
	p.Stock = next
	return nil
}

// IsLowStock 是否处于低库存（含库存为零）
func (p *Product) IsLowStock(threshold int) bool {
	return p.Stock <= threshold
}

// IsStockOut 是否已售罄
func (p *Product) IsStockOut() bool {
	return p.Stock == 0
}
