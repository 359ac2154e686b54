package domain

import (
	"errors"
	"time"
)

var (
	// ErrCartEmpty 购物车为空
	ErrCartEmpty = errors.New("cart is empty")
	// ErrCartNotFound 购物车不存在
	ErrCartNotFound = errors.New("cart not found")
	// ErrItemNotFound 购物车内无此商品
	ErrItemNotFound = errors.New("item not in cart")
	// ErrInvalidQuantity 数量非法
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrStockHeadroom 合并后数量超过可用库存
	ErrStockHeadroom = errors.New("requested quantity exceeds available stock")
	// ErrInvalidPaymentMethod 支付方式不在受理集合内
	ErrInvalidPaymentMethod = errors.New("payment method not supported")
)

// Customer 购物车上记录的客户信息
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Address 收货地址，State 用于自动匹配配送区域
type Address struct {
	Street string `json:"street"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
}

// CartItem 购物车条目，只存商品引用与数量，价格一律按目录当前价现算
type CartItem struct {
	ProductID uint              `json:"product_id"`
	SKU       string            `json:"sku"`
	Name      string            `json:"name"`
	Quantity  int               `json:"quantity"`
	Options   map[string]string `json:"options,omitempty"`
	AddedAt   time.Time         `json:"added_at"`
}

// Cart 购物车聚合根，按用户维度持有，整车以 JSON 快照存储
type Cart struct {
	UserID        string     `json:"user_id"`
	Items         []CartItem `json:"items"`
	Customer      *Customer  `json:"customer,omitempty"`
	Address       *Address   `json:"address,omitempty"`
	Region        string     `json:"region,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	DiscountCode  string     `json:"discount_code,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewCart 创建空购物车
func NewCart(userID string) *Cart {
	return &Cart{UserID: userID, Items: []CartItem{}, UpdatedAt: time.Now()}
}

// Find 按商品ID查找条目
func (c *Cart) Find(productID uint) (*CartItem, bool) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// Upsert 加入商品：已存在则合并数量与选项（新键覆盖旧键），否则新增条目
func (c *Cart) Upsert(item CartItem) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if existing, ok := c.Find(item.ProductID); ok {
		existing.Quantity += item.Quantity
		existing.Name = item.Name
		if len(item.Options) > 0 {
			if existing.Options == nil {
				existing.Options = make(map[string]string, len(item.Options))
			}
			for k, v := range item.Options {
				existing.Options[k] = v
			}
		}
	} else {
		if item.AddedAt.IsZero() {
			item.AddedAt = time.Now()
		}
		c.Items = append(c.Items, item)
	}
	c.UpdatedAt = time.Now()
	return nil
}

// SetQuantity 直接设置条目数量，小于等于 0 视同移除
func (c *Cart) SetQuantity(productID uint, quantity int) error {
	if quantity <= 0 {
		return c.Remove(productID)
	}
	item, ok := c.Find(productID)
	if !ok {
		return ErrItemNotFound
	}
	item.Quantity = quantity
	c.UpdatedAt = time.Now()
	return nil
}

// Remove 移除条目
func (c *Cart) Remove(productID uint) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrItemNotFound
}

// Clear 清空条目与折扣码，客户信息与配送选择保留
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.DiscountCode = ""
	c.UpdatedAt = time.Now()
}

// IsEmpty 是否为空
func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// ItemCount 总件数
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
