package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/provisionstore/internal/cart/domain"
	"github.com/wyfcoding/provisionstore/pkg/logger"
)

// AddItemCommand 加入购物车命令
type AddItemCommand struct {
	UserID    string
	ProductID uint
	Quantity  int
	Options   map[string]string
}

// CartCommandService 购物车命令服务
type CartCommandService struct {
	carts          domain.CartRepository
	products       domain.ProductGateway
	pricing        *domain.PricingEngine
	publisher      domain.EventPublisher
	paymentMethods []string
}

// NewCartCommandService 创建购物车命令服务实例
func NewCartCommandService(
	carts domain.CartRepository,
	products domain.ProductGateway,
	pricing *domain.PricingEngine,
	publisher domain.EventPublisher,
	paymentMethods []string,
) *CartCommandService {
	return &CartCommandService{
		carts:          carts,
		products:       products,
		pricing:        pricing,
		publisher:      publisher,
		paymentMethods: paymentMethods,
	}
}

// AddItem 加入商品。合并数量不得超过当前库存：
// 若购物车中已有 m 件而库存为 s，则最多还能加入 s-m 件。
func (s *CartCommandService) AddItem(ctx context.Context, cmd AddItemCommand) (*domain.Cart, error) {
	if cmd.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, fmt.Errorf("product %s is no longer available", product.SKU)
	}

	cart, err := s.loadOrCreate(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	existing := 0
	if item, ok := cart.Find(cmd.ProductID); ok {
		existing = item.Quantity
	}
	if existing+cmd.Quantity > product.Stock {
		headroom := product.Stock - existing
		if headroom < 0 {
			headroom = 0
		}
		return nil, fmt.Errorf("product %s: only %d more can be added (%d in stock, %d already in cart): %w",
			product.SKU, headroom, product.Stock, existing, domain.ErrStockHeadroom)
	}

	item := domain.CartItem{
		ProductID: product.ID,
		SKU:       product.SKU,
		Name:      product.Name,
		Quantity:  cmd.Quantity,
		Options:   cmd.Options,
	}
	if err := cart.Upsert(item); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}

	event := domain.CartItemAddedEvent{
		UserID:    cmd.UserID,
		ProductID: product.ID,
		SKU:       product.SKU,
		Quantity:  cmd.Quantity,
		UnitPrice: product.DiscountedPrice().String(),
		Timestamp: time.Now(),
	}
	if err := s.publisher.Publish(ctx, domain.TopicCartItemAdded, cmd.UserID, event); err != nil {
		logger.Warn(ctx, "failed to publish cart item added event", "user_id", cmd.UserID, "error", err)
	}

	return cart, nil
}

// UpdateItemQuantity 设置条目数量，小于等于 0 等同移除。超过库存时拒绝。
func (s *CartCommandService) UpdateItemQuantity(ctx context.Context, userID string, productID uint, quantity int) (*domain.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity > 0 {
		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		if quantity > product.Stock {
			return nil, fmt.Errorf("product %s has only %d in stock: %w",
				product.SKU, product.Stock, domain.ErrStockHeadroom)
		}
	}

	if err := cart.SetQuantity(productID, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem 移除条目
func (s *CartCommandService) RemoveItem(ctx context.Context, userID string, productID uint) (*domain.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := cart.Remove(productID); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}

	event := domain.CartItemRemovedEvent{UserID: userID, ProductID: productID, Timestamp: time.Now()}
	if err := s.publisher.Publish(ctx, domain.TopicCartItemRemoved, userID, event); err != nil {
		logger.Warn(ctx, "failed to publish cart item removed event", "user_id", userID, "error", err)
	}
	return cart, nil
}

// ClearCart 清空购物车条目与折扣码，客户信息与配送选择保留
func (s *CartCommandService) ClearCart(ctx context.Context, userID string) error {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	cart.Clear()
	if err := s.carts.Save(ctx, cart); err != nil {
		return err
	}
	event := domain.CartClearedEvent{UserID: userID, Timestamp: time.Now()}
	if err := s.publisher.Publish(ctx, domain.TopicCartCleared, userID, event); err != nil {
		logger.Warn(ctx, "failed to publish cart cleared event", "user_id", userID, "error", err)
	}
	return nil
}

// SetCustomer 记录客户信息
func (s *CartCommandService) SetCustomer(ctx context.Context, userID string, customer domain.Customer) (*domain.Cart, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, errors.New("customer name is required")
	}
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Customer = &customer
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// SetShippingAddress 记录收货地址。若地址中的州名与某个配送区域名互相包含
// （忽略大小写）则自动选中该区域，否则保持原有选择不变。
func (s *CartCommandService) SetShippingAddress(ctx context.Context, userID string, address domain.Address) (*domain.Cart, error) {
	if strings.TrimSpace(address.Street) == "" {
		return nil, errors.New("street is required")
	}
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Address = &address

	state := strings.ToLower(strings.TrimSpace(address.State))
	if state != "" {
		for _, region := range s.pricing.Regions() {
			name := strings.ToLower(region.Name)
			if strings.Contains(state, name) || strings.Contains(name, state) {
				cart.Region = region.Name
				break
			}
		}
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// SetDeliveryRegion 选择配送区域，必须在配置的区域集合内
func (s *CartCommandService) SetDeliveryRegion(ctx context.Context, userID, regionName string) (*domain.Cart, error) {
	region, err := s.pricing.MatchRegion(regionName)
	if err != nil {
		return nil, err
	}
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Region = region.Name
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// SetPaymentMethod 选择支付方式，必须在受理集合内
func (s *CartCommandService) SetPaymentMethod(ctx context.Context, userID, method string) (*domain.Cart, error) {
	if !s.methodAccepted(method) {
		return nil, fmt.Errorf("method %q: %w", method, domain.ErrInvalidPaymentMethod)
	}
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.PaymentMethod = strings.ToLower(strings.TrimSpace(method))
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// ApplyDiscountCode 应用折扣码，必须在识别集合内
func (s *CartCommandService) ApplyDiscountCode(ctx context.Context, userID, code string) (*domain.Cart, error) {
	if _, err := s.pricing.DiscountRate(code); err != nil {
		return nil, err
	}
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.DiscountCode = strings.ToUpper(strings.TrimSpace(code))
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveDiscountCode 移除折扣码
func (s *CartCommandService) RemoveDiscountCode(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.DiscountCode = ""
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// ValidationResult 结算前校验结果，通过时附带按当前价格计价的条目与报价
type ValidationResult struct {
	Valid  bool                `json:"valid"`
	Issues []string            `json:"issues,omitempty"`
	Lines  []domain.PricedLine `json:"lines,omitempty"`
	Quote  *domain.Quote       `json:"quote,omitempty"`
}

// CheckoutContext 结算侧随请求提供的上下文，空字段回退到购物车上保存的选择
type CheckoutContext struct {
	Region        string
	DiscountCode  string
	PaymentMethod string
	CustomerPhone string
	Address       string
}

// ValidateForCheckout 结算前校验。逐项重新拉取商品快照，汇总全部问题而不是
// 在第一个问题处停止；校验本身不修改购物车，可重复调用。
func (s *CartCommandService) ValidateForCheckout(ctx context.Context, userID string, checkout CheckoutContext) (*ValidationResult, error) {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return &ValidationResult{Valid: false, Issues: []string{"cart is empty"}}, nil
	}

	regionName := checkout.Region
	if regionName == "" {
		regionName = cart.Region
	}
	discountCode := checkout.DiscountCode
	if discountCode == "" {
		discountCode = cart.DiscountCode
	}
	paymentMethod := checkout.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = cart.PaymentMethod
	}

	result := &ValidationResult{}

	// 逐条以当前商品快照校验并计价，原购物车保持不变
	lines := make([]domain.PricedLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			result.Issues = append(result.Issues, fmt.Sprintf("%s: product no longer exists", item.SKU))
			continue
		}
		if !product.Active {
			result.Issues = append(result.Issues, fmt.Sprintf("%s: product is no longer available", product.SKU))
			continue
		}
		if item.Quantity > product.Stock {
			result.Issues = append(result.Issues, fmt.Sprintf("%s: only %d in stock, cart has %d",
				product.SKU, product.Stock, item.Quantity))
			continue
		}
		unit := product.DiscountedPrice()
		lines = append(lines, domain.PricedLine{
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	if cart.Customer == nil && checkout.CustomerPhone == "" {
		result.Issues = append(result.Issues, "customer information is required")
	}
	if cart.Address == nil && checkout.Address == "" {
		result.Issues = append(result.Issues, "shipping address is required")
	}
	if regionName == "" {
		result.Issues = append(result.Issues, "delivery region not selected")
	} else if _, err := s.pricing.MatchRegion(regionName); err != nil {
		result.Issues = append(result.Issues, fmt.Sprintf("region %q is not supported", regionName))
	}
	if paymentMethod == "" {
		result.Issues = append(result.Issues, "payment method not selected")
	} else if !s.methodAccepted(paymentMethod) {
		result.Issues = append(result.Issues, fmt.Sprintf("payment method %q is not supported", paymentMethod))
	}
	if _, err := s.pricing.DiscountRate(discountCode); err != nil {
		result.Issues = append(result.Issues, fmt.Sprintf("discount code %q is invalid", discountCode))
	}

	subtotal := domain.Subtotal(lines)
	if len(lines) > 0 && subtotal.LessThan(s.pricing.MinimumOrder()) {
		result.Issues = append(result.Issues, fmt.Sprintf("subtotal %s below minimum order %s",
			subtotal.String(), s.pricing.MinimumOrder().String()))
	}

	if len(result.Issues) > 0 {
		return result, nil
	}

	quote, err := s.pricing.Quote(lines, regionName, discountCode)
	if err != nil {
		if errors.Is(err, domain.ErrCartEmpty) || errors.Is(err, domain.ErrUnknownRegion) || errors.Is(err, domain.ErrInvalidDiscountCode) {
			result.Issues = append(result.Issues, err.Error())
			return result, nil
		}
		return nil, err
	}

	result.Valid = true
	result.Lines = lines
	result.Quote = quote

	itemCount := 0
	for _, line := range lines {
		itemCount += line.Quantity
	}
	event := domain.CartValidatedEvent{
		UserID:    userID,
		Region:    quote.Region,
		ItemCount: itemCount,
		Total:     quote.Total.String(),
		Timestamp: time.Now(),
	}
	if err := s.publisher.Publish(ctx, domain.TopicCartValidated, userID, event); err != nil {
		logger.Warn(ctx, "failed to publish cart validated event", "user_id", userID, "error", err)
	}

	return result, nil
}

func (s *CartCommandService) methodAccepted(method string) bool {
	for _, m := range s.paymentMethods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// loadOrCreate 不存在则建空车，存储故障原样上抛
func (s *CartCommandService) loadOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return domain.NewCart(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}
