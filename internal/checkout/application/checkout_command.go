package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/provisionstore/internal/checkout/domain"
	"github.com/wyfcoding/provisionstore/pkg/logger"
)

var (
	// ErrCartInvalid 购物车未通过结算前校验
	ErrCartInvalid = errors.New("cart failed checkout validation")
)

// StockLine 库存操作行
type StockLine struct {
	ProductID uint
	Quantity  int
}

// StockReserver 库存预留入口，由库存上下文适配实现
type StockReserver interface {
	Reserve(ctx context.Context, reference string, lines []StockLine) error
	Release(ctx context.Context, reference string, lines []StockLine) error
}

// CartLine 结算视角的购物车条目
type CartLine struct {
	ProductID uint
	SKU       string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// CartQuote 结算视角的报价
type CartQuote struct {
	Currency      string
	Region        string
	EstimatedDays int
	Subtotal      decimal.Decimal
	ShippingFee   decimal.Decimal
	Tax           decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
}

// CartValidation 传递给购物车校验的结算上下文
type CartValidation struct {
	Region        string
	DiscountCode  string
	PaymentMethod string
	Phone         string
	Address       string
}

// CheckoutCart 结算视角的购物车入口，由购物车上下文适配实现
type CheckoutCart interface {
	Validate(ctx context.Context, userID string, v CartValidation) (*CartQuote, []CartLine, []string, error)
	Clear(ctx context.Context, userID string) error
}

// CreateOrderCommand 创建订单命令
type CreateOrderCommand struct {
	UserID        string
	Region        string
	Address       string
	Phone         string
	PaymentMethod string
	DiscountCode  string
}

// CheckoutCommandService 结算命令服务
type CheckoutCommandService struct {
	orders         domain.OrderRepository
	cart           CheckoutCart
	reserver       StockReserver
	publisher      domain.EventPublisher
	txm            TransactionManager
	paymentMethods []string
}

// TransactionManager 事务边界接口，由基础设施层实现
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewCheckoutCommandService 创建结算命令服务实例
func NewCheckoutCommandService(
	orders domain.OrderRepository,
	cart CheckoutCart,
	reserver StockReserver,
	publisher domain.EventPublisher,
	txm TransactionManager,
	paymentMethods []string,
) *CheckoutCommandService {
	return &CheckoutCommandService{
		orders:         orders,
		cart:           cart,
		reserver:       reserver,
		publisher:      publisher,
		txm:            txm,
		paymentMethods: paymentMethods,
	}
}

func (s *CheckoutCommandService) paymentMethodAllowed(method string) bool {
	for _, m := range s.paymentMethods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// CreateOrder 从已校验的购物车创建订单。订单固化此刻的价格与金额；
// 创建本身不预留库存，预留由 ReserveStock 或支付确认触发。
func (s *CheckoutCommandService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	if !s.paymentMethodAllowed(cmd.PaymentMethod) {
		return nil, fmt.Errorf("%q: %w", cmd.PaymentMethod, domain.ErrUnsupportedPaymentMethod)
	}
	if err := domain.ValidatePhone(cmd.Phone); err != nil {
		return nil, err
	}

	quote, lines, issues, err := s.cart.Validate(ctx, cmd.UserID, CartValidation{
		Region:        cmd.Region,
		DiscountCode:  cmd.DiscountCode,
		PaymentMethod: cmd.PaymentMethod,
		Phone:         cmd.Phone,
		Address:       cmd.Address,
	})
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrCartInvalid, strings.Join(issues, "; "))
	}

	order := &domain.Order{
		OrderNumber:   domain.NewOrderNumber(),
		UserID:        cmd.UserID,
		Status:        domain.StatusPending,
		Region:        quote.Region,
		Address:       cmd.Address,
		Phone:         cmd.Phone,
		PaymentMethod: strings.ToLower(cmd.PaymentMethod),
		Currency:      quote.Currency,
		Subtotal:      quote.Subtotal,
		ShippingFee:   quote.ShippingFee,
		Tax:           quote.Tax,
		Discount:      quote.Discount,
		Total:         quote.Total,
		EstimatedDays: quote.EstimatedDays,
	}
	for _, line := range lines {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	order.AppendTracking("order created")

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.txm.Transaction(ctx, func(txCtx context.Context) error {
		return s.orders.Save(txCtx, order)
	}); err != nil {
		return nil, err
	}

	if err := s.cart.Clear(ctx, cmd.UserID); err != nil {
		logger.Warn(ctx, "failed to clear cart after order creation", "user_id", cmd.UserID, "error", err)
	}

	event := domain.OrderCreatedEvent{
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Region:      order.Region,
		Total:       order.Total.String(),
		ItemCount:   len(order.Items),
		Timestamp:   time.Now(),
	}
	if err := s.publisher.Publish(ctx, domain.TopicOrderCreated, order.OrderNumber, event); err != nil {
		logger.Warn(ctx, "failed to publish order created event", "order", order.OrderNumber, "error", err)
	}

	return order, nil
}

// ReserveStock 为订单预留库存，幂等：已预留的订单直接返回错误
func (s *CheckoutCommandService) ReserveStock(ctx context.Context, orderNumber string) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.StockReserved {
		return nil, domain.ErrStockAlreadyReserved
	}

	if err := s.reserver.Reserve(ctx, order.OrderNumber, stockLines(order)); err != nil {
		return nil, err
	}

	if err := order.MarkStockReserved(); err != nil {
		return nil, err
	}
	order.AppendTracking("stock reserved")
	if err := s.orders.Update(ctx, order); err != nil {
		// 落库失败时返还预留，避免库存悬挂
		if relErr := s.reserver.Release(ctx, order.OrderNumber, stockLines(order)); relErr != nil {
			logger.Error(ctx, "failed to release stock after update failure", "order", order.OrderNumber, "error", relErr)
		}
		return nil, err
	}
	return order, nil
}

// ConfirmPayment 支付确认。未预留库存的订单先行预留再确认。
func (s *CheckoutCommandService) ConfirmPayment(ctx context.Context, orderNumber, paymentRef string) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if !order.StockReserved {
		if err := s.reserver.Reserve(ctx, order.OrderNumber, stockLines(order)); err != nil {
			return nil, err
		}
		if err := order.MarkStockReserved(); err != nil {
			return nil, err
		}
	}

	oldStatus := order.Status
	if err := order.Confirm(ctx, paymentRef); err != nil {
		return nil, err
	}
	order.AppendTracking("payment confirmed")
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}

	event := domain.OrderConfirmedEvent{
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		PaymentRef:  paymentRef,
		Timestamp:   time.Now(),
	}
	if err := s.publisher.Publish(ctx, domain.TopicOrderConfirmed, order.OrderNumber, event); err != nil {
		logger.Warn(ctx, "failed to publish order confirmed event", "order", order.OrderNumber, "error", err)
	}
	s.publishStatusChange(ctx, order, oldStatus)

	return order, nil
}

// UpdateStatus 推进订单状态，流转合法性由状态机保证
func (s *CheckoutCommandService) UpdateStatus(ctx context.Context, orderNumber string, target domain.OrderStatus, note string) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	switch target {
	case domain.StatusProcessing:
		err = order.StartProcessing(ctx)
	case domain.StatusShipped:
		err = order.Ship(ctx)
	case domain.StatusDelivered:
		err = order.Deliver(ctx)
	case domain.StatusRefunded:
		err = order.Refund(ctx)
	default:
		err = fmt.Errorf("%s: %w", target, domain.ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	order.AppendTracking(note)
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	s.publishStatusChange(ctx, order, oldStatus)
	return order, nil
}

// CancelOrder 取消订单。已预留的库存尽力返还，返还失败不阻断取消。
func (s *CheckoutCommandService) CancelOrder(ctx context.Context, orderNumber, reason string) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	if err := order.Cancel(ctx, reason); err != nil {
		return nil, err
	}

	released := false
	if order.StockReserved {
		if err := s.reserver.Release(ctx, order.OrderNumber, stockLines(order)); err != nil {
			logger.Error(ctx, "failed to release stock on cancellation", "order", order.OrderNumber, "error", err)
		} else {
			released = true
			order.StockReserved = false
		}
	}

	order.AppendTracking("order cancelled: " + reason)
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}

	event := domain.OrderCancelledEvent{
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Reason:        reason,
		StockReleased: released,
		Timestamp:     time.Now(),
	}
	if err := s.publisher.Publish(ctx, domain.TopicOrderCancelled, order.OrderNumber, event); err != nil {
		logger.Warn(ctx, "failed to publish order cancelled event", "order", order.OrderNumber, "error", err)
	}
	s.publishStatusChange(ctx, order, oldStatus)

	return order, nil
}

func (s *CheckoutCommandService) publishStatusChange(ctx context.Context, order *domain.Order, oldStatus domain.OrderStatus) {
	event := domain.OrderStatusChangedEvent{
		OrderNumber: order.OrderNumber,
		OldStatus:   string(oldStatus),
		NewStatus:   string(order.Status),
		Timestamp:   time.Now(),
	}
	if err := s.publisher.Publish(ctx, domain.TopicOrderStatusChanged, order.OrderNumber, event); err != nil {
		logger.Warn(ctx, "failed to publish order status changed event", "order", order.OrderNumber, "error", err)
	}
}

func stockLines(order *domain.Order) []StockLine {
	lines := make([]StockLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}
