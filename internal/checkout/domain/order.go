package domain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/fsm"
	"github.com/wyfcoding/pkg/idgen"
	"gorm.io/gorm"
)

var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition 非法状态流转
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrInvalidPhone 尼日利亚手机号格式错误
	ErrInvalidPhone = errors.New("invalid nigerian phone number")
	// ErrEmptyOrder 订单无商品行
	ErrEmptyOrder = errors.New("order has no items")
	// ErrUnsupportedPaymentMethod 不支持的支付方式
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	// ErrStockAlreadyReserved 库存已预留
	ErrStockAlreadyReserved = errors.New("stock already reserved for order")
)

// OrderStatus 订单状态
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

// 状态机触发事件
const (
	eventConfirm = "CONFIRM"
	eventProcess = "PROCESS"
	eventShip    = "SHIP"
	eventDeliver = "DELIVER"
	eventCancel  = "CANCEL"
	eventRefund  = "REFUND"
)

var nigerianPhone = regexp.MustCompile(`^\+?234[0-9]{10}$`)

// ValidatePhone 校验尼日利亚手机号（+234 或 234 前缀加 10 位）
func ValidatePhone(phone string) error {
	if !nigerianPhone.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// OrderItem 订单商品行，下单时刻的商品快照
type OrderItem struct {
	gorm.Model
	OrderID   uint            `gorm:"column:order_id;index;not null" json:"order_id"`
	ProductID uint            `gorm:"column:product_id;not null" json:"product_id"`
	SKU       string          `gorm:"column:sku;type:varchar(64);not null" json:"sku"`
	Name      string          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(18,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:decimal(18,2);not null" json:"line_total"`
}

func (OrderItem) TableName() string { return "order_items" }

// TrackingEvent 订单轨迹事件
type TrackingEvent struct {
	gorm.Model
	OrderID uint   `gorm:"column:order_id;index;not null" json:"order_id"`
	Status  string `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Note    string `gorm:"column:note;type:varchar(255)" json:"note"`
}

func (TrackingEvent) TableName() string { return "order_tracking_events" }

// Order 订单聚合根。商品价格与金额在下单时刻快照固化，
// 后续商品调价不影响已创建订单。
type Order struct {
	gorm.Model
	OrderNumber   string          `gorm:"column:order_number;type:varchar(32);uniqueIndex;not null" json:"order_number"`
	UserID        string          `gorm:"column:user_id;type:varchar(64);index;not null" json:"user_id"`
	Status        OrderStatus     `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Region        string          `gorm:"column:region;type:varchar(64);not null" json:"region"`
	Address       string          `gorm:"column:address;type:varchar(512);not null" json:"address"`
	Phone         string          `gorm:"column:phone;type:varchar(20);not null" json:"phone"`
	PaymentMethod string          `gorm:"column:payment_method;type:varchar(32);not null" json:"payment_method"`
	PaymentRef    string          `gorm:"column:payment_ref;type:varchar(64);index" json:"payment_ref"`
	Currency      string          `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:decimal(18,2);not null" json:"subtotal"`
	ShippingFee   decimal.Decimal `gorm:"column:shipping_fee;type:decimal(18,2);not null" json:"shipping_fee"`
	Tax           decimal.Decimal `gorm:"column:tax;type:decimal(18,2);not null" json:"tax"`
	Discount      decimal.Decimal `gorm:"column:discount;type:decimal(18,2);not null" json:"discount"`
	Total         decimal.Decimal `gorm:"column:total;type:decimal(18,2);not null" json:"total"`
	EstimatedDays int             `gorm:"column:estimated_days;not null" json:"estimated_days"`
	StockReserved bool            `gorm:"column:stock_reserved;not null;default:false" json:"stock_reserved"`
	CancelReason  string          `gorm:"column:cancel_reason;type:varchar(255)" json:"cancel_reason,omitempty"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	Tracking      []TrackingEvent `gorm:"foreignKey:OrderID" json:"tracking"`

	machine *fsm.Machine[string, string] `gorm:"-" json:"-"`
}

func (Order) TableName() string { return "orders" }

// NewOrderNumber 生成订单号
func NewOrderNumber() string {
	return fmt.Sprintf("ORD-%d", idgen.GenID())
}

func (o *Order) initFSM() {
	m := fsm.NewMachine[string, string](string(o.Status))
	m.AddTransition(string(StatusPending), eventConfirm, string(StatusConfirmed))
	m.AddTransition(string(StatusConfirmed), eventProcess, string(StatusProcessing))
	m.AddTransition(string(StatusProcessing), eventShip, string(StatusShipped))
	m.AddTransition(string(StatusShipped), eventDeliver, string(StatusDelivered))
	m.AddTransition(string(StatusPending), eventCancel, string(StatusCancelled))
	m.AddTransition(string(StatusConfirmed), eventCancel, string(StatusCancelled))
	m.AddTransition(string(StatusProcessing), eventCancel, string(StatusCancelled))
	m.AddTransition(string(StatusDelivered), eventRefund, string(StatusRefunded))
	o.machine = m
}

// InitFSM 确保状态机已初始化
func (o *Order) InitFSM() {
	if o.machine == nil {
		o.initFSM()
	}
}

func (o *Order) trigger(ctx context.Context, event string, next OrderStatus) error {
	o.InitFSM()
	if err := o.machine.Trigger(ctx, event); err != nil {
		return fmt.Errorf("%s -> %s: %w", o.Status, next, ErrInvalidTransition)
	}
	o.Status = next
	return nil
}

// Confirm 支付确认
func (o *Order) Confirm(ctx context.Context, paymentRef string) error {
	if err := o.trigger(ctx, eventConfirm, StatusConfirmed); err != nil {
		return err
	}
	o.PaymentRef = paymentRef
	return nil
}

// StartProcessing 开始备货
func (o *Order) StartProcessing(ctx context.Context) error {
	return o.trigger(ctx, eventProcess, StatusProcessing)
}

// Ship 发货
func (o *Order) Ship(ctx context.Context) error {
	return o.trigger(ctx, eventShip, StatusShipped)
}

// Deliver 送达
func (o *Order) Deliver(ctx context.Context) error {
	return o.trigger(ctx, eventDeliver, StatusDelivered)
}

// Cancel 取消订单，仅 pending/confirmed/processing 可取消
func (o *Order) Cancel(ctx context.Context, reason string) error {
	if err := o.trigger(ctx, eventCancel, StatusCancelled); err != nil {
		return err
	}
	o.CancelReason = reason
	return nil
}

// Refund 退款，仅已送达订单可退
func (o *Order) Refund(ctx context.Context) error {
	return o.trigger(ctx, eventRefund, StatusRefunded)
}

// CanCancel 当前状态是否允许取消
func (o *Order) CanCancel() bool {
	switch o.Status {
	case StatusPending, StatusConfirmed, StatusProcessing:
		return true
	}
	return false
}

// IsTerminal 是否处于终态
func (o *Order) IsTerminal() bool {
	return o.Status == StatusCancelled || o.Status == StatusRefunded || o.Status == StatusDelivered
}

// AppendTracking 追加轨迹事件
func (o *Order) AppendTracking(note string) {
	o.Tracking = append(o.Tracking, TrackingEvent{
		OrderID: o.ID,
		Status:  string(o.Status),
		Note:    note,
	})
}

// Validate 创建前校验
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	if err := ValidatePhone(o.Phone); err != nil {
		return err
	}
	if o.Address == "" {
		return errors.New("delivery address is required")
	}
	if !o.Total.IsPositive() {
		return errors.New("order total must be positive")
	}
	return nil
}

// MarkStockReserved 记录库存已预留
func (o *Order) MarkStockReserved() error {
	if o.StockReserved {
		return ErrStockAlreadyReserved
	}
	o.StockReserved = true
	return nil
}

// StatusAt 轨迹中最近一次进入某状态的时间，未进入过返回零值
func (o *Order) StatusAt(status OrderStatus) time.Time {
	var at time.Time
	for _, t := range o.Tracking {
		if t.Status == string(status) && t.CreatedAt.After(at) {
			at = t.CreatedAt
		}
	}
	return at
}
