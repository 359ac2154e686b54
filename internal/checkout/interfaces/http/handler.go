package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/provisionstore/internal/checkout/application"
	"github.com/wyfcoding/provisionstore/internal/checkout/domain"
	"github.com/wyfcoding/provisionstore/pkg/logger"
)

// CheckoutHandler 结算 HTTP 处理器
type CheckoutHandler struct {
	commands *application.CheckoutCommandService
	queries  *application.CheckoutQueryService
}

// NewCheckoutHandler 创建结算 HTTP 处理器实例
func NewCheckoutHandler(commands *application.CheckoutCommandService, queries *application.CheckoutQueryService) *CheckoutHandler {
	return &CheckoutHandler{commands: commands, queries: queries}
}

// RegisterRoutes 注册路由
func (h *CheckoutHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/orders")
	{
		api.POST("", h.CreateOrder)
		api.GET("", h.ListOrders)
		api.GET("/:number", h.GetOrder)
		api.GET("/:number/tracking", h.GetTracking)
		api.POST("/:number/reserve", h.ReserveStock)
		api.POST("/:number/confirm", h.ConfirmPayment)
		api.PUT("/:number/status", h.UpdateStatus)
		api.POST("/:number/cancel", h.CancelOrder)
	}
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	Region        string `json:"region" binding:"required"`
	Address       string `json:"address" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
	DiscountCode  string `json:"discount_code"`
}

// CreateOrder 创建订单
func (h *CheckoutHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.commands.CreateOrder(c.Request.Context(), application.CreateOrderCommand{
		UserID:        req.UserID,
		Region:        req.Region,
		Address:       req.Address,
		Phone:         req.Phone,
		PaymentMethod: req.PaymentMethod,
		DiscountCode:  req.DiscountCode,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, application.ErrCartInvalid):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, domain.ErrInvalidPhone), errors.Is(err, domain.ErrUnsupportedPaymentMethod), errors.Is(err, domain.ErrEmptyOrder):
			status = http.StatusBadRequest
		}
		logger.Error(c.Request.Context(), "Failed to create order", "user_id", req.UserID, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder 按订单号获取订单
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	number := c.Param("number")
	order, err := h.queries.GetOrder(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "Failed to get order", "order", number, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders 按用户或状态列出订单
func (h *CheckoutHandler) ListOrders(c *gin.Context) {
	page, size := parsePagination(c)
	userID := c.Query("user_id")
	status := c.Query("status")

	var (
		orders []*domain.Order
		total  int
		err    error
	)
	switch {
	case userID != "":
		orders, total, err = h.queries.ListByUser(c.Request.Context(), userID, page, size)
	case status != "":
		orders, total, err = h.queries.ListByStatus(c.Request.Context(), domain.OrderStatus(status), page, size)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id or status is required"})
		return
	}
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list orders", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total, "page": page, "size": size})
}

// GetTracking 获取订单轨迹
func (h *CheckoutHandler) GetTracking(c *gin.Context) {
	number := c.Param("number")
	tracking, err := h.queries.GetTracking(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "Failed to get order tracking", "order", number, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_number": number, "tracking": tracking})
}

// ReserveStock 为订单预留库存
func (h *CheckoutHandler) ReserveStock(c *gin.Context) {
	number := c.Param("number")
	order, err := h.commands.ReserveStock(c.Request.Context(), number)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrStockAlreadyReserved):
			status = http.StatusConflict
		}
		logger.Error(c.Request.Context(), "Failed to reserve stock for order", "order", number, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// ConfirmPaymentRequest 支付确认请求
type ConfirmPaymentRequest struct {
	PaymentRef string `json:"payment_ref" binding:"required"`
}

// ConfirmPayment 支付确认
func (h *CheckoutHandler) ConfirmPayment(c *gin.Context) {
	number := c.Param("number")
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.commands.ConfirmPayment(c.Request.Context(), number, req.PaymentRef)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrInvalidTransition):
			status = http.StatusConflict
		}
		logger.Error(c.Request.Context(), "Failed to confirm payment", "order", number, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateStatusRequest 状态更新请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// UpdateStatus 推进订单状态
func (h *CheckoutHandler) UpdateStatus(c *gin.Context) {
	number := c.Param("number")
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.commands.UpdateStatus(c.Request.Context(), number, domain.OrderStatus(req.Status), req.Note)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrInvalidTransition):
			status = http.StatusConflict
		}
		logger.Error(c.Request.Context(), "Failed to update order status", "order", number, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelOrderRequest 取消订单请求
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelOrder 取消订单
func (h *CheckoutHandler) CancelOrder(c *gin.Context) {
	number := c.Param("number")
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.commands.CancelOrder(c.Request.Context(), number, req.Reason)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrInvalidTransition):
			status = http.StatusConflict
		}
		logger.Error(c.Request.Context(), "Failed to cancel order", "order", number, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size < 1 || size > 100 {
		size = 20
	}
	return page, size
}
