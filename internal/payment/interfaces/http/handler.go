package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/provisionstore/internal/payment/application"
	"github.com/wyfcoding/provisionstore/internal/payment/domain"
	"github.com/wyfcoding/provisionstore/pkg/logger"
)

// PaymentHandler 支付 HTTP 处理器
type PaymentHandler struct {
	commands *application.PaymentCommandService
	queries  *application.PaymentQueryService
}

// NewPaymentHandler 创建支付 HTTP 处理器实例
func NewPaymentHandler(commands *application.PaymentCommandService, queries *application.PaymentQueryService) *PaymentHandler {
	return &PaymentHandler{commands: commands, queries: queries}
}

// RegisterRoutes 注册路由
func (h *PaymentHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/payments")
	{
		api.GET("/methods", h.ListMethods)
		api.POST("", h.InitializePayment)
		api.GET("/:reference", h.GetPayment)
		api.POST("/:reference/verify", h.VerifyPayment)
		api.GET("/order/:number", h.ListByOrder)
	}
}

// InitializePaymentRequest 发起支付请求
type InitializePaymentRequest struct {
	OrderNumber string  `json:"order_number" binding:"required"`
	UserID      string  `json:"user_id" binding:"required"`
	Email       string  `json:"email" binding:"required,email"`
	Method      string  `json:"method" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency"`
}

// InitializePayment 发起支付
func (h *PaymentHandler) InitializePayment(c *gin.Context) {
	var req InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.commands.InitializePayment(c.Request.Context(), application.InitializePaymentCommand{
		OrderNumber: req.OrderNumber,
		UserID:      req.UserID,
		Email:       req.Email,
		Method:      req.Method,
		Amount:      decimal.NewFromFloat(req.Amount),
		Currency:    req.Currency,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrUnknownProvider), errors.Is(err, domain.ErrInvalidAmount):
			status = http.StatusBadRequest
		}
		logger.Error(c.Request.Context(), "Failed to initialize payment", "order", req.OrderNumber, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// VerifyPayment 核对支付结果
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	payment, err := h.commands.VerifyPayment(c.Request.Context(), c.Param("reference"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrPaymentNotFound) {
			status = http.StatusNotFound
		}
		logger.Error(c.Request.Context(), "Failed to verify payment", "reference", c.Param("reference"), "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// GetPayment 查询支付单
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.queries.GetPayment(c.Request.Context(), c.Param("reference"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrPaymentNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ListByOrder 查询订单支付记录
func (h *PaymentHandler) ListByOrder(c *gin.Context) {
	payments, err := h.queries.ListByOrder(c.Request.Context(), c.Param("number"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments, "total": len(payments)})
}

// ListMethods 列出支付方式
func (h *PaymentHandler) ListMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"methods": h.queries.ListMethods(c.Request.Context())})
}
