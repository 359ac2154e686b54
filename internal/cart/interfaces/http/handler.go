package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/provisionstore/internal/cart/application"
	"github.com/wyfcoding/provisionstore/internal/cart/domain"
	"github.com/wyfcoding/provisionstore/pkg/logger"
)

// CartHandler 购物车 HTTP 处理器
type CartHandler struct {
	commands *application.CartCommandService
	queries  *application.CartQueryService
}

// NewCartHandler 创建购物车 HTTP 处理器实例
func NewCartHandler(commands *application.CartCommandService, queries *application.CartQueryService) *CartHandler {
	return &CartHandler{commands: commands, queries: queries}
}

// RegisterRoutes 注册路由
func (h *CartHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/cart")
	{
		api.GET("/regions", h.ListRegions)
		api.GET("/:user_id", h.GetCart)
		api.POST("/:user_id/items", h.AddItem)
		api.PUT("/:user_id/items/:product_id", h.UpdateItemQuantity)
		api.DELETE("/:user_id/items/:product_id", h.RemoveItem)
		api.DELETE("/:user_id", h.ClearCart)
		api.PUT("/:user_id/customer", h.SetCustomer)
		api.PUT("/:user_id/address", h.SetShippingAddress)
		api.PUT("/:user_id/region", h.SetDeliveryRegion)
		api.PUT("/:user_id/payment-method", h.SetPaymentMethod)
		api.POST("/:user_id/discount", h.ApplyDiscountCode)
		api.DELETE("/:user_id/discount", h.RemoveDiscountCode)
		api.GET("/:user_id/quote", h.GetQuote)
		api.POST("/:user_id/validate", h.Validate)
	}
}

// AddItemRequest 加入购物车请求
type AddItemRequest struct {
	ProductID uint              `json:"product_id" binding:"required"`
	Quantity  int               `json:"quantity" binding:"required,gt=0"`
	Options   map[string]string `json:"options"`
}

// AddItem 加入商品
func (h *CartHandler) AddItem(c *gin.Context) {
	userID := c.Param("user_id")
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.commands.AddItem(c.Request.Context(), application.AddItemCommand{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Options:   req.Options,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrStockHeadroom) {
			status = http.StatusConflict
		} else if errors.Is(err, domain.ErrInvalidQuantity) {
			status = http.StatusBadRequest
		}
		logger.Error(c.Request.Context(), "Failed to add cart item", "user_id", userID, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cart)
}

// UpdateQuantityRequest 更新数量请求
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItemQuantity 更新条目数量
func (h *CartHandler) UpdateItemQuantity(c *gin.Context) {
	userID := c.Param("user_id")
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.commands.UpdateItemQuantity(c.Request.Context(), userID, uint(productID), req.Quantity)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrCartNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrStockHeadroom):
			status = http.StatusConflict
		case errors.Is(err, domain.ErrInvalidQuantity):
			status = http.StatusBadRequest
		}
		logger.Error(c.Request.Context(), "Failed to update cart item", "user_id", userID, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cart)
}

// RemoveItem 移除条目
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID := c.Param("user_id")
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	cart, err := h.commands.RemoveItem(c.Request.Context(), userID, uint(productID))
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) || errors.Is(err, domain.ErrCartNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "Failed to remove cart item", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cart)
}

// ClearCart 清空购物车
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID := c.Param("user_id")
	if err := h.commands.ClearCart(c.Request.Context(), userID); err != nil {
		logger.Error(c.Request.Context(), "Failed to clear cart", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// GetCart 获取购物车
func (h *CartHandler) GetCart(c *gin.Context) {
	userID := c.Param("user_id")
	cart, err := h.queries.GetCart(c.Request.Context(), userID)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to get cart", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// GetQuote 购物车报价
func (h *CartHandler) GetQuote(c *gin.Context) {
	userID := c.Param("user_id")
	region := c.Query("region")
	discountCode := c.Query("discount_code")

	quote, err := h.queries.GetQuote(c.Request.Context(), userID, region, discountCode)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrCartEmpty):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrUnknownRegion), errors.Is(err, domain.ErrInvalidDiscountCode):
			status = http.StatusBadRequest
		}
		logger.Error(c.Request.Context(), "Failed to quote cart", "user_id", userID, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, quote)
}

// SetCustomerRequest 客户信息请求
type SetCustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone"`
}

// SetCustomer 记录客户信息
func (h *CartHandler) SetCustomer(c *gin.Context) {
	userID := c.Param("user_id")
	var req SetCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.commands.SetCustomer(c.Request.Context(), userID, domain.Customer{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to set cart customer", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// SetAddressRequest 收货地址请求
type SetAddressRequest struct {
	Street string `json:"street" binding:"required"`
	City   string `json:"city"`
	State  string `json:"state"`
}

// SetShippingAddress 记录收货地址，按州名自动匹配配送区域
func (h *CartHandler) SetShippingAddress(c *gin.Context) {
	userID := c.Param("user_id")
	var req SetAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.commands.SetShippingAddress(c.Request.Context(), userID, domain.Address{
		Street: req.Street,
		City:   req.City,
		State:  req.State,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to set shipping address", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// SetRegionRequest 配送区域请求
type SetRegionRequest struct {
	Region string `json:"region" binding:"required"`
}

// SetDeliveryRegion 选择配送区域
func (h *CartHandler) SetDeliveryRegion(c *gin.Context) {
	userID := c.Param("user_id")
	var req SetRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.commands.SetDeliveryRegion(c.Request.Context(), userID, req.Region)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownRegion) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "Failed to set delivery region", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// SetPaymentMethodRequest 支付方式请求
type SetPaymentMethodRequest struct {
	Method string `json:"method" binding:"required"`
}

// SetPaymentMethod 选择支付方式
func (h *CartHandler) SetPaymentMethod(c *gin.Context) {
	userID := c.Param("user_id")
	var req SetPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.commands.SetPaymentMethod(c.Request.Context(), userID, req.Method)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPaymentMethod) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "Failed to set payment method", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ApplyDiscountRequest 折扣码请求
type ApplyDiscountRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyDiscountCode 应用折扣码
func (h *CartHandler) ApplyDiscountCode(c *gin.Context) {
	userID := c.Param("user_id")
	var req ApplyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.commands.ApplyDiscountCode(c.Request.Context(), userID, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDiscountCode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "Failed to apply discount code", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// RemoveDiscountCode 移除折扣码
func (h *CartHandler) RemoveDiscountCode(c *gin.Context) {
	userID := c.Param("user_id")
	cart, err := h.commands.RemoveDiscountCode(c.Request.Context(), userID)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to remove discount code", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ValidateRequest 结算前校验请求，未给出的字段回退到购物车上保存的选择
type ValidateRequest struct {
	Region        string `json:"region"`
	DiscountCode  string `json:"discount_code"`
	PaymentMethod string `json:"payment_method"`
}

// Validate 结算前校验
func (h *CartHandler) Validate(c *gin.Context) {
	userID := c.Param("user_id")
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.commands.ValidateForCheckout(c.Request.Context(), userID, application.CheckoutContext{
		Region:        req.Region,
		DiscountCode:  req.DiscountCode,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to validate cart", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if !result.Valid {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// ListRegions 列出配送区域
func (h *CartHandler) ListRegions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"regions": h.queries.ListRegions(c.Request.Context())})
}
