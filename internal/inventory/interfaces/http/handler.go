package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/provisionstore/internal/inventory/application"
	"github.com/wyfcoding/provisionstore/internal/inventory/domain"
	"github.com/wyfcoding/provisionstore/pkg/logger"
)

// InventoryHandler 库存 HTTP 处理器
type InventoryHandler struct {
	commands *application.InventoryCommandService
	queries  *application.InventoryQueryService
}

// NewInventoryHandler 创建库存 HTTP 处理器实例
func NewInventoryHandler(commands *application.InventoryCommandService, queries *application.InventoryQueryService) *InventoryHandler {
	return &InventoryHandler{commands: commands, queries: queries}
}

// RegisterRoutes 注册路由
func (h *InventoryHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/inventory")
	{
		api.POST("/products", h.CreateProduct)
		api.POST("/products/import", h.BulkImport)
		api.GET("/products", h.ListProducts)
		api.GET("/products/search", h.SearchProducts)
		api.GET("/products/low-stock", h.ListLowStock)
		api.GET("/products/:id", h.GetProduct)
		api.PUT("/products/:id", h.UpdateProduct)
		api.DELETE("/products/:id", h.DeleteProduct)
		api.POST("/products/:id/restock", h.Restock)
		api.POST("/products/:id/adjust", h.AdjustStock)
		api.GET("/products/:id/movements", h.ListMovements)
		api.POST("/reservations", h.Reserve)
		api.POST("/releases", h.Release)
		api.GET("/summary", h.Summary)
	}
}

// ProductRequest 商品创建/更新请求
type ProductRequest struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Unit         string  `json:"unit"`
	Price        float64 `json:"price" binding:"required,gt=0"`
	Discount     float64 `json:"discount"`
	Stock        int     `json:"stock"`
	ReorderPoint int     `json:"reorder_point"`
	Active       *bool   `json:"active"`
}

// CreateProduct 创建商品
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.commands.CreateProduct(c.Request.Context(), application.CreateProductCommand{
		SKU:          req.SKU,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Unit:         req.Unit,
		Price:        decimal.NewFromFloat(req.Price),
		Discount:     decimal.NewFromFloat(req.Discount),
		Stock:        req.Stock,
		ReorderPoint: req.ReorderPoint,
	})
	if err != nil {
		status := http.StatusInternalServerError
		var invalid *domain.ValidationError
		if errors.Is(err, domain.ErrDuplicateSKU) {
			status = http.StatusConflict
		} else if errors.As(err, &invalid) {
			status = http.StatusBadRequest
		}
		logger.Error(c.Request.Context(), "Failed to create product", "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product_id": id})
}

// BulkImportRequest 批量导入请求
type BulkImportRequest struct {
	Products []ProductRequest `json:"products" binding:"required,min=1"`
}

// BulkImport 批量导入商品
func (h *InventoryHandler) BulkImport(c *gin.Context) {
	var req BulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmds := make([]application.CreateProductCommand, 0, len(req.Products))
	for _, p := range req.Products {
		cmds = append(cmds, application.CreateProductCommand{
			SKU:          p.SKU,
			Name:         p.Name,
			Description:  p.Description,
			Category:     p.Category,
			Unit:         p.Unit,
			Price:        decimal.NewFromFloat(p.Price),
			Discount:     decimal.NewFromFloat(p.Discount),
			Stock:        p.Stock,
			ReorderPoint: p.ReorderPoint,
		})
	}

	imported, failures := h.commands.BulkImport(c.Request.Context(), cmds)
	errMsgs := make([]string, 0, len(failures))
	for _, e := range failures {
		errMsgs = append(errMsgs, e.Error())
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported, "failed": len(failures), "errors": errMsgs})
}

// GetProduct 获取商品详情
func (h *InventoryHandler) GetProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	product, err := h.queries.GetProduct(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "Failed to get product", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, product)
}

// ListProducts 分页列出商品
func (h *InventoryHandler) ListProducts(c *gin.Context) {
	page, size := parsePagination(c)
	category := c.Query("category")
	activeOnly := c.DefaultQuery("active_only", "false") == "true"

	products, total, err := h.queries.ListProducts(c.Request.Context(), category, activeOnly, page, size)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list products", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "total": total, "page": page, "size": size})
}

// SearchProducts 搜索商品
func (h *InventoryHandler) SearchProducts(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	page, size := parsePagination(c)

	products, total, err := h.queries.SearchProducts(c.Request.Context(), keyword, page, size)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to search products", "keyword", keyword, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "total": total, "page": page, "size": size})
}

// ListLowStock 列出低库存商品
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	products, err := h.queries.ListLowStock(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list low stock products", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// UpdateProduct 更新商品
func (h *InventoryHandler) UpdateProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.commands.UpdateProduct(c.Request.Context(), application.UpdateProductCommand{
		ID:           id,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Unit:         req.Unit,
		Price:        decimal.NewFromFloat(req.Price),
		Discount:     decimal.NewFromFloat(req.Discount),
		ReorderPoint: req.ReorderPoint,
		Active:       req.Active,
	})
	if err != nil {
		var invalid *domain.ValidationError
		if errors.Is(err, domain.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "Failed to update product", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// DeleteProduct 删除商品
func (h *InventoryHandler) DeleteProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := h.commands.DeleteProduct(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "Failed to delete product", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// StockChangeRequest 补货/调整请求
type StockChangeRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	Note     string `json:"note"`
}

// Restock 补货
func (h *InventoryHandler) Restock(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req StockChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.commands.Restock(c.Request.Context(), id, req.Quantity, req.Note)
	if err != nil {
		status := statusForStockError(err)
		logger.Error(c.Request.Context(), "Failed to restock product", "product_id", id, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, product)
}

// AdjustStock 人工调整库存
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req StockChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.commands.AdjustStock(c.Request.Context(), id, req.Quantity, req.Note)
	if err != nil {
		status := statusForStockError(err)
		logger.Error(c.Request.Context(), "Failed to adjust stock", "product_id", id, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, product)
}

// ListMovements 列出库存流水
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	page, size := parsePagination(c)

	movements, total, err := h.queries.ListMovements(c.Request.Context(), id, page, size)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list stock movements", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"movements": movements, "total": total, "page": page, "size": size})
}

// ReservationRequest 预留/返还请求
type ReservationRequest struct {
	Reference string `json:"reference" binding:"required"`
	Lines     []struct {
		ProductID uint `json:"product_id" binding:"required"`
		Quantity  int  `json:"quantity" binding:"required,gt=0"`
	} `json:"lines" binding:"required,min=1"`
}

// Reserve 预留库存
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]application.ReserveLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, application.ReserveLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	reserved, err := h.commands.Reserve(c.Request.Context(), req.Reference, lines)
	if err != nil {
		status := statusForStockError(err)
		logger.Error(c.Request.Context(), "Failed to reserve stock", "reference", req.Reference, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reference": req.Reference, "reserved": reserved})
}

// Release 返还库存
func (h *InventoryHandler) Release(c *gin.Context) {
	var req ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]application.ReserveLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, application.ReserveLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	released, err := h.commands.Release(c.Request.Context(), req.Reference, lines)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to release stock", "reference", req.Reference, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reference": req.Reference, "released": released})
}

// Summary 库存概览
func (h *InventoryHandler) Summary(c *gin.Context) {
	summary, err := h.queries.Summary(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to build inventory summary", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return uint(id), err
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

func statusForStockError(err error) int {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrProductInactive):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
