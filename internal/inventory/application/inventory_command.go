package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/provisionstore/internal/inventory/domain"
	"github.com/wyfcoding/provisionstore/pkg/logger"
)

// TransactionManager 事务边界接口，由基础设施层实现
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreateProductCommand 创建商品命令
type CreateProductCommand struct {
	SKU          string
	Name         string
	Description  string
	Category     string
	Unit         string
	Price        decimal.Decimal
	Discount     decimal.Decimal
	Stock        int
	ReorderPoint int
}

// UpdateProductCommand 更新商品命令
type UpdateProductCommand struct {
	ID           uint
	Name         string
	Description  string
	Category     string
	Unit         string
	Price        decimal.Decimal
	Discount     decimal.Decimal
	ReorderPoint int
	Active       *bool
}

// ReserveLine 预留请求明细
type ReserveLine struct {
	ProductID uint
	Quantity  int
}

// InventoryCommandService 库存命令服务。
// 预留/返还操作串行执行，保证多商品预留在并发下单时的原子性。
type InventoryCommandService struct {
	mu                sync.Mutex
	products          domain.ProductRepository
	movements         domain.StockMovementRepository
	publisher         domain.EventPublisher
	txm               TransactionManager
	lowStockThreshold int
}

// NewInventoryCommandService 创建库存命令服务实例
func NewInventoryCommandService(
	products domain.ProductRepository,
	movements domain.StockMovementRepository,
	publisher domain.EventPublisher,
	txm TransactionManager,
	lowStockThreshold int,
) *InventoryCommandService {
	return &InventoryCommandService{
		products:          products,
		movements:         movements,
		publisher:         publisher,
		txm:               txm,
		lowStockThreshold: lowStockThreshold,
	}
}

// CreateProduct 处理创建商品
func (s *InventoryCommandService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (uint, error) {
	product := &domain.Product{
		SKU:          cmd.SKU,
		Name:         cmd.Name,
		Description:  cmd.Description,
		Category:     cmd.Category,
		Unit:         cmd.Unit,
		Price:        cmd.Price,
		Discount:     cmd.Discount,
		Stock:        cmd.Stock,
		ReorderPoint: cmd.ReorderPoint,
		Active:       true,
	}
	if err := product.Validate(); err != nil {
		return 0, err
	}

	if existing, err := s.products.GetBySKU(ctx, cmd.SKU); err == nil && existing != nil {
		return 0, domain.ErrDuplicateSKU
	}

	err := s.txm.Transaction(ctx, func(txCtx context.Context) error {
		if err := s.products.Save(txCtx, product); err != nil {
			return err
		}
		if product.Stock > 0 {
			return s.movements.Save(txCtx, &domain.StockMovement{
				ProductID: product.ID,
				SKU:       product.SKU,
				Type:      domain.MovementImport,
				Quantity:  product.Stock,
				Before:    0,
				After:     product.Stock,
				Note:      "initial stock",
			})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	event := domain.ProductCreatedEvent{
		ProductID: product.ID,
		SKU:       product.SKU,
		Name:      product.Name,
		Price:     product.Price.String(),
		Stock:     product.Stock,
		Category:  product.Category,
		Timestamp: time.Now(),
	}
	if err := s.publisher.Publish(ctx, domain.TopicProductCreated, product.SKU, event); err != nil {
		logger.Warn(ctx, "failed to publish product created event", "sku", product.SKU, "error", err)
	}
	s.notifyThresholds(ctx, []*domain.Product{product})

	return product.ID, nil
}

// UpdateProduct 处理更新商品，库存不在此处修改
func (s *InventoryCommandService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) error {
	product, err := s.products.GetByID(ctx, cmd.ID)
	if err != nil {
		return err
	}

	product.Name = cmd.Name
	product.Description = cmd.Description
	product.Category = cmd.Category
	product.Unit = cmd.Unit
	product.Price = cmd.Price
	product.Discount = cmd.Discount
	product.ReorderPoint = cmd.ReorderPoint
	if cmd.Active != nil {
		product.Active = *cmd.Active
	}
	if err := product.Validate(); err != nil {
		return err
	}

	if err := s.products.Update(ctx, product); err != nil {
		return err
	}

	event := domain.ProductUpdatedEvent{
		ProductID: product.ID,
		SKU:       product.SKU,
		Name:      product.Name,
		Price:     product.Price.String(),
		Stock:     product.Stock,
		Category:  product.Category,
		Timestamp: time.Now(),
	}
	if err := s.publisher.Publish(ctx, domain.TopicProductUpdated, product.SKU, event); err != nil {
		logger.Warn(ctx, "failed to publish product updated event", "sku", product.SKU, "error", err)
	}
	return nil
}

// DeleteProduct 下架并删除商品
func (s *InventoryCommandService) DeleteProduct(ctx context.Context, id uint) error {
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return err
	}
	return s.products.Delete(ctx, id)
}

// Reserve 两阶段预留：先对全部行做干跑校验，任何一行不满足则整体失败；
// 落库阶段逐行扣减，若某一行失败则对已扣减的行做补偿返还。
func (s *InventoryCommandService) Reserve(ctx context.Context, reference string, lines []ReserveLine) ([]domain.ReservedLine, error) {
	if len(lines) == 0 {
		return nil, domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 同一商品的多行先合并为一行，避免各行各自对全量库存校验
	merged := make([]ReserveLine, 0, len(lines))
	slot := make(map[uint]int, len(lines))
	var violations []error
	for _, line := range lines {
		if line.Quantity <= 0 {
			violations = append(violations, fmt.Errorf("product %d: %w", line.ProductID, domain.ErrInvalidQuantity))
			continue
		}
		if i, ok := slot[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		slot[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	lines = merged

	// 阶段一：干跑校验，汇总全部不满足的行再整体拒绝
	products := make([]*domain.Product, 0, len(lines))
	for _, line := range lines {
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			violations = append(violations, fmt.Errorf("product %d: %w", line.ProductID, domain.ErrProductNotFound))
			continue
		}
		if !product.Active {
			violations = append(violations, fmt.Errorf("product %s: %w", product.SKU, domain.ErrProductInactive))
			continue
		}
		if !product.InStock(line.Quantity) {
			violations = append(violations, fmt.Errorf("product %s has %d in stock, requested %d: %w",
				product.SKU, product.Stock, line.Quantity, domain.ErrInsufficientStock))
			continue
		}
		products = append(products, product)
	}
	if len(violations) > 0 {
		return nil, errors.Join(violations...)
	}

	// 阶段二：逐行扣减，失败时补偿已扣减的行
	reserved := make([]domain.ReservedLine, 0, len(lines))
	applied := make([]int, 0, len(lines))
	var applyErr error
	for i, line := range lines {
		product := products[i]
		before := product.Stock
		if err := product.AdjustStock(-line.Quantity); err != nil {
			applyErr = err
			break
		}
		if err := s.products.Update(ctx, product); err != nil {
			product.Stock = before
			applyErr = err
			break
		}
		applied = append(applied, i)
		reserved = append(reserved, domain.ReservedLine{
			ProductID: product.ID,
			SKU:       product.SKU,
			Quantity:  line.Quantity,
			Remaining: product.Stock,
		})
		s.recordMovement(ctx, product, domain.MovementReserve, -line.Quantity, before, reference, "")
	}

	if applyErr != nil {
		for _, i := range applied {
			product := products[i]
			before := product.Stock
			if err := product.AdjustStock(lines[i].Quantity); err != nil {
				logger.Error(ctx, "compensation adjust failed", "sku", product.SKU, "error", err)
				continue
			}
			if err := s.products.Update(ctx, product); err != nil {
				logger.Error(ctx, "compensation update failed", "sku", product.SKU, "error", err)
				continue
			}
			s.recordMovement(ctx, product, domain.MovementRelease, lines[i].Quantity, before, reference, "reserve compensation")
		}
		return nil, applyErr
	}

	s.notifyThresholds(ctx, products)

	event := domain.StockReservedEvent{Reference: reference, Lines: reserved, Timestamp: time.Now()}
	if err := s.publisher.Publish(ctx, domain.TopicStockReserved, reference, event); err != nil {
		logger.Warn(ctx, "failed to publish stock reserved event", "reference", reference, "error", err)
	}

	return reserved, nil
}

// Release 返还预留库存。单行失败被记入返回错误，其余行继续返还。
func (s *InventoryCommandService) Release(ctx context.Context, reference string, lines []ReserveLine) ([]domain.ReservedLine, error) {
	if len(lines) == 0 {
		return nil, domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	released := make([]domain.ReservedLine, 0, len(lines))
	var failures []error
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			failures = append(failures, fmt.Errorf("product %d: %w", line.ProductID, domain.ErrProductNotFound))
			continue
		}
		before := product.Stock
		if err := product.AdjustStock(line.Quantity); err != nil {
			failures = append(failures, fmt.Errorf("product %s: %w", product.SKU, err))
			continue
		}
		if err := s.products.Update(ctx, product); err != nil {
			failures = append(failures, fmt.Errorf("product %s: %w", product.SKU, err))
			continue
		}
		released = append(released, domain.ReservedLine{
			ProductID: product.ID,
			SKU:       product.SKU,
			Quantity:  line.Quantity,
			Remaining: product.Stock,
		})
		s.recordMovement(ctx, product, domain.MovementRelease, line.Quantity, before, reference, "")
	}

	if len(released) > 0 {
		event := domain.StockReleasedEvent{Reference: reference, Lines: released, Timestamp: time.Now()}
		if err := s.publisher.Publish(ctx, domain.TopicStockReleased, reference, event); err != nil {
			logger.Warn(ctx, "failed to publish stock released event", "reference", reference, "error", err)
		}
	}

	return released, errors.Join(failures...)
}

// Restock 进货补货
func (s *InventoryCommandService) Restock(ctx context.Context, productID uint, quantity int, note string) (*domain.Product, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	before := product.Stock
	if err := product.AdjustStock(quantity); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	s.recordMovement(ctx, product, domain.MovementRestock, quantity, before, "", note)
	s.notifyThresholds(ctx, []*domain.Product{product})
	return product, nil
}

// AdjustStock 人工盘点调整，delta 可正可负
func (s *InventoryCommandService) AdjustStock(ctx context.Context, productID uint, delta int, note string) (*domain.Product, error) {
	if delta == 0 {
		return nil, domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	before := product.Stock
	if err := product.AdjustStock(delta); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	s.recordMovement(ctx, product, domain.MovementAdjust, delta, before, "", note)
	s.notifyThresholds(ctx, []*domain.Product{product})
	return product, nil
}

// BulkImport 批量导入商品，逐条处理，返回成功数与每条失败原因
func (s *InventoryCommandService) BulkImport(ctx context.Context, cmds []CreateProductCommand) (int, []error) {
	imported := 0
	failures := make([]error, 0)
	for i, cmd := range cmds {
		if _, err := s.CreateProduct(ctx, cmd); err != nil {
			failures = append(failures, fmt.Errorf("row %d (%s): %w", i+1, cmd.SKU, err))
			continue
		}
		imported++
	}
	return imported, failures
}

// recordMovement 写库存流水，失败不阻断主流程
func (s *InventoryCommandService) recordMovement(ctx context.Context, product *domain.Product, typ domain.MovementType, quantity, before int, reference, note string) {
	movement := &domain.StockMovement{
		ProductID: product.ID,
		SKU:       product.SKU,
		Type:      typ,
		Quantity:  quantity,
		Before:    before,
		After:     product.Stock,
		Reference: reference,
		Note:      note,
	}
	if err := s.movements.Save(ctx, movement); err != nil {
		logger.Warn(ctx, "failed to record stock movement", "sku", product.SKU, "type", typ, "error", err)
	}
}

// notifyThresholds 对越过低库存/售罄阈值的商品发布预警事件
func (s *InventoryCommandService) notifyThresholds(ctx context.Context, products []*domain.Product) {
	for _, product := range products {
		if product.IsStockOut() {
			event := domain.StockOutEvent{
				ProductID: product.ID,
				SKU:       product.SKU,
				Name:      product.Name,
				Timestamp: time.Now(),
			}
			if err := s.publisher.Publish(ctx, domain.TopicStockOut, product.SKU, event); err != nil {
				logger.Warn(ctx, "failed to publish stock out event", "sku", product.SKU, "error", err)
			}
			continue
		}
		threshold := product.LowStockPoint(s.lowStockThreshold)
		if product.IsLowStock(threshold) {
			event := domain.LowStockEvent{
				ProductID: product.ID,
				SKU:       product.SKU,
				Name:      product.Name,
				Stock:     product.Stock,
				Threshold: threshold,
				Timestamp: time.Now(),
			}
			if err := s.publisher.Publish(ctx, domain.TopicLowStock, product.SKU, event); err != nil {
				logger.Warn(ctx, "failed to publish low stock event", "sku", product.SKU, "error", err)
			}
		}
	}
}
