package domain

import "gorm.io/gorm"

// MovementType 库存流水类型
type MovementType string

const (
	MovementReserve MovementType = "RESERVE" // 下单预留扣减
	MovementRelease MovementType = "RELEASE" // 取消/回滚返还
	MovementRestock MovementType = "RESTOCK" // 进货补货
	MovementAdjust  MovementType = "ADJUST"  // 人工盘点调整
	MovementImport  MovementType = "IMPORT"  // 批量导入初始化
)

// StockMovement 库存流水，记录每一次库存变动的审计信息
type StockMovement struct {
	gorm.Model
	ProductID uint         `gorm:"column:product_id;index;not null" json:"product_id"`
	SKU       string       `gorm:"column:sku;type:varchar(64);index" json:"sku"`
	Type      MovementType `gorm:"column:type;type:varchar(16);not null" json:"type"`
	Quantity  int          `gorm:"column:quantity;not null" json:"quantity"`
	Before    int          `gorm:"column:stock_before;not null" json:"stock_before"`
	After     int          `gorm:"column:stock_after;not null" json:"stock_after"`
	Reference string       `gorm:"column:reference;type:varchar(64);index" json:"reference"`
	Note      string       `gorm:"column:note;type:varchar(255)" json:"note"`
}

func (StockMovement) TableName() string { return "stock_movements" }
