package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Nubiru/chamana-sub000/pkg/enums"
)

// InventoryMovement records one immutable stock change with the counter value
// before and after. Rows are append-only: never updated, never deleted. The
// sum of sale-type quantities for a product always equals its sold_stock.
type InventoryMovement struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index"`
	Type        enums.MovementType `gorm:"column:type;type:text;not null"`
	Quantity    int                `gorm:"column:quantity;not null"`
	StockBefore int                `gorm:"column:stock_before;not null"`
	StockNew    int                `gorm:"column:stock_new;not null"`
	OrderID     *uuid.UUID         `gorm:"column:order_id;type:uuid"`
	Reason      string             `gorm:"column:reason;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}
