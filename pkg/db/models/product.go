package models

import (
	"time"

	"github.com/google/uuid"
)

// Product carries the stock ledger counters. available stock is derived from
// initial - sold and is never written by application code; in Postgres the
// available_stock column is GENERATED (see migrations), so the struct exposes
// it as a method instead of a field.
type Product struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string     `gorm:"column:name;not null"`
	UnitPriceCents int        `gorm:"column:unit_price_cents;not null"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true"`
	InitialStock   int        `gorm:"column:initial_stock;not null;default:0"`
	SoldStock      int        `gorm:"column:sold_stock;not null;default:0"`
	LastSoldAt     *time.Time `gorm:"column:last_sold_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailableStock returns how many units can still be sold.
func (p *Product) AvailableStock() int {
	return p.InitialStock - p.SoldStock
}
