package inventory

import (
	"github.com/google/uuid"

	"github.com/Nubiru/chamana-sub000/pkg/db/models"
)

// Availability is a point-in-time snapshot of a product's stock counters. It
// carries no reservation: callers must still expect the commit to fail.
type Availability struct {
	ProductID      uuid.UUID `json:"product_id"`
	RequestedQty   int       `json:"requested_qty"`
	InitialStock   int       `json:"initial_stock"`
	SoldStock      int       `json:"sold_stock"`
	AvailableStock int       `json:"available_stock"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Sufficient     bool      `json:"sufficient"`
}

// StockSnapshot carries the counters a stock update produced, read back from
// the statement itself. A concurrent writer committing between a caller's read
// and the update cannot skew these values.
type StockSnapshot struct {
	InitialStock int
	SoldStock    int
}

// Available returns the sellable units the snapshot describes.
func (s StockSnapshot) Available() int {
	return s.InitialStock - s.SoldStock
}

// RestockInput captures a stock entry for a product.
type RestockInput struct {
	ProductID uuid.UUID
	Quantity  int
	Reason    string
}

// MovementPage is one page of a product's movement log, newest first.
type MovementPage struct {
	Movements  []models.InventoryMovement `json:"movements"`
	NextCursor *string                    `json:"next_cursor,omitempty"`
}
