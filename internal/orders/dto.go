package orders

import (
	"github.com/google/uuid"

	"github.com/Nubiru/chamana-sub000/pkg/db/models"
)

// OrderItemInput is one requested line. The unit price is snapshotted from
// the product at write time, never taken from the caller.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput captures everything needed to open an order.
type CreateOrderInput struct {
	CustomerID    uuid.UUID
	Items         []OrderItemInput
	DiscountCents int
	Notes         *string
}

// UpdateItemsInput replaces an order's item set wholesale.
type UpdateItemsInput struct {
	Items         []OrderItemInput
	DiscountCents int
}

// ActorInput identifies who drove a status transition.
type ActorInput struct {
	ChangedBy string
	Automatic bool
}

// HistoryPage is one page of an order's status history, newest first.
type HistoryPage struct {
	Entries    []models.OrderStatusHistory `json:"entries"`
	NextCursor *string                     `json:"next_cursor,omitempty"`
}
