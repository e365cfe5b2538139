package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/Nubiru/chamana-sub000/internal/orders"
	"github.com/Nubiru/chamana-sub000/pkg/db/models"
	"github.com/Nubiru/chamana-sub000/pkg/enums"
)

type orderItemView struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	SubtotalCents  int       `json:"subtotal_cents"`
	Position       int       `json:"position"`
}

type orderView struct {
	ID            uuid.UUID         `json:"id"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	Status        enums.OrderStatus `json:"status"`
	SubtotalCents int               `json:"subtotal_cents"`
	DiscountCents int               `json:"discount_cents"`
	TotalCents    int               `json:"total_cents"`
	Notes         *string           `json:"notes,omitempty"`
	Items         []orderItemView   `json:"items"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	CancelledAt   *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func newOrderView(order *models.Order) orderView {
	items := make([]orderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemView{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			SubtotalCents:  item.SubtotalCents,
			Position:       item.Position,
		})
	}
	return orderView{
		ID:            order.ID,
		CustomerID:    order.CustomerID,
		Status:        order.Status,
		SubtotalCents: order.SubtotalCents,
		DiscountCents: order.DiscountCents,
		TotalCents:    order.TotalCents,
		Notes:         order.Notes,
		Items:         items,
		CompletedAt:   order.CompletedAt,
		CancelledAt:   order.CancelledAt,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

type historyEntryView struct {
	ID             uuid.UUID          `json:"id"`
	OrderID        uuid.UUID          `json:"order_id"`
	PreviousStatus *enums.OrderStatus `json:"previous_status,omitempty"`
	NewStatus      enums.OrderStatus  `json:"new_status"`
	ChangedBy      string             `json:"changed_by"`
	Automatic      bool               `json:"automatic"`
	CreatedAt      time.Time          `json:"created_at"`
}

type historyPageView struct {
	Entries    []historyEntryView `json:"entries"`
	NextCursor *string            `json:"next_cursor,omitempty"`
}

func newHistoryPageView(page *orders.HistoryPage) historyPageView {
	entries := make([]historyEntryView, 0, len(page.Entries))
	for _, entry := range page.Entries {
		entries = append(entries, historyEntryView{
			ID:             entry.ID,
			OrderID:        entry.OrderID,
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
			ChangedBy:      entry.ChangedBy,
			Automatic:      entry.Automatic,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return historyPageView{Entries: entries, NextCursor: page.NextCursor}
}

type productView struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	UnitPriceCents int        `json:"unit_price_cents"`
	IsActive       bool       `json:"is_active"`
	InitialStock   int        `json:"initial_stock"`
	SoldStock      int        `json:"sold_stock"`
	AvailableStock int        `json:"available_stock"`
	LastSoldAt     *time.Time `json:"last_sold_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func newProductView(product *models.Product) productView {
	return productView{
		ID:             product.ID,
		Name:           product.Name,
		UnitPriceCents: product.UnitPriceCents,
		IsActive:       product.IsActive,
		InitialStock:   product.InitialStock,
		SoldStock:      product.SoldStock,
		AvailableStock: product.AvailableStock(),
		LastSoldAt:     product.LastSoldAt,
		CreatedAt:      product.CreatedAt,
		UpdatedAt:      product.UpdatedAt,
	}
}

type movementView struct {
	ID          uuid.UUID          `json:"id"`
	ProductID   uuid.UUID          `json:"product_id"`
	Type        enums.MovementType `json:"type"`
	Quantity    int                `json:"quantity"`
	StockBefore int                `json:"stock_before"`
	StockNew    int                `json:"stock_new"`
	OrderID     *uuid.UUID         `json:"order_id,omitempty"`
	Reason      string             `json:"reason"`
	CreatedAt   time.Time          `json:"created_at"`
}

type movementPageView struct {
	Movements  []movementView `json:"movements"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

func newMovementViews(movements []models.InventoryMovement, next *string) movementPageView {
	rows := make([]movementView, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, movementView{
			ID:          m.ID,
			ProductID:   m.ProductID,
			Type:        m.Type,
			Quantity:    m.Quantity,
			StockBefore: m.StockBefore,
			StockNew:    m.StockNew,
			OrderID:     m.OrderID,
			Reason:      m.Reason,
			CreatedAt:   m.CreatedAt,
		})
	}
	return movementPageView{Movements: rows, NextCursor: next}
}
