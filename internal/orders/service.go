package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Nubiru/chamana-sub000/internal/inventory"
	"github.com/Nubiru/chamana-sub000/pkg/db/models"
	"github.com/Nubiru/chamana-sub000/pkg/enums"
	pkgerrors "github.com/Nubiru/chamana-sub000/pkg/errors"
	"github.com/Nubiru/chamana-sub000/pkg/metrics"
	"github.com/Nubiru/chamana-sub000/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockLedger is the slice of the inventory service the order flow consumes.
type stockLedger interface {
	CheckAvailability(ctx context.Context, productID uuid.UUID, qty int) (*inventory.Availability, error)
	ReserveForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, productID uuid.UUID, qty int) error
}

type customerFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// Service defines the order processing operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Complete(ctx context.Context, orderID uuid.UUID, actor ActorInput) error
	Cancel(ctx context.Context, orderID uuid.UUID, actor ActorInput) error
	Process(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	UpdateItems(ctx context.Context, orderID uuid.UUID, input UpdateItemsInput) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*HistoryPage, error)
}

type service struct {
	repo      Repository
	customers customerFinder
	ledger    stockLedger
	tx        txRunner
	metrics   *metrics.OrderMetrics
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, customers customerFinder, ledger stockLedger, tx txRunner, orderMetrics *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer finder required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:      repo,
		customers: customers,
		ledger:    ledger,
		tx:        tx,
		metrics:   orderMetrics,
	}, nil
}

// Create opens a pending order. Stock is checked read-only per line so an
// obviously unfulfillable order is rejected up front, but nothing is held:
// the pending order owns no stock until completion.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateLines(input.Items, input.DiscountCents); err != nil {
		return nil, err
	}
	if err := s.assertCustomer(ctx, input.CustomerID); err != nil {
		return nil, err
	}

	items, subtotal, err := s.buildItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	discount := clampDiscount(input.DiscountCents, subtotal)

	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    input.CustomerID,
		Status:        enums.OrderStatusPending,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
		Notes:         input.Notes,
		Items:         items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		return s.appendHistory(ctx, repo, order.ID, nil, enums.OrderStatusPending, ActorInput{
			ChangedBy: enums.ActorAPI,
			Automatic: true,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCreated()
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// Complete consumes stock for every line and marks the order completed in one
// transaction. Any insufficient line rolls the whole thing back: counters,
// movements, status, and history all stay untouched.
func (s *service) Complete(ctx context.Context, orderID uuid.UUID, actor ActorInput) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	start := time.Now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		return s.completeTx(ctx, tx, repo, order, actor)
	})
	if err != nil {
		return err
	}

	s.metrics.IncCompleted()
	s.metrics.ObserveCompleteDuration(time.Since(start))
	return nil
}

// Cancel marks a pending order cancelled. The ledger is never touched: a
// pending order holds no stock, so there is nothing to return.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor ActorInput) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !CanTransition(order.Status, enums.OrderStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancellation not allowed in current state").
				WithDetails(map[string]any{"status": order.Status})
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		previous := order.Status
		return s.appendHistory(ctx, repo, order.ID, &previous, enums.OrderStatusCancelled, actor)
	})
	if err != nil {
		return err
	}

	s.metrics.IncCancelled()
	return nil
}

// Process is the single-call variant: create plus immediate completion as one
// atomic unit. It composes the same helpers as the two-phase flow, so the same
// root cause always surfaces as the same error kind.
func (s *service) Process(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	if err := validateLines(input.Items, input.DiscountCents); err != nil {
		return nil, err
	}
	if err := s.assertCustomer(ctx, input.CustomerID); err != nil {
		return nil, err
	}

	items, subtotal, err := s.buildItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	discount := clampDiscount(input.DiscountCents, subtotal)

	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    input.CustomerID,
		Status:        enums.OrderStatusPending,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
		Notes:         input.Notes,
		Items:         items,
	}

	start := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		actor := ActorInput{ChangedBy: enums.ActorAPI, Automatic: true}
		if err := s.appendHistory(ctx, repo, order.ID, nil, enums.OrderStatusPending, actor); err != nil {
			return err
		}
		return s.completeTx(ctx, tx, repo, order, actor)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCreated()
	s.metrics.IncCompleted()
	s.metrics.ObserveCompleteDuration(time.Since(start))

	return order, nil
}

// UpdateItems replaces the item set wholesale while the order is pending and
// recomputes every total from scratch.
func (s *service) UpdateItems(ctx context.Context, orderID uuid.UUID, input UpdateItemsInput) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := validateLines(input.Items, input.DiscountCents); err != nil {
		return nil, err
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "items can only change while pending").
				WithDetails(map[string]any{"status": order.Status})
		}

		items, subtotal, err := s.buildItems(ctx, input.Items)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.ReplaceItems(ctx, order.ID, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace items")
		}

		discount := clampDiscount(input.DiscountCents, subtotal)
		updates := map[string]any{
			"subtotal_cents": subtotal,
			"discount_cents": discount,
			"total_cents":    subtotal - discount,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update totals")
		}

		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// History returns one page of the order's status trail, newest first.
func (s *service) History(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if _, err := s.repo.FindByID(ctx, orderID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListHistory(ctx, orderID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list history")
	}

	page := &HistoryPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		last := page.Entries[limit-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		page.NextCursor = &next
	}
	if page.Entries == nil {
		page.Entries = []models.OrderStatusHistory{}
	}
	return page, nil
}

// completeTx runs the completion body inside the caller's transaction. Both
// Complete and Process go through here so the invariants live in one place.
func (s *service) completeTx(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, actor ActorInput) error {
	if !CanTransition(order.Status, enums.OrderStatusCompleted) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "completion not allowed in current state").
			WithDetails(map[string]any{"status": order.Status})
	}
	if len(order.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no items")
	}

	for _, item := range order.Items {
		if err := s.ledger.ReserveForOrder(ctx, tx, order.ID, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":       enums.OrderStatusCompleted,
		"completed_at": now,
	}
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	previous := order.Status
	order.Status = enums.OrderStatusCompleted
	order.CompletedAt = &now
	return s.appendHistory(ctx, repo, order.ID, &previous, enums.OrderStatusCompleted, actor)
}

func (s *service) appendHistory(ctx context.Context, repo Repository, orderID uuid.UUID, previous *enums.OrderStatus, next enums.OrderStatus, actor ActorInput) error {
	changedBy := actor.ChangedBy
	if changedBy == "" {
		changedBy = enums.ActorAPI
	}
	entry := &models.OrderStatusHistory{
		ID:             uuid.New(),
		OrderID:        orderID,
		PreviousStatus: previous,
		NewStatus:      next,
		ChangedBy:      changedBy,
		Automatic:      actor.Automatic,
	}
	if err := repo.CreateHistory(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	return nil
}

func (s *service) assertCustomer(ctx context.Context, customerID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	if !customer.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return nil
}

// buildItems snapshots prices and verifies availability read-only for each
// line. Returns the item rows in input order plus the subtotal.
func (s *service) buildItems(ctx context.Context, inputs []OrderItemInput) ([]models.OrderItem, int, error) {
	items := make([]models.OrderItem, 0, len(inputs))
	subtotal := 0
	for i, line := range inputs {
		avail, err := s.ledger.CheckAvailability(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, 0, err
		}
		if !avail.Sufficient {
			s.metrics.IncStockConflict("create")
			return nil, 0, pkgerrors.New(pkgerrors.CodeStockInsufficient, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": line.ProductID,
					"requested":  line.Quantity,
					"available":  avail.AvailableStock,
				})
		}

		lineSubtotal := line.Quantity * avail.UnitPriceCents
		subtotal += lineSubtotal
		items = append(items, models.OrderItem{
			ID:             uuid.New(),
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPriceCents: avail.UnitPriceCents,
			SubtotalCents:  lineSubtotal,
			Position:       i,
		})
	}
	return items, subtotal, nil
}

func validateLines(items []OrderItemInput, discountCents int) error {
	if discountCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}
	seen := map[uuid.UUID]bool{}
	for _, line := range items {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required on every line")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if seen[line.ProductID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product line").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		seen[line.ProductID] = true
	}
	return nil
}

func clampDiscount(discount, subtotal int) int {
	if discount > subtotal {
		return subtotal
	}
	return discount
}
