package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Nubiru/chamana-sub000/pkg/db/models"
	"github.com/Nubiru/chamana-sub000/pkg/enums"
	pkgerrors "github.com/Nubiru/chamana-sub000/pkg/errors"
	"github.com/Nubiru/chamana-sub000/pkg/metrics"
	"github.com/Nubiru/chamana-sub000/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the stock ledger operations.
type Service interface {
	CheckAvailability(ctx context.Context, productID uuid.UUID, qty int) (*Availability, error)
	ReserveForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, productID uuid.UUID, qty int) error
	Restock(ctx context.Context, input RestockInput) (*models.Product, error)
	Movements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*MovementPage, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	metrics *metrics.OrderMetrics
}

// NewService wires an inventory service with the provided dependencies.
func NewService(repo Repository, tx txRunner, orderMetrics *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, metrics: orderMetrics}, nil
}

// CheckAvailability reports whether qty units could be sold right now. The
// answer is advisory only: nothing is held, and a later commit re-checks.
func (s *service) CheckAvailability(ctx context.Context, productID uuid.UUID, qty int) (*Availability, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	available := product.AvailableStock()
	return &Availability{
		ProductID:      product.ID,
		RequestedQty:   qty,
		InitialStock:   product.InitialStock,
		SoldStock:      product.SoldStock,
		AvailableStock: available,
		UnitPriceCents: product.UnitPriceCents,
		Sufficient:     available >= qty,
	}, nil
}

// ReserveForOrder consumes qty units and appends the sale movement inside the
// caller's transaction. The conditional update decides the outcome: when it
// affects zero rows another writer took the stock first and the whole order
// transaction must roll back.
func (s *service) ReserveForOrder(ctx context.Context, tx *gorm.DB, orderID, productID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	repo := s.repo.WithTx(tx)

	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}

	snap, err := repo.ReserveStock(ctx, productID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
	}
	if snap == nil {
		s.metrics.IncStockConflict("reserve")
		return pkgerrors.New(pkgerrors.CodeStockInsufficient, "insufficient stock").
			WithDetails(map[string]any{
				"product_id": productID,
				"requested":  qty,
				"available":  product.AvailableStock(),
			})
	}

	// Counters come from the update statement, not the earlier read: another
	// committed sale between the read and the update must not leak into the
	// audit row.
	movement := &models.InventoryMovement{
		ID:          uuid.New(),
		ProductID:   productID,
		Type:        enums.MovementTypeSale,
		Quantity:    qty,
		StockBefore: snap.Available() + qty,
		StockNew:    snap.Available(),
		OrderID:     &orderID,
		Reason:      "order sale",
	}
	if err := repo.CreateMovement(ctx, movement); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale movement")
	}
	return nil
}

// Restock raises initial stock and appends the entry movement in one
// transaction.
func (s *service) Restock(ctx context.Context, input RestockInput) (*models.Product, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	reason := input.Reason
	if reason == "" {
		reason = "restock"
	}

	var product *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		snap, err := repo.AddInitialStock(ctx, input.ProductID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add stock")
		}
		if snap == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		movement := &models.InventoryMovement{
			ID:          uuid.New(),
			ProductID:   input.ProductID,
			Type:        enums.MovementTypeEntry,
			Quantity:    input.Quantity,
			StockBefore: snap.Available() - input.Quantity,
			StockNew:    snap.Available(),
			Reason:      reason,
		}
		if err := repo.CreateMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record entry movement")
		}

		product, err = repo.FindProduct(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRestock()
	return product, nil
}

// Movements returns one page of the product's movement log, newest first.
func (s *service) Movements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*MovementPage, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	movements, err := s.repo.ListMovements(ctx, productID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}

	page := &MovementPage{Movements: movements}
	if len(movements) > limit {
		page.Movements = movements[:limit]
		last := page.Movements[limit-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		page.NextCursor = &next
	}
	if page.Movements == nil {
		page.Movements = []models.InventoryMovement{}
	}
	return page, nil
}
