package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Nubiru/chamana-sub000/pkg/db/models"
	"github.com/Nubiru/chamana-sub000/pkg/pagination"
)

// Repository manages persistence for products and their movement log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ReserveStock(ctx context.Context, productID uuid.UUID, qty int) (*StockSnapshot, error)
	AddInitialStock(ctx context.Context, productID uuid.UUID, qty int) (*StockSnapshot, error)
	CreateMovement(ctx context.Context, movement *models.InventoryMovement) error
	ListMovements(ctx context.Context, productID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.InventoryMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ReserveStock consumes qty units in a single conditional update. The WHERE
// clause re-checks availability so concurrent reservations cannot oversell:
// a nil snapshot means the stock moved underneath the caller. The counters
// come back from the statement itself, so movement rows always describe the
// row the update actually produced.
func (r *repository) ReserveStock(ctx context.Context, productID uuid.UUID, qty int) (*StockSnapshot, error) {
	var snap StockSnapshot
	res := r.db.WithContext(ctx).Raw(`
		UPDATE products
		SET sold_stock = sold_stock + ?,
			last_sold_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_active AND initial_stock - sold_stock >= ?
		RETURNING initial_stock, sold_stock
	`, qty, productID, qty).Scan(&snap)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &snap, nil
}

func (r *repository) AddInitialStock(ctx context.Context, productID uuid.UUID, qty int) (*StockSnapshot, error) {
	var snap StockSnapshot
	res := r.db.WithContext(ctx).Raw(`
		UPDATE products
		SET initial_stock = initial_stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_active
		RETURNING initial_stock, sold_stock
	`, qty, productID).Scan(&snap)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &snap, nil
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.InventoryMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, productID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.InventoryMovement, error) {
	query := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var movements []models.InventoryMovement
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
