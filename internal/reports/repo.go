package reports

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Nubiru/chamana-sub000/pkg/db/models"
	"github.com/Nubiru/chamana-sub000/pkg/enums"
)

// Repository exposes the read-only queries the reports need.
type Repository interface {
	ListCompletedBetween(ctx context.Context, from, to time.Time) ([]models.Order, error)
	ListLowStock(ctx context.Context, threshold int) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reports repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListCompletedBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Where("status = ? AND completed_at >= ? AND completed_at < ?", enums.OrderStatusCompleted, from, to).
		Order("completed_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Where("is_active AND initial_stock - sold_stock < ?", threshold).
		Order("initial_stock - sold_stock ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
