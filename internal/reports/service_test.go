package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Nubiru/chamana-sub000/pkg/db/models"
	"github.com/Nubiru/chamana-sub000/pkg/enums"
	pkgerrors "github.com/Nubiru/chamana-sub000/pkg/errors"
)

func TestCommissionSummary(t *testing.T) {
	t.Parallel()

	db := newReportsTestDB(t)
	svc := newReportsService(t, db)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)

	seedCompletedOrder(t, db, 1000, 100, day1)
	seedCompletedOrder(t, db, 2000, 0, day1.Add(2*time.Hour))
	seedCompletedOrder(t, db, 500, 0, day2)
	seedPendingOrder(t, db, 9999, day1)

	// order completed outside the window must be excluded
	seedCompletedOrder(t, db, 7000, 0, day2.AddDate(0, 0, 5))

	summary, err := svc.CommissionSummary(ctx, CommissionInput{
		From: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("commission summary: %v", err)
	}

	if summary.OrderCount != 3 {
		t.Fatalf("expected 3 orders, got %d", summary.OrderCount)
	}
	if summary.GrossCents != 3500 || summary.DiscountCents != 100 || summary.NetCents != 3400 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	// default rate 0.10
	if summary.CommissionCents != 340 {
		t.Fatalf("expected commission 340, got %d", summary.CommissionCents)
	}

	if len(summary.Days) != 2 {
		t.Fatalf("expected 2 day rows, got %d", len(summary.Days))
	}
	if summary.Days[0].Day != "2026-03-10" || summary.Days[0].NetCents != 2900 || summary.Days[0].CommissionCents != 290 {
		t.Fatalf("unexpected day 1 row: %+v", summary.Days[0])
	}
	if summary.Days[1].Day != "2026-03-11" || summary.Days[1].NetCents != 500 || summary.Days[1].CommissionCents != 50 {
		t.Fatalf("unexpected day 2 row: %+v", summary.Days[1])
	}
}

func TestCommissionSummaryRateOverride(t *testing.T) {
	t.Parallel()

	db := newReportsTestDB(t)
	svc := newReportsService(t, db)

	completed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seedCompletedOrder(t, db, 1001, 0, completed)

	summary, err := svc.CommissionSummary(context.Background(), CommissionInput{
		From: completed.AddDate(0, 0, -1),
		To:   completed.AddDate(0, 0, 1),
		Rate: "0.15",
	})
	if err != nil {
		t.Fatalf("commission summary: %v", err)
	}
	// 0.15 * 1001 = 150.15, rounds to 150
	if summary.CommissionCents != 150 {
		t.Fatalf("expected commission 150, got %d", summary.CommissionCents)
	}
	if summary.Rate != "0.15" {
		t.Fatalf("expected rate 0.15, got %s", summary.Rate)
	}
}

func TestCommissionSummaryValidation(t *testing.T) {
	t.Parallel()

	db := newReportsTestDB(t)
	svc := newReportsService(t, db)
	ctx := context.Background()
	now := time.Now().UTC()

	cases := []struct {
		name  string
		input CommissionInput
	}{
		{"missing bounds", CommissionInput{}},
		{"inverted window", CommissionInput{From: now, To: now.AddDate(0, 0, -1)}},
		{"bad rate", CommissionInput{From: now.AddDate(0, 0, -1), To: now, Rate: "ten percent"}},
		{"rate above one", CommissionInput{From: now.AddDate(0, 0, -1), To: now, Rate: "1.5"}},
		{"negative rate", CommissionInput{From: now.AddDate(0, 0, -1), To: now, Rate: "-0.1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CommissionSummary(ctx, tc.input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLowStock(t *testing.T) {
	t.Parallel()

	db := newReportsTestDB(t)
	svc := newReportsService(t, db)

	seedProductWithStock(t, db, "plenty", 100, 10)
	low := seedProductWithStock(t, db, "low", 10, 8)
	lowest := seedProductWithStock(t, db, "lowest", 10, 10)
	inactive := seedProductWithStock(t, db, "inactive", 10, 10)
	if err := db.Model(&models.Product{}).Where("id = ?", inactive.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	rows, err := svc.LowStock(context.Background(), 5)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ProductID != lowest.ID || rows[0].AvailableStock != 0 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].ProductID != low.ID || rows[1].AvailableStock != 2 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestLowStockRejectsBadThreshold(t *testing.T) {
	t.Parallel()

	db := newReportsTestDB(t)
	svc := newReportsService(t, db)

	if _, err := svc.LowStock(context.Background(), 0); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func newReportsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), "0.10")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedCompletedOrder(t *testing.T, db *gorm.DB, subtotal, discount int, completedAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		Status:        enums.OrderStatusCompleted,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
		CompletedAt:   &completedAt,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed completed order: %v", err)
	}
	return order
}

func seedPendingOrder(t *testing.T, db *gorm.DB, subtotal int, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		Status:        enums.OrderStatusPending,
		SubtotalCents: subtotal,
		TotalCents:    subtotal,
		CreatedAt:     createdAt,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed pending order: %v", err)
	}
	return order
}

func seedProductWithStock(t *testing.T, db *gorm.DB, name string, initial, sold int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:             uuid.New(),
		Name:           name,
		UnitPriceCents: 100,
		IsActive:       true,
		InitialStock:   initial,
		SoldStock:      sold,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func newReportsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reports_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  subtotal_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  notes TEXT,
  completed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  initial_stock INTEGER NOT NULL DEFAULT 0,
  sold_stock INTEGER NOT NULL DEFAULT 0,
  last_sold_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	for _, stmt := range []string{orders, products} {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}
