package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/Nubiru/chamana-sub000/pkg/errors"
)

// CommissionInput bounds the reporting window [From, To). Rate overrides the
// configured default when non-empty, expressed as a fraction ("0.10").
type CommissionInput struct {
	From time.Time
	To   time.Time
	Rate string
}

// DayBreakdown aggregates one calendar day of completed orders.
type DayBreakdown struct {
	Day             string `json:"day"`
	OrderCount      int    `json:"order_count"`
	NetCents        int    `json:"net_cents"`
	CommissionCents int    `json:"commission_cents"`
}

// CommissionSummary is the commission report over a window of completed
// orders.
type CommissionSummary struct {
	From            time.Time      `json:"from"`
	To              time.Time      `json:"to"`
	Rate            string         `json:"rate"`
	OrderCount      int            `json:"order_count"`
	GrossCents      int            `json:"gross_cents"`
	DiscountCents   int            `json:"discount_cents"`
	NetCents        int            `json:"net_cents"`
	CommissionCents int            `json:"commission_cents"`
	Days            []DayBreakdown `json:"days"`
}

// LowStockProduct is one row of the low-stock report.
type LowStockProduct struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	AvailableStock int       `json:"available_stock"`
}

// Service defines the reporting reads.
type Service interface {
	CommissionSummary(ctx context.Context, input CommissionInput) (*CommissionSummary, error)
	LowStock(ctx context.Context, threshold int) ([]LowStockProduct, error)
}

type service struct {
	repo        Repository
	defaultRate decimal.Decimal
}

// NewService wires a reports service. defaultRate is the commission fraction
// applied when the caller does not pass one.
func NewService(repo Repository, defaultRate string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	rate, err := decimal.NewFromString(defaultRate)
	if err != nil {
		return nil, fmt.Errorf("invalid default commission rate %q: %w", defaultRate, err)
	}
	return &service{repo: repo, defaultRate: rate}, nil
}

// CommissionSummary aggregates completed orders in [From, To): counts, gross,
// discount, net, and commission = rate x net, with a per-day breakdown.
// Money stays in integer cents; only the rate multiplication goes through
// decimals, rounded half-up at the end.
func (s *service) CommissionSummary(ctx context.Context, input CommissionInput) (*CommissionSummary, error) {
	if input.From.IsZero() || input.To.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required")
	}
	if !input.From.Before(input.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}

	rate := s.defaultRate
	if input.Rate != "" {
		parsed, err := decimal.NewFromString(input.Rate)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be a decimal fraction")
		}
		rate = parsed
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be between 0 and 1")
	}

	orders, err := s.repo.ListCompletedBetween(ctx, input.From.UTC(), input.To.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list completed orders")
	}

	summary := &CommissionSummary{
		From: input.From.UTC(),
		To:   input.To.UTC(),
		Rate: rate.String(),
		Days: []DayBreakdown{},
	}

	dayIndex := map[string]int{}
	for _, order := range orders {
		summary.OrderCount++
		summary.GrossCents += order.SubtotalCents
		summary.DiscountCents += order.DiscountCents
		summary.NetCents += order.TotalCents

		day := order.CompletedAt.UTC().Format("2006-01-02")
		idx, ok := dayIndex[day]
		if !ok {
			idx = len(summary.Days)
			dayIndex[day] = idx
			summary.Days = append(summary.Days, DayBreakdown{Day: day})
		}
		summary.Days[idx].OrderCount++
		summary.Days[idx].NetCents += order.TotalCents
	}

	summary.CommissionCents = commission(rate, summary.NetCents)
	for i := range summary.Days {
		summary.Days[i].CommissionCents = commission(rate, summary.Days[i].NetCents)
	}
	return summary, nil
}

// LowStock lists active products whose available stock sits below threshold,
// lowest first.
func (s *service) LowStock(ctx context.Context, threshold int) ([]LowStockProduct, error) {
	if threshold <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must be positive")
	}

	products, err := s.repo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock products")
	}

	rows := make([]LowStockProduct, 0, len(products))
	for _, product := range products {
		rows = append(rows, LowStockProduct{
			ProductID:      product.ID,
			Name:           product.Name,
			AvailableStock: product.AvailableStock(),
		})
	}
	return rows, nil
}

func commission(rate decimal.Decimal, netCents int) int {
	return int(rate.Mul(decimal.NewFromInt(int64(netCents))).Round(0).IntPart())
}
