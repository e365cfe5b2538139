package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Nubiru/chamana-sub000/internal/orders"
	"github.com/Nubiru/chamana-sub000/pkg/db/models"
	"github.com/Nubiru/chamana-sub000/pkg/enums"
	pkgerrors "github.com/Nubiru/chamana-sub000/pkg/errors"
	"github.com/Nubiru/chamana-sub000/pkg/logger"
)

const expireBatchSize = 200

type stalePendingReader interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderCanceller interface {
	Cancel(ctx context.Context, orderID uuid.UUID, actor orders.ActorInput) error
}

// ExpireOrdersJobParams configure the pending-order expiry job.
type ExpireOrdersJobParams struct {
	Logger     *logger.Logger
	Pending    stalePendingReader
	Orders     orderCanceller
	PendingTTL time.Duration
}

type expireOrdersJob struct {
	logg    *logger.Logger
	pending stalePendingReader
	orders  orderCanceller
	ttl     time.Duration
	now     func() time.Time
}

// NewExpireOrdersJob builds the cron job that cancels pending orders older
// than the configured TTL. Cancellation goes through the regular order
// service, so the state machine and the history trail apply exactly as they
// do for a caller-driven cancel.
func NewExpireOrdersJob(params ExpireOrdersJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order canceller required")
	}
	if params.PendingTTL <= 0 {
		return nil, fmt.Errorf("pending ttl must be positive")
	}
	return &expireOrdersJob{
		logg:    params.Logger,
		pending: params.Pending,
		orders:  params.Orders,
		ttl:     params.PendingTTL,
		now:     time.Now,
	}, nil
}

func (j *expireOrdersJob) Name() string { return "expire-pending-orders" }

func (j *expireOrdersJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.pending.ListStalePending(ctx, cutoff, expireBatchSize)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	cancelled := 0
	skipped := 0
	for _, order := range stale {
		err := j.orders.Cancel(ctx, order.ID, orders.ActorInput{
			ChangedBy: enums.ActorSystem,
			Automatic: true,
		})
		if err != nil {
			// the order moved on between the read and the cancel
			if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) || pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				skipped++
				continue
			}
			return fmt.Errorf("cancel stale order %s: %w", order.ID, err)
		}
		cancelled++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"cancelled": cancelled,
		"skipped":   skipped,
	})
	j.logg.Info(logCtx, "pending order expiry loop complete")
	return nil
}
