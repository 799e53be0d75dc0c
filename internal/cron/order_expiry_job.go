package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/tomatolabs/bookstore-backend/pkg/db/models"
	"github.com/tomatolabs/bookstore-backend/pkg/logger"
)

const defaultExpiryWindow = 30 * time.Minute

type pendingOrderReader interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type orderExpirer interface {
	Timeout(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// OrderExpiryJobParams configure the pending order sweeper.
type OrderExpiryJobParams struct {
	Logger        *logger.Logger
	PendingReader pendingOrderReader
	Expirer       orderExpirer
	Window        time.Duration
}

// NewOrderExpiryJob builds the cron job that times out stale pending orders
// and returns their stock holds.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.PendingReader == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultExpiryWindow
	}
	return &orderExpiryJob{
		logg:          params.Logger,
		pendingReader: params.PendingReader,
		expirer:       params.Expirer,
		window:        window,
		now:           time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg          *logger.Logger
	pendingReader pendingOrderReader
	expirer       orderExpirer
	window        time.Duration
	now           func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

// Run expires each stale order in its own transaction so one failure never
// blocks the rest of the sweep.
func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	orders, err := j.pendingReader.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs []error
	expired := 0
	for _, order := range orders {
		won, err := j.expirer.Timeout(ctx, order.ID)
		if err != nil {
			orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
			j.logg.Error(orderCtx, "failed to expire order", err)
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if won {
			expired++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(orders),
		"expired":    expired,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return multierr.Combine(errs...)
}
