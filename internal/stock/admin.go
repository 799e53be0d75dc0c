package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tomatolabs/bookstore-backend/pkg/db/models"
	"github.com/tomatolabs/bookstore-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Admin exposes the back-office stock operations.
type Admin interface {
	Adjust(ctx context.Context, productID uuid.UUID, available, reserved int) (*models.StockRecord, error)
}

type admin struct {
	ledger Ledger
	tx     txRunner
	logg   *logger.Logger
}

// NewAdmin builds the admin stock service.
func NewAdmin(ledger Ledger, tx txRunner, logg *logger.Logger) (Admin, error) {
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &admin{ledger: ledger, tx: tx, logg: logg}, nil
}

// Adjust overwrites both stock counters for a product, including any
// reserved holds still in flight.
func (a *admin) Adjust(ctx context.Context, productID uuid.UUID, available, reserved int) (*models.StockRecord, error) {
	var record *models.StockRecord
	err := a.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := a.ledger.Adjust(ctx, tx, productID, available, reserved)
		if err != nil {
			return err
		}
		record = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = a.logg.WithProductID(ctx, productID.String())
	ctx = a.logg.WithField(ctx, "available", record.Available)
	ctx = a.logg.WithField(ctx, "reserved", record.Reserved)
	a.logg.Info(ctx, "stock counters adjusted")
	return record, nil
}
