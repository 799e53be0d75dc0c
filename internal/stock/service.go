package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tomatolabs/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/tomatolabs/bookstore-backend/pkg/errors"
	"github.com/tomatolabs/bookstore-backend/pkg/logger"
)

// Ledger mutates per-product stock counters. All writes are single guarded
// statements so concurrent callers can never drive a counter negative.
type Ledger interface {
	Get(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.StockRecord, error)
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Commit(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Adjust(ctx context.Context, tx *gorm.DB, productID uuid.UUID, available, reserved int) (*models.StockRecord, error)
}

// InsufficientStockDetails names the offending product in reserve failures.
type InsufficientStockDetails struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

type ledger struct {
	logg *logger.Logger
}

// NewLedger builds the default stock ledger.
func NewLedger(logg *logger.Logger) (Ledger, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ledger{logg: logg}, nil
}

func (l *ledger) Get(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.StockRecord, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock read")
	}
	var record models.StockRecord
	err := tx.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock record")
	}
	return &record, nil
}

// Reserve moves qty from available to reserved. The WHERE guard makes the
// check and the move one atomic statement; zero rows affected means the
// product either has no stock row or not enough available.
func (l *ledger) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if err := validateArgs(tx, qty); err != nil {
		return err
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE stock_records
		SET available = available - ?,
			reserved = reserved + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND available >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		available := 0
		if record, err := l.Get(ctx, tx, productID); err == nil {
			available = record.Available
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(InsufficientStockDetails{
				ProductID: productID.String(),
				Available: available,
				Requested: qty,
			})
	}
	return nil
}

// Release returns reserved stock to available. Reserved is clamped at zero so
// a stray double release cannot underflow; the truncation is logged because it
// signals reconciliation drift somewhere upstream.
func (l *ledger) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if err := validateArgs(tx, qty); err != nil {
		return err
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE stock_records
		SET available = available + ?,
			reserved = reserved - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND reserved >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// The guard missed: either the row is gone or reserved is short of qty.
	// Clamp reserved at zero so a stray double release cannot underflow.
	clamp := tx.WithContext(ctx).Exec(`
		UPDATE stock_records
		SET available = available + ?,
			reserved = 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
	`, qty, productID)
	if clamp.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, clamp.Error, "release stock")
	}
	if clamp.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found")
	}

	ctx = l.logg.WithProductID(ctx, productID.String())
	ctx = l.logg.WithField(ctx, "qty", qty)
	l.logg.Warn(ctx, "stock release clamped reserved counter at zero")
	return nil
}

// Commit burns reserved stock after a successful payment. Reserved is clamped
// at zero so counter drift cannot drive it negative.
func (l *ledger) Commit(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if err := validateArgs(tx, qty); err != nil {
		return err
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE stock_records
		SET reserved = CASE WHEN reserved >= ? THEN reserved - ? ELSE 0 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
	`, qty, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "commit stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found")
	}
	return nil
}

// Adjust upserts the stock row and pins both counters to the given values.
// Overwriting reserved discards in-flight holds, so this is a back-office
// override, not a bookkeeping move.
func (l *ledger) Adjust(ctx context.Context, tx *gorm.DB, productID uuid.UUID, available, reserved int) (*models.StockRecord, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock write")
	}
	if available < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available must not be negative")
	}
	if reserved < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reserved must not be negative")
	}

	record := models.StockRecord{ProductID: productID, Available: available, Reserved: reserved}
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"available": available,
				"reserved":  reserved,
			}),
		}).
		Create(&record).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}

	return l.Get(ctx, tx, productID)
}

func validateArgs(tx *gorm.DB, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock write")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}
	return nil
}
