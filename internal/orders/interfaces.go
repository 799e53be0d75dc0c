package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tomatolabs/bookstore-backend/pkg/db/models"
	"github.com/tomatolabs/bookstore-backend/pkg/enums"
	"github.com/tomatolabs/bookstore-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByUserAndID(ctx context.Context, userID, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	// TransitionFromPending flips a pending order into a terminal status and
	// reports whether this call won the transition.
	TransitionFromPending(ctx context.Context, id uuid.UUID, status enums.OrderStatus, updates map[string]any) (bool, error)
}
