package inventory

import (
	"context"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/google/uuid"
)

// StockBalanceRepository persists balances. Writes are version-checked and
// return shared.ErrConcurrencyConflict on a stale version.
type StockBalanceRepository interface {
	// GetForUpdate loads the balance under a row lock, creating an empty one on first use
	GetForUpdate(ctx context.Context, productID, warehouseID int64) (*StockBalance, error)
	FindByProductAndWarehouse(ctx context.Context, productID, warehouseID int64) (*StockBalance, error)
	FindByProduct(ctx context.Context, productID int64) ([]StockBalance, error)
	Save(ctx context.Context, balance *StockBalance) error
}

// ReservationRepository persists reservation handles
type ReservationRepository interface {
	Create(ctx context.Context, r *Reservation) error
	FindByHandle(ctx context.Context, handle uuid.UUID) (*Reservation, error)
	Save(ctx context.Context, r *Reservation) error
}

// StockMovementRepository appends to and reads the movement log
type StockMovementRepository interface {
	Create(ctx context.Context, movements ...*StockMovement) error
	FindByProductAndWarehouse(ctx context.Context, productID, warehouseID int64, filter shared.Filter) ([]StockMovement, int64, error)
}

// ProductBatchRepository persists batches and serials
type ProductBatchRepository interface {
	GetForUpdate(ctx context.Context, id int64) (*ProductBatch, error)
	FindByID(ctx context.Context, id int64) (*ProductBatch, error)
	// FindUsableForUpdate locks every released batch with available quantity
	FindUsableForUpdate(ctx context.Context, productID, warehouseID int64) ([]*ProductBatch, error)
	Save(ctx context.Context, batch *ProductBatch) error
}
