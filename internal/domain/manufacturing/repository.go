package manufacturing

import (
	"context"

	"github.com/erp/manufacturing/internal/domain/shared"
)

// BOMRepository persists bills of material with their items.
// Save is version-checked and returns shared.ErrConcurrencyConflict on a stale version.
type BOMRepository interface {
	BOMSource
	FindByID(ctx context.Context, id int64) (*BillOfMaterial, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*BillOfMaterial, error)
	FindLatestForUpdate(ctx context.Context, productID int64) (*BillOfMaterial, error)
	FindByProduct(ctx context.Context, productID int64) ([]BillOfMaterial, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]BillOfMaterial, int64, error)
	ExistsByProductAndVersion(ctx context.Context, productID int64, version string) (bool, error)
	Save(ctx context.Context, bom *BillOfMaterial) error
}

// ProductionOrderRepository persists orders with their items
type ProductionOrderRepository interface {
	FindByID(ctx context.Context, id int64) (*ProductionOrder, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*ProductionOrder, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]ProductionOrder, int64, error)
	Save(ctx context.Context, order *ProductionOrder) error
}

// MaterialRequisitionRepository persists requisitions with items and picks
type MaterialRequisitionRepository interface {
	FindByID(ctx context.Context, id int64) (*MaterialRequisition, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*MaterialRequisition, error)
	FindByOrder(ctx context.Context, orderID int64) ([]MaterialRequisition, error)
	Save(ctx context.Context, req *MaterialRequisition) error
}

// ProductionScheduleRepository persists schedule entries
type ProductionScheduleRepository interface {
	FindByID(ctx context.Context, id int64) (*ProductionSchedule, error)
	FindByOrder(ctx context.Context, orderID int64) ([]ProductionSchedule, error)
	// FindByWorkCenter returns every schedule of the work center, including cancelled ones
	FindByWorkCenter(ctx context.Context, workCenterID int64) ([]*ProductionSchedule, error)
	FindConflicting(ctx context.Context, workCenterID int64) ([]ProductionSchedule, error)
	Save(ctx context.Context, schedule *ProductionSchedule) error
}

// WorkCenterRepository persists work centers
type WorkCenterRepository interface {
	FindByID(ctx context.Context, id int64) (*WorkCenter, error)
	// FindByIDForUpdate locks the work center row; schedule writes serialize on it
	FindByIDForUpdate(ctx context.Context, id int64) (*WorkCenter, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]WorkCenter, int64, error)
	Save(ctx context.Context, wc *WorkCenter) error
}
