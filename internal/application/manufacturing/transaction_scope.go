package manufacturing

import (
	"context"

	appinventory "github.com/erp/manufacturing/internal/application/inventory"
	"github.com/erp/manufacturing/internal/domain/manufacturing"
)

// TransactionScope runs manufacturing work inside one database transaction
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories exposes every repository bound to the current transaction.
// Stock repositories come along so ledger calls join the same transaction.
type Repositories interface {
	appinventory.TransactionalRepositories
	BOMRepo() manufacturing.BOMRepository
	OrderRepo() manufacturing.ProductionOrderRepository
	RequisitionRepo() manufacturing.MaterialRequisitionRepository
	ScheduleRepo() manufacturing.ProductionScheduleRepository
	WorkCenterRepo() manufacturing.WorkCenterRepository
}
