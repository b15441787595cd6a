package inventory

import (
	"context"

	"github.com/erp/manufacturing/internal/domain/catalog"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/partner"
)

// TransactionScope provides transactional access to stock repositories.
// All repository operations inside fn share one database transaction and are
// committed or rolled back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to the current transaction.
// Products and warehouses are read-only references owned elsewhere.
type TransactionalRepositories interface {
	BalanceRepo() inventory.StockBalanceRepository
	ReservationRepo() inventory.ReservationRepository
	MovementRepo() inventory.StockMovementRepository
	BatchRepo() inventory.ProductBatchRepository
	Products() catalog.ProductReader
	Warehouses() partner.WarehouseReader
}
