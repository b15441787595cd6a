package persistence

import (
	"context"

	appinv "github.com/erp/manufacturing/internal/application/inventory"
	appmfg "github.com/erp/manufacturing/internal/application/manufacturing"
	"github.com/erp/manufacturing/internal/domain/catalog"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/partner"
	"gorm.io/gorm"
)

// GormTransactionScope implements the stock ledger TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// GormManufacturingScope implements the manufacturing TransactionScope.
// Stock and manufacturing repositories share the same transaction.
type GormManufacturingScope struct {
	db *gorm.DB
}

// NewGormManufacturingScope creates a new GormManufacturingScope.
func NewGormManufacturingScope(db *gorm.DB) *GormManufacturingScope {
	return &GormManufacturingScope{db: db}
}

// Execute runs fn within a database transaction.
func (s *GormManufacturingScope) Execute(ctx context.Context, fn func(repos appmfg.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) BalanceRepo() inventory.StockBalanceRepository {
	return NewGormStockBalanceRepository(r.tx)
}

func (r *gormTransactionalRepositories) ReservationRepo() inventory.ReservationRepository {
	return NewGormReservationRepository(r.tx)
}

func (r *gormTransactionalRepositories) MovementRepo() inventory.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

func (r *gormTransactionalRepositories) BatchRepo() inventory.ProductBatchRepository {
	return NewGormProductBatchRepository(r.tx)
}

func (r *gormTransactionalRepositories) Products() catalog.ProductReader {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) Warehouses() partner.WarehouseReader {
	return NewGormWarehouseRepository(r.tx)
}

func (r *gormTransactionalRepositories) BOMRepo() manufacturing.BOMRepository {
	return NewGormBOMRepository(r.tx)
}

func (r *gormTransactionalRepositories) OrderRepo() manufacturing.ProductionOrderRepository {
	return NewGormProductionOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) RequisitionRepo() manufacturing.MaterialRequisitionRepository {
	return NewGormMaterialRequisitionRepository(r.tx)
}

func (r *gormTransactionalRepositories) ScheduleRepo() manufacturing.ProductionScheduleRepository {
	return NewGormProductionScheduleRepository(r.tx)
}

func (r *gormTransactionalRepositories) WorkCenterRepo() manufacturing.WorkCenterRepository {
	return NewGormWorkCenterRepository(r.tx)
}

var (
	_ appinv.TransactionScope          = (*GormTransactionScope)(nil)
	_ appmfg.TransactionScope          = (*GormManufacturingScope)(nil)
	_ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ appmfg.Repositories              = (*gormTransactionalRepositories)(nil)
)
