package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockBalanceRepository implements StockBalanceRepository using GORM
type GormStockBalanceRepository struct {
	db *gorm.DB
}

// NewGormStockBalanceRepository creates a new GormStockBalanceRepository
func NewGormStockBalanceRepository(db *gorm.DB) *GormStockBalanceRepository {
	return &GormStockBalanceRepository{db: db}
}

// GetForUpdate locks the (product, warehouse) row. A missing row is inserted
// empty; losing the insert race to another writer surfaces as a concurrency
// conflict so the caller's retry picks up the winner's row.
func (r *GormStockBalanceRepository) GetForUpdate(ctx context.Context, productID, warehouseID int64) (*inventory.StockBalance, error) {
	var model models.StockBalanceModel
	err := forUpdate(r.db.WithContext(ctx)).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&model).Error
	if err == nil {
		return model.ToDomain(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	balance, err := inventory.NewStockBalance(productID, warehouseID)
	if err != nil {
		return nil, err
	}
	created := models.StockBalanceModelFromDomain(balance)
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrConcurrencyConflict.WithDetail("product_id", productID)
		}
		return nil, fmt.Errorf("failed to create stock balance: %w", err)
	}
	balance.ID = created.ID
	return balance, nil
}

// FindByProductAndWarehouse finds the balance of one product in one warehouse
func (r *GormStockBalanceRepository) FindByProductAndWarehouse(ctx context.Context, productID, warehouseID int64) (*inventory.StockBalance, error) {
	var model models.StockBalanceModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByProduct lists a product's balances across warehouses
func (r *GormStockBalanceRepository) FindByProduct(ctx context.Context, productID int64) ([]inventory.StockBalance, error) {
	var rows []models.StockBalanceModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("warehouse_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.StockBalance, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save writes the balance if nobody else changed it since it was read
func (r *GormStockBalanceRepository) Save(ctx context.Context, balance *inventory.StockBalance) error {
	model := models.StockBalanceModelFromDomain(balance)
	if balance.ID == 0 {
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.ErrConcurrencyConflict
			}
			return err
		}
		balance.ID = model.ID
		return nil
	}
	model.Version = balance.Version + 1
	if err := updateVersioned(r.db.WithContext(ctx), model, balance.Version); err != nil {
		return err
	}
	balance.IncrementVersion()
	return nil
}

// GormReservationRepository implements ReservationRepository using GORM.
// Reservations change only while their balance row is locked, so writes
// are not version-checked.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// Create inserts a new reservation
func (r *GormReservationRepository) Create(ctx context.Context, res *inventory.Reservation) error {
	model := models.ReservationModelFromDomain(res)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create reservation: %w", translateError(err))
	}
	res.ID = model.ID
	return nil
}

// FindByHandle finds a reservation by its public handle
func (r *GormReservationRepository) FindByHandle(ctx context.Context, handle uuid.UUID) (*inventory.Reservation, error) {
	var model models.ReservationModel
	if err := r.db.WithContext(ctx).Where("handle = ?", handle).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("reservation", handle.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save updates an existing reservation
func (r *GormReservationRepository) Save(ctx context.Context, res *inventory.Reservation) error {
	model := models.ReservationModelFromDomain(res)
	return r.db.WithContext(ctx).Save(model).Error
}

// GormStockMovementRepository implements StockMovementRepository using GORM
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends movements to the log
func (r *GormStockMovementRepository) Create(ctx context.Context, movements ...*inventory.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	rows := make([]*models.StockMovementModel, len(movements))
	for i, m := range movements {
		rows[i] = models.StockMovementModelFromDomain(m)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return err
	}
	for i, m := range movements {
		m.ID = rows[i].ID
	}
	return nil
}

// FindByProductAndWarehouse pages through the movement log of one balance
func (r *GormStockMovementRepository) FindByProductAndWarehouse(ctx context.Context, productID, warehouseID int64, filter shared.Filter) ([]inventory.StockMovement, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockMovementModel{}).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockMovementModel
	if err := paginate(query, filter, StockMovementSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]inventory.StockMovement, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// GormProductBatchRepository implements ProductBatchRepository using GORM
type GormProductBatchRepository struct {
	db *gorm.DB
}

// NewGormProductBatchRepository creates a new GormProductBatchRepository
func NewGormProductBatchRepository(db *gorm.DB) *GormProductBatchRepository {
	return &GormProductBatchRepository{db: db}
}

// GetForUpdate loads one batch under a row lock
func (r *GormProductBatchRepository) GetForUpdate(ctx context.Context, id int64) (*inventory.ProductBatch, error) {
	var model models.ProductBatchModel
	if err := forUpdate(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("batch_id", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a batch by its ID
func (r *GormProductBatchRepository) FindByID(ctx context.Context, id int64) (*inventory.ProductBatch, error) {
	var model models.ProductBatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("batch_id", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUsableForUpdate locks every released batch with available quantity.
// Rows come back by id; FEFO ordering is the selector's job.
func (r *GormProductBatchRepository) FindUsableForUpdate(ctx context.Context, productID, warehouseID int64) ([]*inventory.ProductBatch, error) {
	var rows []models.ProductBatchModel
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("product_id = ? AND warehouse_id = ? AND quality_status = ? AND quantity_available > 0",
			productID, warehouseID, inventory.QualityReleased).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*inventory.ProductBatch, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save inserts a new batch or version-checks an update
func (r *GormProductBatchRepository) Save(ctx context.Context, batch *inventory.ProductBatch) error {
	model := models.ProductBatchModelFromDomain(batch)
	if batch.ID == 0 {
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			return translateError(err)
		}
		batch.ID = model.ID
		return nil
	}
	model.Version = batch.Version + 1
	if err := updateVersioned(r.db.WithContext(ctx), model, batch.Version); err != nil {
		return err
	}
	batch.IncrementVersion()
	return nil
}

// Ensure the GORM repositories implement the ledger interfaces
var (
	_ inventory.StockBalanceRepository  = (*GormStockBalanceRepository)(nil)
	_ inventory.ReservationRepository   = (*GormReservationRepository)(nil)
	_ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
	_ inventory.ProductBatchRepository  = (*GormProductBatchRepository)(nil)
)
