package persistence

import (
	"context"
	"errors"

	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductionOrderRepository implements ProductionOrderRepository using GORM
type GormProductionOrderRepository struct {
	db *gorm.DB
}

// NewGormProductionOrderRepository creates a new GormProductionOrderRepository
func NewGormProductionOrderRepository(db *gorm.DB) *GormProductionOrderRepository {
	return &GormProductionOrderRepository{db: db}
}

func (r *GormProductionOrderRepository) withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("product_id ASC, id ASC")
	})
}

func (r *GormProductionOrderRepository) first(query *gorm.DB, id int64) (*manufacturing.ProductionOrder, error) {
	var model models.ProductionOrderModel
	if err := r.withItems(query).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("production_order_id", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds an order with its items
func (r *GormProductionOrderRepository) FindByID(ctx context.Context, id int64) (*manufacturing.ProductionOrder, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate loads an order under a row lock
func (r *GormProductionOrderRepository) FindByIDForUpdate(ctx context.Context, id int64) (*manufacturing.ProductionOrder, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

// FindAll pages through orders filtered by product_id and status
func (r *GormProductionOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]manufacturing.ProductionOrder, int64, error) {
	query := whereFilters(r.db.WithContext(ctx).Model(&models.ProductionOrderModel{}), filter, "product_id", "status", "warehouse_id").
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ProductionOrderModel
	if err := r.withItems(paginate(query, filter, ProductionOrderSortFields)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]manufacturing.ProductionOrder, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Save writes the order version-checked and upserts its items
func (r *GormProductionOrderRepository) Save(ctx context.Context, order *manufacturing.ProductionOrder) error {
	db := r.db.WithContext(ctx)
	model := models.ProductionOrderModelFromDomain(order)
	if order.ID == 0 {
		if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
			return translateError(err)
		}
		order.ID = model.ID
	} else {
		model.Version = order.Version + 1
		if err := updateVersioned(db, model, order.Version); err != nil {
			return err
		}
		order.IncrementVersion()
	}

	keep := make([]int64, 0, len(order.Items))
	for _, it := range order.Items {
		if it.ID != 0 {
			keep = append(keep, it.ID)
		}
	}
	if err := pruneChildren(db, &models.ProductionOrderItemModel{}, "production_order_id", order.ID, keep); err != nil {
		return err
	}
	for _, it := range order.Items {
		var row models.ProductionOrderItemModel
		row.FromDomain(order.ID, it)
		if err := saveChild(db, &row, it.ID == 0); err != nil {
			return err
		}
		it.ID = row.ID
		it.ProductionOrderID = order.ID
	}
	return nil
}

// Ensure GormProductionOrderRepository implements ProductionOrderRepository
var _ manufacturing.ProductionOrderRepository = (*GormProductionOrderRepository)(nil)
