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

// GormMaterialRequisitionRepository implements MaterialRequisitionRepository using GORM
type GormMaterialRequisitionRepository struct {
	db *gorm.DB
}

// NewGormMaterialRequisitionRepository creates a new GormMaterialRequisitionRepository
func NewGormMaterialRequisitionRepository(db *gorm.DB) *GormMaterialRequisitionRepository {
	return &GormMaterialRequisitionRepository{db: db}
}

func (r *GormMaterialRequisitionRepository) withItems(db *gorm.DB) *gorm.DB {
	byID := func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }
	return db.Preload("Items", byID).Preload("Items.Picks", byID)
}

func (r *GormMaterialRequisitionRepository) first(query *gorm.DB, id int64) (*manufacturing.MaterialRequisition, error) {
	var model models.MaterialRequisitionModel
	if err := r.withItems(query).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("requisition_id", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a requisition with its items and picks
func (r *GormMaterialRequisitionRepository) FindByID(ctx context.Context, id int64) (*manufacturing.MaterialRequisition, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate loads a requisition under a row lock
func (r *GormMaterialRequisitionRepository) FindByIDForUpdate(ctx context.Context, id int64) (*manufacturing.MaterialRequisition, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

// FindByOrder lists an order's requisitions oldest first
func (r *GormMaterialRequisitionRepository) FindByOrder(ctx context.Context, orderID int64) ([]manufacturing.MaterialRequisition, error) {
	var rows []models.MaterialRequisitionModel
	if err := r.withItems(r.db.WithContext(ctx)).
		Where("production_order_id = ?", orderID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]manufacturing.MaterialRequisition, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save writes the requisition version-checked and upserts items and picks
func (r *GormMaterialRequisitionRepository) Save(ctx context.Context, req *manufacturing.MaterialRequisition) error {
	db := r.db.WithContext(ctx)
	model := models.MaterialRequisitionModelFromDomain(req)
	if req.ID == 0 {
		if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
			return translateError(err)
		}
		req.ID = model.ID
	} else {
		model.Version = req.Version + 1
		if err := updateVersioned(db, model, req.Version); err != nil {
			return err
		}
		req.IncrementVersion()
	}

	keep := make([]int64, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ID != 0 {
			keep = append(keep, it.ID)
		}
	}
	if err := pruneChildren(db, &models.MaterialRequisitionItemModel{}, "requisition_id", req.ID, keep); err != nil {
		return err
	}
	for _, it := range req.Items {
		var row models.MaterialRequisitionItemModel
		row.FromDomain(req.ID, it)
		if err := saveChild(db, &row, it.ID == 0); err != nil {
			return err
		}
		it.ID = row.ID
		it.RequisitionID = req.ID
		if err := r.savePicks(db, it); err != nil {
			return err
		}
	}
	return nil
}

// savePicks upserts picks; picks are never removed, only returned
func (r *GormMaterialRequisitionRepository) savePicks(db *gorm.DB, it *manufacturing.MaterialRequisitionItem) error {
	for _, p := range it.Picks {
		var row models.MaterialPickModel
		row.FromDomain(it.ID, p)
		if err := saveChild(db, &row, p.ID == 0); err != nil {
			return err
		}
		p.ID = row.ID
		p.RequisitionItemID = it.ID
	}
	return nil
}

// Ensure GormMaterialRequisitionRepository implements MaterialRequisitionRepository
var _ manufacturing.MaterialRequisitionRepository = (*GormMaterialRequisitionRepository)(nil)
