package persistence

import (
	"context"
	"errors"

	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWorkCenterRepository implements WorkCenterRepository using GORM
type GormWorkCenterRepository struct {
	db *gorm.DB
}

// NewGormWorkCenterRepository creates a new GormWorkCenterRepository
func NewGormWorkCenterRepository(db *gorm.DB) *GormWorkCenterRepository {
	return &GormWorkCenterRepository{db: db}
}

func (r *GormWorkCenterRepository) first(query *gorm.DB, id int64) (*manufacturing.WorkCenter, error) {
	var model models.WorkCenterModel
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("work_center_id", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a work center by its ID
func (r *GormWorkCenterRepository) FindByID(ctx context.Context, id int64) (*manufacturing.WorkCenter, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate locks the work center row; schedule writes serialize on it
func (r *GormWorkCenterRepository) FindByIDForUpdate(ctx context.Context, id int64) (*manufacturing.WorkCenter, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

// FindAll pages through work centers, optionally filtered by is_active
func (r *GormWorkCenterRepository) FindAll(ctx context.Context, filter shared.Filter) ([]manufacturing.WorkCenter, int64, error) {
	query := whereFilters(r.db.WithContext(ctx).Model(&models.WorkCenterModel{}), filter, "is_active").
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.WorkCenterModel
	if err := paginate(query, filter, WorkCenterSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]manufacturing.WorkCenter, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Save inserts a new work center or version-checks an update.
// A duplicate code surfaces as ALREADY_EXISTS.
func (r *GormWorkCenterRepository) Save(ctx context.Context, wc *manufacturing.WorkCenter) error {
	db := r.db.WithContext(ctx)
	model := models.WorkCenterModelFromDomain(wc)
	if wc.ID == 0 {
		if err := db.Create(model).Error; err != nil {
			return translateError(err)
		}
		wc.ID = model.ID
		return nil
	}
	model.Version = wc.Version + 1
	if err := updateVersioned(db, model, wc.Version); err != nil {
		return err
	}
	wc.IncrementVersion()
	return nil
}

// Ensure GormWorkCenterRepository implements WorkCenterRepository
var _ manufacturing.WorkCenterRepository = (*GormWorkCenterRepository)(nil)
