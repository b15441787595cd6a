package persistence

import (
	"context"
	"errors"

	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductionScheduleRepository implements ProductionScheduleRepository using GORM
type GormProductionScheduleRepository struct {
	db *gorm.DB
}

// NewGormProductionScheduleRepository creates a new GormProductionScheduleRepository
func NewGormProductionScheduleRepository(db *gorm.DB) *GormProductionScheduleRepository {
	return &GormProductionScheduleRepository{db: db}
}

// FindByID finds a schedule entry by its ID
func (r *GormProductionScheduleRepository) FindByID(ctx context.Context, id int64) (*manufacturing.ProductionSchedule, error) {
	var model models.ProductionScheduleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithDetail("schedule_id", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrder lists an order's schedule entries in operation order
func (r *GormProductionScheduleRepository) FindByOrder(ctx context.Context, orderID int64) ([]manufacturing.ProductionSchedule, error) {
	var rows []models.ProductionScheduleModel
	if err := r.db.WithContext(ctx).
		Where("production_order_id = ?", orderID).
		Order("sequence ASC, scheduled_start ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return schedulesToDomain(rows), nil
}

// FindByWorkCenter returns every schedule of the work center, cancelled ones included
func (r *GormProductionScheduleRepository) FindByWorkCenter(ctx context.Context, workCenterID int64) ([]*manufacturing.ProductionSchedule, error) {
	var rows []models.ProductionScheduleModel
	if err := r.db.WithContext(ctx).
		Where("work_center_id = ?", workCenterID).
		Order("scheduled_start ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*manufacturing.ProductionSchedule, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindConflicting lists the live schedules of a work center flagged as overlapping
func (r *GormProductionScheduleRepository) FindConflicting(ctx context.Context, workCenterID int64) ([]manufacturing.ProductionSchedule, error) {
	var rows []models.ProductionScheduleModel
	if err := r.db.WithContext(ctx).
		Where("work_center_id = ? AND has_conflict = ? AND status <> ?",
			workCenterID, true, manufacturing.ScheduleStatusCancelled).
		Order("scheduled_start ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return schedulesToDomain(rows), nil
}

// Save inserts a new entry or version-checks an update
func (r *GormProductionScheduleRepository) Save(ctx context.Context, schedule *manufacturing.ProductionSchedule) error {
	db := r.db.WithContext(ctx)
	model := models.ProductionScheduleModelFromDomain(schedule)
	if schedule.ID == 0 {
		if err := db.Create(model).Error; err != nil {
			return translateError(err)
		}
		schedule.ID = model.ID
		return nil
	}
	model.Version = schedule.Version + 1
	if err := updateVersioned(db, model, schedule.Version); err != nil {
		return err
	}
	schedule.IncrementVersion()
	return nil
}

func schedulesToDomain(rows []models.ProductionScheduleModel) []manufacturing.ProductionSchedule {
	out := make([]manufacturing.ProductionSchedule, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure GormProductionScheduleRepository implements ProductionScheduleRepository
var _ manufacturing.ProductionScheduleRepository = (*GormProductionScheduleRepository)(nil)
