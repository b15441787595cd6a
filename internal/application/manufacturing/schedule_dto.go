package manufacturing

import (
	"time"

	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CreateScheduleRequest books an order operation on a work center
type CreateScheduleRequest struct {
	ProductionOrderID int64           `json:"production_order_id" binding:"required,min=1"`
	WorkCenterID      int64           `json:"work_center_id" binding:"required,min=1"`
	Operation         string          `json:"operation" binding:"max=100"`
	Sequence          int             `json:"sequence" binding:"min=0"`
	ScheduledStart    time.Time       `json:"scheduled_start" binding:"required"`
	ScheduledEnd      time.Time       `json:"scheduled_end" binding:"required"`
	Quantity          decimal.Decimal `json:"quantity" binding:"required,decimal_positive"`
}

// RescheduleRequest moves a schedule to a new window
type RescheduleRequest struct {
	ScheduledStart time.Time `json:"scheduled_start" binding:"required"`
	ScheduledEnd   time.Time `json:"scheduled_end" binding:"required"`
}

// CompleteScheduleRequest records the result of a finished operation
type CompleteScheduleRequest struct {
	QuantityCompleted decimal.Decimal `json:"quantity_completed"`
	QuantityScrapped  decimal.Decimal `json:"quantity_scrapped"`
}

// CreateWorkCenterRequest registers a work center
type CreateWorkCenterRequest struct {
	Code                 string          `json:"code" binding:"required,min=1,max=50"`
	Name                 string          `json:"name" binding:"required,min=1,max=200"`
	CapacityPerDay       int             `json:"capacity_per_day" binding:"required,min=1,max=1440"`
	EfficiencyPercentage decimal.Decimal `json:"efficiency_percentage" binding:"required,decimal_positive"`
	SetupMinutes         int             `json:"setup_minutes" binding:"min=0"`
	TeardownMinutes      int             `json:"teardown_minutes" binding:"min=0"`
	MinBatchSize         decimal.Decimal `json:"min_batch_size"`
	MaxBatchSize         decimal.Decimal `json:"max_batch_size"`
}

// WorkCenterListFilter filters the work center list
type WorkCenterListFilter struct {
	Page     int   `form:"page" binding:"omitempty,min=1"`
	PageSize int   `form:"page_size" binding:"omitempty,min=1,max=100"`
	Active   *bool `form:"active"`
}

func (f WorkCenterListFilter) toDomain() shared.Filter {
	filter := listFilter(f.Page, f.PageSize)
	if f.Active != nil {
		filter.Filters["is_active"] = *f.Active
	}
	return filter
}

// ScheduleResponse represents a production schedule entry
type ScheduleResponse struct {
	ID                 int64           `json:"id"`
	Reference          string          `json:"reference"`
	ProductionOrderID  int64           `json:"production_order_id"`
	WorkCenterID       int64           `json:"work_center_id"`
	Operation          string          `json:"operation,omitempty"`
	Sequence           int             `json:"sequence"`
	Status             string          `json:"status"`
	ScheduledStart     time.Time       `json:"scheduled_start"`
	ScheduledEnd       time.Time       `json:"scheduled_end"`
	ActualStart        *time.Time      `json:"actual_start,omitempty"`
	ActualEnd          *time.Time      `json:"actual_end,omitempty"`
	QuantityScheduled  decimal.Decimal `json:"quantity_scheduled"`
	QuantityCompleted  decimal.Decimal `json:"quantity_completed"`
	QuantityScrapped   decimal.Decimal `json:"quantity_scrapped"`
	HasConflict        bool            `json:"has_conflict"`
	ConflictDetails    string          `json:"conflict_details,omitempty"`
	HoldReason         string          `json:"hold_reason,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	RowVersion         int             `json:"row_version"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ToScheduleResponse converts a domain schedule
func ToScheduleResponse(s *manufacturing.ProductionSchedule) ScheduleResponse {
	return ScheduleResponse{
		ID:                 s.ID,
		Reference:          s.Reference,
		ProductionOrderID:  s.ProductionOrderID,
		WorkCenterID:       s.WorkCenterID,
		Operation:          s.Operation,
		Sequence:           s.Sequence,
		Status:             string(s.Status),
		ScheduledStart:     s.ScheduledStart,
		ScheduledEnd:       s.ScheduledEnd,
		ActualStart:        s.ActualStart,
		ActualEnd:          s.ActualEnd,
		QuantityScheduled:  s.QuantityScheduled,
		QuantityCompleted:  s.QuantityCompleted,
		QuantityScrapped:   s.QuantityScrapped,
		HasConflict:        s.HasConflict,
		ConflictDetails:    s.ConflictDetails,
		HoldReason:         s.HoldReason,
		CancellationReason: s.CancellationReason,
		RowVersion:         s.GetVersion(),
		UpdatedAt:          s.UpdatedAt,
	}
}

// WorkCenterResponse represents a work center
type WorkCenterResponse struct {
	ID                    int64           `json:"id"`
	Code                  string          `json:"code"`
	Name                  string          `json:"name"`
	CapacityPerDay        int             `json:"capacity_per_day"`
	EfficiencyPercentage  decimal.Decimal `json:"efficiency_percentage"`
	UtilizationPercentage decimal.Decimal `json:"utilization_percentage"`
	SetupMinutes          int             `json:"setup_minutes"`
	TeardownMinutes       int             `json:"teardown_minutes"`
	MinBatchSize          decimal.Decimal `json:"min_batch_size"`
	MaxBatchSize          decimal.Decimal `json:"max_batch_size"`
	IsActive              bool            `json:"is_active"`
	IsAvailable           bool            `json:"is_available"`
	RowVersion            int             `json:"row_version"`
}

// ToWorkCenterResponse converts a domain work center
func ToWorkCenterResponse(w *manufacturing.WorkCenter) WorkCenterResponse {
	return WorkCenterResponse{
		ID:                    w.ID,
		Code:                  w.Code,
		Name:                  w.Name,
		CapacityPerDay:        w.CapacityPerDay,
		EfficiencyPercentage:  w.EfficiencyPercentage,
		UtilizationPercentage: w.UtilizationPercentage,
		SetupMinutes:          w.SetupMinutes,
		TeardownMinutes:       w.TeardownMinutes,
		MinBatchSize:          w.MinBatchSize,
		MaxBatchSize:          w.MaxBatchSize,
		IsActive:              w.IsActive,
		IsAvailable:           w.IsAvailable,
		RowVersion:            w.GetVersion(),
	}
}
