package manufacturing

import (
	"strings"
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WorkCenter is a machine or cell that production schedules are booked on
type WorkCenter struct {
	shared.BaseAggregateRoot
	Code                  string
	Name                  string
	CapacityPerDay        int // productive minutes
	EfficiencyPercentage  decimal.Decimal
	UtilizationPercentage decimal.Decimal
	SetupMinutes          int
	TeardownMinutes       int
	MinBatchSize          decimal.Decimal
	MaxBatchSize          decimal.Decimal
	IsActive              bool
	IsAvailable           bool
}

// NewWorkCenter creates an active, available work center
func NewWorkCenter(code, name string, capacityPerDay int, efficiency decimal.Decimal) (*WorkCenter, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errValidation("work center code is required")
	}
	if capacityPerDay <= 0 || capacityPerDay > 24*60 {
		return nil, errValidation("capacity per day must be between 1 and 1440 minutes")
	}
	if !efficiency.IsPositive() || efficiency.GreaterThan(hundred) {
		return nil, errValidation("efficiency must be in (0, 100]")
	}
	return &WorkCenter{
		BaseAggregateRoot:     shared.NewBaseAggregateRoot(),
		Code:                  code,
		Name:                  strings.TrimSpace(name),
		CapacityPerDay:        capacityPerDay,
		EfficiencyPercentage:  efficiency,
		UtilizationPercentage: decimal.Zero,
		MinBatchSize:          decimal.Zero,
		MaxBatchSize:          decimal.Zero,
		IsActive:              true,
		IsAvailable:           true,
	}, nil
}

// SetBatchLimits sets min/max batch sizes; zero disables a bound
func (w *WorkCenter) SetBatchLimits(min, max decimal.Decimal) error {
	if min.IsNegative() || max.IsNegative() {
		return errValidation("batch sizes cannot be negative")
	}
	if max.IsPositive() && min.GreaterThan(max) {
		return errValidation("min batch size exceeds max batch size")
	}
	w.MinBatchSize = min
	w.MaxBatchSize = max
	w.UpdatedAt = time.Now()
	return nil
}

// CanSchedule returns an error when the work center cannot take new schedules
func (w *WorkCenter) CanSchedule() error {
	if !w.IsActive {
		return errState("work center %s is inactive", w.Code)
	}
	if !w.IsAvailable {
		return errState("work center %s is unavailable", w.Code)
	}
	return nil
}

// CheckBatchSize validates a scheduled quantity against the batch limits
func (w *WorkCenter) CheckBatchSize(qty decimal.Decimal) error {
	if w.MinBatchSize.IsPositive() && qty.LessThan(w.MinBatchSize) {
		return errValidation("quantity %s is below the minimum batch size %s of work center %s",
			qty.String(), w.MinBatchSize.String(), w.Code)
	}
	if w.MaxBatchSize.IsPositive() && qty.GreaterThan(w.MaxBatchSize) {
		return errValidation("quantity %s exceeds the maximum batch size %s of work center %s",
			qty.String(), w.MaxBatchSize.String(), w.Code)
	}
	return nil
}

// EffectiveMinutesPerDay is capacity scaled by efficiency
func (w *WorkCenter) EffectiveMinutesPerDay() decimal.Decimal {
	return decimal.NewFromInt(int64(w.CapacityPerDay)).Mul(w.EfficiencyPercentage).Div(hundred)
}

// RecomputeUtilization sets utilization from the productive minutes booked on days.
// Cancelled schedules are ignored.
func (w *WorkCenter) RecomputeUtilization(schedules []*ProductionSchedule, days []time.Time) {
	available := w.EffectiveMinutesPerDay().Mul(decimal.NewFromInt(int64(len(days))))
	if !available.IsPositive() {
		w.UtilizationPercentage = decimal.Zero
		return
	}
	var booked time.Duration
	for _, s := range schedules {
		if s.Status == ScheduleStatusCancelled {
			continue
		}
		start, end := s.Window()
		for _, day := range days {
			booked += overlapDuration(start, end, day, day.AddDate(0, 0, 1))
		}
	}
	minutes := decimal.NewFromInt(int64(booked)).Div(decimal.NewFromInt(int64(time.Minute)))
	w.UtilizationPercentage = minutes.Div(available).Mul(hundred).Round(2)
	w.UpdatedAt = time.Now()
}

// CalendarDays lists the UTC calendar days touched by [start, end)
func CalendarDays(start, end time.Time) []time.Time {
	start, end = start.UTC(), end.UTC()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	days := []time.Time{day}
	for next := day.AddDate(0, 0, 1); next.Before(end); next = next.AddDate(0, 0, 1) {
		days = append(days, next)
	}
	return days
}

func overlapDuration(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	if !Overlaps(aStart, aEnd, bStart, bEnd) {
		return 0
	}
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	return end.Sub(start)
}
