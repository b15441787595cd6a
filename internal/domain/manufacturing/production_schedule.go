package manufacturing

import (
	"strings"
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ScheduleStatus is the lifecycle state of a production schedule entry
type ScheduleStatus string

const (
	ScheduleStatusScheduled  ScheduleStatus = "scheduled"
	ScheduleStatusReady      ScheduleStatus = "ready"
	ScheduleStatusInProgress ScheduleStatus = "in_progress"
	ScheduleStatusCompleted  ScheduleStatus = "completed"
	ScheduleStatusCancelled  ScheduleStatus = "cancelled"
	ScheduleStatusOnHold     ScheduleStatus = "on_hold"
)

// IsTerminal returns true for completed and cancelled schedules
func (s ScheduleStatus) IsTerminal() bool {
	return s == ScheduleStatusCompleted || s == ScheduleStatusCancelled
}

// CanTransitionTo reports whether s -> target is allowed
func (s ScheduleStatus) CanTransitionTo(target ScheduleStatus) bool {
	switch s {
	case ScheduleStatusScheduled:
		return target == ScheduleStatusReady || target == ScheduleStatusInProgress ||
			target == ScheduleStatusOnHold || target == ScheduleStatusCancelled
	case ScheduleStatusReady:
		return target == ScheduleStatusInProgress || target == ScheduleStatusOnHold ||
			target == ScheduleStatusCancelled
	case ScheduleStatusInProgress:
		return target == ScheduleStatusCompleted || target == ScheduleStatusOnHold ||
			target == ScheduleStatusCancelled
	case ScheduleStatusOnHold:
		return target == ScheduleStatusScheduled || target == ScheduleStatusReady ||
			target == ScheduleStatusInProgress || target == ScheduleStatusCancelled
	case ScheduleStatusCompleted, ScheduleStatusCancelled:
		return false
	}
	return false
}

// ProductionSchedule books one operation of an order on a work center
type ProductionSchedule struct {
	shared.BaseAggregateRoot
	Reference          string
	ProductionOrderID  int64
	WorkCenterID       int64
	Operation          string
	Sequence           int
	Status             ScheduleStatus
	HeldFrom           ScheduleStatus
	ScheduledStart     time.Time
	ScheduledEnd       time.Time
	ActualStart        *time.Time
	ActualEnd          *time.Time
	QuantityScheduled  decimal.Decimal
	QuantityCompleted  decimal.Decimal
	QuantityScrapped   decimal.Decimal
	HasConflict        bool
	ConflictDetails    string
	HoldReason         string
	CancellationReason string
}

// ScheduleSpec carries the attributes of a new schedule entry
type ScheduleSpec struct {
	Reference         string
	ProductionOrderID int64
	WorkCenterID      int64
	Operation         string
	Sequence          int
	Start             time.Time
	End               time.Time
	Quantity          decimal.Decimal
}

// NewProductionSchedule validates the window and creates a scheduled entry
func NewProductionSchedule(spec ScheduleSpec) (*ProductionSchedule, error) {
	if spec.ProductionOrderID <= 0 || spec.WorkCenterID <= 0 {
		return nil, errValidation("production order and work center are required")
	}
	if err := validateWindow(spec.Start, spec.End); err != nil {
		return nil, err
	}
	if !spec.Quantity.IsPositive() {
		return nil, errValidation("scheduled quantity must be positive")
	}
	return &ProductionSchedule{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         spec.Reference,
		ProductionOrderID: spec.ProductionOrderID,
		WorkCenterID:      spec.WorkCenterID,
		Operation:         strings.TrimSpace(spec.Operation),
		Sequence:          spec.Sequence,
		Status:            ScheduleStatusScheduled,
		ScheduledStart:    spec.Start,
		ScheduledEnd:      spec.End,
		QuantityScheduled: spec.Quantity,
		QuantityCompleted: decimal.Zero,
		QuantityScrapped:  decimal.Zero,
	}, nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return errValidation("schedule window needs both start and end")
	}
	if !start.Before(end) {
		return errValidation("schedule start %s must be before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// Window returns the productive window: actuals when known, else scheduled
func (s *ProductionSchedule) Window() (time.Time, time.Time) {
	start, end := s.ScheduledStart, s.ScheduledEnd
	if s.ActualStart != nil {
		start = *s.ActualStart
	}
	if s.ActualEnd != nil {
		end = *s.ActualEnd
	}
	if end.Before(start) {
		end = start
	}
	return start, end
}

// Reschedule moves a not yet started entry to a new window
func (s *ProductionSchedule) Reschedule(start, end time.Time) error {
	if s.Status != ScheduleStatusScheduled && s.Status != ScheduleStatusReady && s.Status != ScheduleStatusOnHold {
		return errState("schedule %s is %s and cannot be rescheduled", s.Reference, s.Status)
	}
	if s.ActualStart != nil {
		return errState("schedule %s has already started", s.Reference)
	}
	if err := validateWindow(start, end); err != nil {
		return err
	}
	s.ScheduledStart = start
	s.ScheduledEnd = end
	s.touch()
	return nil
}

// MarkReady flags a scheduled entry as ready to run
func (s *ProductionSchedule) MarkReady(actor string) error {
	if s.Status != ScheduleStatusScheduled {
		return s.stateError(ScheduleStatusReady)
	}
	return s.transition(ScheduleStatusReady, actor, "")
}

// Start records the actual start
func (s *ProductionSchedule) Start(actor string) error {
	if s.Status != ScheduleStatusScheduled && s.Status != ScheduleStatusReady {
		return s.stateError(ScheduleStatusInProgress)
	}
	now := time.Now()
	s.ActualStart = &now
	return s.transition(ScheduleStatusInProgress, actor, "")
}

// Complete records actuals. completed + scrapped cannot exceed the scheduled quantity.
func (s *ProductionSchedule) Complete(actor string, completed, scrapped decimal.Decimal) error {
	if s.Status != ScheduleStatusInProgress {
		return s.stateError(ScheduleStatusCompleted)
	}
	if completed.IsNegative() || scrapped.IsNegative() {
		return errValidation("completed and scrapped quantities cannot be negative")
	}
	if completed.Add(scrapped).GreaterThan(s.QuantityScheduled) {
		return errValidation("completed %s plus scrapped %s exceeds scheduled %s",
			completed.String(), scrapped.String(), s.QuantityScheduled.String())
	}
	now := time.Now()
	s.ActualEnd = &now
	s.QuantityCompleted = completed
	s.QuantityScrapped = scrapped
	return s.transition(ScheduleStatusCompleted, actor, "")
}

// Cancel withdraws the entry; it no longer takes part in conflict detection
func (s *ProductionSchedule) Cancel(actor, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errValidation("cancellation reason is required")
	}
	if !s.Status.CanTransitionTo(ScheduleStatusCancelled) {
		return s.stateError(ScheduleStatusCancelled)
	}
	s.CancellationReason = reason
	return s.transition(ScheduleStatusCancelled, actor, reason)
}

// Hold pauses the entry and remembers where to resume
func (s *ProductionSchedule) Hold(actor, reason string) error {
	if s.Status == ScheduleStatusOnHold || !s.Status.CanTransitionTo(ScheduleStatusOnHold) {
		return s.stateError(ScheduleStatusOnHold)
	}
	s.HeldFrom = s.Status
	s.HoldReason = strings.TrimSpace(reason)
	return s.transition(ScheduleStatusOnHold, actor, s.HoldReason)
}

// Resume returns a held entry to the status it was held from
func (s *ProductionSchedule) Resume(actor string) error {
	if s.Status != ScheduleStatusOnHold {
		return errState("schedule %s is not on hold", s.Reference)
	}
	target := s.HeldFrom
	if target == "" {
		target = ScheduleStatusScheduled
	}
	s.HeldFrom = ""
	s.HoldReason = ""
	return s.transition(target, actor, "")
}

// SetConflict updates the conflict flag and reports whether anything changed
func (s *ProductionSchedule) SetConflict(details string) bool {
	has := details != ""
	if s.HasConflict == has && s.ConflictDetails == details {
		return false
	}
	newly := has && !s.HasConflict
	s.HasConflict = has
	s.ConflictDetails = details
	s.touch()
	if newly {
		s.AddDomainEvent(NewScheduleConflictEvent(s))
	}
	return true
}

func (s *ProductionSchedule) transition(target ScheduleStatus, actor, reason string) error {
	if !s.Status.CanTransitionTo(target) {
		return s.stateError(target)
	}
	from := s.Status
	s.Status = target
	s.touch()
	ev := newStatusChangedEvent(EventTypeProductionScheduleStatusChanged, AggregateTypeSchedule,
		s.ID, s.Reference, string(from), string(target), actor, reason)
	ev.Extra = map[string]any{"work_center_id": s.WorkCenterID, "production_order_id": s.ProductionOrderID}
	s.AddDomainEvent(ev)
	return nil
}

func (s *ProductionSchedule) stateError(target ScheduleStatus) error {
	return errState("schedule %s cannot move from %s to %s", s.Reference, s.Status, target)
}

func (s *ProductionSchedule) touch() {
	s.UpdatedAt = time.Now()
}
