package manufacturing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ScheduleService books order operations on work centers and keeps conflict
// flags and utilization current. Every write locks the work center row first.
type ScheduleService struct {
	*runner
	refs ReferenceGenerator
}

// NewScheduleService creates a ScheduleService
func NewScheduleService(deps Dependencies) *ScheduleService {
	return &ScheduleService{runner: deps.runner(), refs: deps.References}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ScheduleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreateWorkCenter registers a work center
func (s *ScheduleService) CreateWorkCenter(ctx context.Context, req CreateWorkCenterRequest) (*WorkCenterResponse, error) {
	var wc *manufacturing.WorkCenter
	err := s.run(ctx, func(uow *UnitOfWork) error {
		var err error
		if wc, err = manufacturing.NewWorkCenter(req.Code, req.Name, req.CapacityPerDay, req.EfficiencyPercentage); err != nil {
			return err
		}
		if err := wc.SetBatchLimits(req.MinBatchSize, req.MaxBatchSize); err != nil {
			return err
		}
		wc.SetupMinutes = req.SetupMinutes
		wc.TeardownMinutes = req.TeardownMinutes
		return uow.WorkCenterRepo().Save(ctx, wc)
	})
	if err != nil {
		return nil, err
	}
	resp := ToWorkCenterResponse(wc)
	return &resp, nil
}

// GetWorkCenter returns one work center
func (s *ScheduleService) GetWorkCenter(ctx context.Context, id int64) (*WorkCenterResponse, error) {
	var wc *manufacturing.WorkCenter
	err := s.read(ctx, func(repos Repositories) error {
		var err error
		wc, err = repos.WorkCenterRepo().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToWorkCenterResponse(wc)
	return &resp, nil
}

// ListWorkCenters returns a page of work centers
func (s *ScheduleService) ListWorkCenters(ctx context.Context, filter WorkCenterListFilter) ([]WorkCenterResponse, int64, error) {
	var (
		wcs   []manufacturing.WorkCenter
		total int64
	)
	err := s.read(ctx, func(repos Repositories) error {
		var err error
		wcs, total, err = repos.WorkCenterRepo().FindAll(ctx, filter.toDomain())
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]WorkCenterResponse, 0, len(wcs))
	for i := range wcs {
		out = append(out, ToWorkCenterResponse(&wcs[i]))
	}
	return out, total, nil
}

// Create books a new schedule entry and flags every overlap on its work center
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest, actor string) (*ScheduleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "schedule", "create",
		telemetry.WithAttribute(telemetry.SpanAttrWorkCenterID, req.WorkCenterID),
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, req.ProductionOrderID))
	defer span.End()

	reference, err := s.refs.Next(ctx, PrefixSchedule)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var sched *manufacturing.ProductionSchedule
	err = s.run(ctx, func(uow *UnitOfWork) error {
		wc, err := uow.WorkCenterRepo().FindByIDForUpdate(ctx, req.WorkCenterID)
		if err != nil {
			return err
		}
		if err := wc.CanSchedule(); err != nil {
			return err
		}
		if err := wc.CheckBatchSize(req.Quantity); err != nil {
			return err
		}
		order, err := uow.OrderRepo().FindByID(ctx, req.ProductionOrderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return shared.NewStateError("production order %s is %s and cannot be scheduled", order.Reference, order.Status)
		}
		sched, err = manufacturing.NewProductionSchedule(manufacturing.ScheduleSpec{
			Reference:         reference,
			ProductionOrderID: order.ID,
			WorkCenterID:      wc.ID,
			Operation:         req.Operation,
			Sequence:          req.Sequence,
			Start:             req.ScheduledStart,
			End:               req.ScheduledEnd,
			Quantity:          req.Quantity,
		})
		if err != nil {
			return err
		}
		if err := uow.ScheduleRepo().Save(ctx, sched); err != nil {
			return err
		}
		if err := s.detect(ctx, uow, wc, sched); err != nil {
			return err
		}
		return s.recomputeUtilization(ctx, uow, wc, sched, manufacturing.CalendarDays(sched.Window()))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if sched.HasConflict {
		s.logger.Warn("schedule conflicts with existing bookings",
			zap.String("reference", sched.Reference),
			zap.String("details", sched.ConflictDetails))
	}
	resp := ToScheduleResponse(sched)
	return &resp, nil
}

// workCenterSchedules loads every schedule of the work center, substituting
// current for its stored copy so in-memory changes are seen
func workCenterSchedules(ctx context.Context, uow *UnitOfWork, wcID int64, current *manufacturing.ProductionSchedule) ([]*manufacturing.ProductionSchedule, error) {
	all, err := uow.ScheduleRepo().FindByWorkCenter(ctx, wcID)
	if err != nil {
		return nil, err
	}
	found := false
	for i, other := range all {
		if other.ID == current.ID {
			all[i] = current
			found = true
		}
	}
	if !found {
		all = append(all, current)
	}
	return all, nil
}

// detect recomputes conflict flags across the work center and saves the entries that changed
func (s *ScheduleService) detect(ctx context.Context, uow *UnitOfWork, wc *manufacturing.WorkCenter, current *manufacturing.ProductionSchedule) error {
	all, err := workCenterSchedules(ctx, uow, wc.ID, current)
	if err != nil {
		return err
	}
	for _, changed := range manufacturing.DetectConflicts(wc, all) {
		if err := uow.ScheduleRepo().Save(ctx, changed); err != nil {
			return err
		}
	}
	for _, sc := range all {
		uow.Collect(sc)
	}
	return nil
}

// redetect recomputes flags after sched changed in memory. sched itself is
// saved by the caller; other entries are saved here when their flags move.
func (s *ScheduleService) redetect(ctx context.Context, uow *UnitOfWork, wc *manufacturing.WorkCenter, sched *manufacturing.ProductionSchedule) error {
	all, err := workCenterSchedules(ctx, uow, wc.ID, sched)
	if err != nil {
		return err
	}
	for _, changed := range manufacturing.DetectConflicts(wc, all) {
		if changed == sched {
			continue
		}
		if err := uow.ScheduleRepo().Save(ctx, changed); err != nil {
			return err
		}
		uow.Collect(changed)
	}
	return nil
}

// mutate locks the work center of a schedule, reloads the schedule and applies fn
func (s *ScheduleService) mutate(ctx context.Context, id int64, fn func(uow *UnitOfWork, wc *manufacturing.WorkCenter, sched *manufacturing.ProductionSchedule) error) (*manufacturing.ProductionSchedule, error) {
	var sched *manufacturing.ProductionSchedule
	err := s.run(ctx, func(uow *UnitOfWork) error {
		head, err := uow.ScheduleRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		wc, err := uow.WorkCenterRepo().FindByIDForUpdate(ctx, head.WorkCenterID)
		if err != nil {
			return err
		}
		if sched, err = uow.ScheduleRepo().FindByID(ctx, id); err != nil {
			return err
		}
		if err := fn(uow, wc, sched); err != nil {
			return err
		}
		if err := uow.ScheduleRepo().Save(ctx, sched); err != nil {
			return err
		}
		uow.Collect(sched)
		return nil
	})
	return sched, err
}

func (s *ScheduleService) respond(sched *manufacturing.ProductionSchedule, err error) (*ScheduleResponse, error) {
	if err != nil {
		return nil, err
	}
	resp := ToScheduleResponse(sched)
	return &resp, nil
}

// Reschedule moves an entry to a new window and re-evaluates conflicts and
// utilization over the old and new days
func (s *ScheduleService) Reschedule(ctx context.Context, id int64, req RescheduleRequest) (*ScheduleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "schedule", "reschedule",
		telemetry.WithAttribute(telemetry.SpanAttrScheduleID, id))
	defer span.End()

	sched, err := s.mutate(ctx, id, func(uow *UnitOfWork, wc *manufacturing.WorkCenter, sched *manufacturing.ProductionSchedule) error {
		before := manufacturing.CalendarDays(sched.Window())
		if err := sched.Reschedule(req.ScheduledStart, req.ScheduledEnd); err != nil {
			return err
		}
		if err := s.redetect(ctx, uow, wc, sched); err != nil {
			return err
		}
		days := mergeDays(before, manufacturing.CalendarDays(sched.Window()))
		return s.recomputeUtilization(ctx, uow, wc, sched, days)
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return s.respond(sched, err)
}

// Cancel withdraws an entry. Overlaps it caused are cleared and its booked
// time leaves the work center utilization.
func (s *ScheduleService) Cancel(ctx context.Context, id int64, req ReasonRequest, actor string) (*ScheduleResponse, error) {
	return s.respond(s.mutate(ctx, id, func(uow *UnitOfWork, wc *manufacturing.WorkCenter, sched *manufacturing.ProductionSchedule) error {
		if err := sched.Cancel(actor, req.Reason); err != nil {
			return err
		}
		if err := s.redetect(ctx, uow, wc, sched); err != nil {
			return err
		}
		return s.recomputeUtilization(ctx, uow, wc, sched, manufacturing.CalendarDays(sched.Window()))
	}))
}

// MarkReady flags a scheduled entry as ready
func (s *ScheduleService) MarkReady(ctx context.Context, id int64, actor string) (*ScheduleResponse, error) {
	return s.respond(s.mutate(ctx, id, func(_ *UnitOfWork, _ *manufacturing.WorkCenter, sched *manufacturing.ProductionSchedule) error {
		return sched.MarkReady(actor)
	}))
}

// Start records the actual start and refreshes work center utilization
func (s *ScheduleService) Start(ctx context.Context, id int64, actor string) (*ScheduleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "schedule", "start",
		telemetry.WithAttribute(telemetry.SpanAttrScheduleID, id))
	defer span.End()

	sched, err := s.mutate(ctx, id, func(uow *UnitOfWork, wc *manufacturing.WorkCenter, sched *manufacturing.ProductionSchedule) error {
		if err := sched.Start(actor); err != nil {
			return err
		}
		return s.recomputeUtilization(ctx, uow, wc, sched, manufacturing.CalendarDays(sched.Window()))
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return s.respond(sched, err)
}

// Complete records actual output and refreshes work center utilization
func (s *ScheduleService) Complete(ctx context.Context, id int64, req CompleteScheduleRequest, actor string) (*ScheduleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "schedule", "complete",
		telemetry.WithAttribute(telemetry.SpanAttrScheduleID, id),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.QuantityCompleted.String()))
	defer span.End()

	sched, err := s.mutate(ctx, id, func(uow *UnitOfWork, wc *manufacturing.WorkCenter, sched *manufacturing.ProductionSchedule) error {
		if err := sched.Complete(actor, req.QuantityCompleted, req.QuantityScrapped); err != nil {
			return err
		}
		return s.recomputeUtilization(ctx, uow, wc, sched, manufacturing.CalendarDays(sched.Window()))
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return s.respond(sched, err)
}

// recomputeUtilization rates the work center over days, seeing sched as it is in memory
func (s *ScheduleService) recomputeUtilization(ctx context.Context, uow *UnitOfWork, wc *manufacturing.WorkCenter, sched *manufacturing.ProductionSchedule, days []time.Time) error {
	all, err := workCenterSchedules(ctx, uow, wc.ID, sched)
	if err != nil {
		return err
	}
	wc.RecomputeUtilization(all, days)
	if err := uow.WorkCenterRepo().Save(ctx, wc); err != nil {
		return fmt.Errorf("failed to save work center utilization: %w", err)
	}
	s.logger.Info("work center utilization recomputed",
		zap.String("work_center", wc.Code),
		zap.String("utilization", wc.UtilizationPercentage.String()))
	return nil
}

// mergeDays returns the sorted union of two day lists
func mergeDays(a, b []time.Time) []time.Time {
	seen := make(map[time.Time]bool, len(a)+len(b))
	out := make([]time.Time, 0, len(a)+len(b))
	for _, day := range append(append([]time.Time{}, a...), b...) {
		if !seen[day] {
			seen[day] = true
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Hold pauses an entry
func (s *ScheduleService) Hold(ctx context.Context, id int64, req HoldOrderRequest, actor string) (*ScheduleResponse, error) {
	return s.respond(s.mutate(ctx, id, func(_ *UnitOfWork, _ *manufacturing.WorkCenter, sched *manufacturing.ProductionSchedule) error {
		return sched.Hold(actor, req.Reason)
	}))
}

// Resume returns a held entry to where it was
func (s *ScheduleService) Resume(ctx context.Context, id int64, actor string) (*ScheduleResponse, error) {
	return s.respond(s.mutate(ctx, id, func(_ *UnitOfWork, _ *manufacturing.WorkCenter, sched *manufacturing.ProductionSchedule) error {
		return sched.Resume(actor)
	}))
}

// Get returns one schedule entry
func (s *ScheduleService) Get(ctx context.Context, id int64) (*ScheduleResponse, error) {
	var sched *manufacturing.ProductionSchedule
	err := s.read(ctx, func(repos Repositories) error {
		var err error
		sched, err = repos.ScheduleRepo().FindByID(ctx, id)
		return err
	})
	return s.respond(sched, err)
}

// ListByOrder returns the schedule entries of an order
func (s *ScheduleService) ListByOrder(ctx context.Context, orderID int64) ([]ScheduleResponse, error) {
	var scheds []manufacturing.ProductionSchedule
	err := s.read(ctx, func(repos Repositories) error {
		var err error
		scheds, err = repos.ScheduleRepo().FindByOrder(ctx, orderID)
		return err
	})
	return toScheduleResponses(scheds, err)
}

// ListConflicts returns the flagged entries of a work center
func (s *ScheduleService) ListConflicts(ctx context.Context, workCenterID int64) ([]ScheduleResponse, error) {
	var scheds []manufacturing.ProductionSchedule
	err := s.read(ctx, func(repos Repositories) error {
		if _, err := repos.WorkCenterRepo().FindByID(ctx, workCenterID); err != nil {
			return err
		}
		var err error
		scheds, err = repos.ScheduleRepo().FindConflicting(ctx, workCenterID)
		return err
	})
	return toScheduleResponses(scheds, err)
}

func toScheduleResponses(scheds []manufacturing.ProductionSchedule, err error) ([]ScheduleResponse, error) {
	if err != nil {
		return nil, err
	}
	out := make([]ScheduleResponse, 0, len(scheds))
	for i := range scheds {
		out = append(out, ToScheduleResponse(&scheds[i]))
	}
	return out, nil
}
