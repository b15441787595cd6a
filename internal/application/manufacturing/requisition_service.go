package manufacturing

import (
	"context"

	appinventory "github.com/erp/manufacturing/internal/application/inventory"
	"github.com/erp/manufacturing/internal/domain/catalog"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RequisitionService runs the material requisition workflow
type RequisitionService struct {
	*runner
	refs ReferenceGenerator
}

// NewRequisitionService creates a RequisitionService
func NewRequisitionService(deps Dependencies) *RequisitionService {
	return &RequisitionService{runner: deps.runner(), refs: deps.References}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *RequisitionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Create opens a draft manual requisition for an order
func (s *RequisitionService) Create(ctx context.Context, req CreateRequisitionRequest, actor string) (*RequisitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "requisition", "create",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, req.ProductionOrderID))
	defer span.End()

	reference, err := s.refs.Next(ctx, PrefixRequisition)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var r *manufacturing.MaterialRequisition
	err = s.run(ctx, func(uow *UnitOfWork) error {
		order, err := uow.OrderRepo().FindByID(ctx, req.ProductionOrderID)
		if err != nil {
			return err
		}
		lines, err := requisitionLines(order, req.Lines)
		if err != nil {
			return err
		}
		if r, err = manufacturing.NewMaterialRequisition(reference, order, lines, actor); err != nil {
			return err
		}
		if err := uow.RequisitionRepo().Save(ctx, r); err != nil {
			return err
		}
		uow.Collect(r)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.respond(r, nil)
}

// requisitionLines defaults to the outstanding requirement of every order
// item and otherwise checks explicit lines against the items they name
func requisitionLines(order *manufacturing.ProductionOrder, reqs []RequisitionLineRequest) ([]manufacturing.RequisitionLine, error) {
	lines := make([]manufacturing.RequisitionLine, 0, len(order.Items))
	if len(reqs) == 0 {
		for _, it := range order.Items {
			outstanding := it.QuantityRequired.Sub(it.QuantityIssued)
			if !outstanding.IsPositive() {
				continue
			}
			id := it.ID
			lines = append(lines, manufacturing.RequisitionLine{ProductionOrderItemID: &id, ProductID: it.ProductID, Quantity: outstanding})
		}
		return lines, nil
	}
	for _, l := range reqs {
		if l.ProductionOrderItemID != nil {
			it, ok := order.Item(*l.ProductionOrderItemID)
			if !ok {
				return nil, shared.ErrNotFound.WithDetail("production_order_item_id", *l.ProductionOrderItemID)
			}
			if it.ProductID != l.ProductID {
				return nil, shared.NewValidationError("order item %d is for product %d, not %d", it.ID, it.ProductID, l.ProductID)
			}
			if outstanding := it.QuantityRequired.Sub(it.QuantityIssued); l.Quantity.GreaterThan(outstanding) {
				return nil, shared.NewValidationError("requested %s exceeds outstanding requirement %s of order item %d",
					l.Quantity.String(), outstanding.String(), it.ID)
			}
		}
		lines = append(lines, manufacturing.RequisitionLine{
			ProductionOrderItemID: l.ProductionOrderItemID,
			ProductID:             l.ProductID,
			Quantity:              l.Quantity,
		})
	}
	return lines, nil
}

func (s *RequisitionService) respond(r *manufacturing.MaterialRequisition, err error) (*RequisitionResponse, error) {
	if err != nil {
		return nil, err
	}
	resp := ToRequisitionResponse(r)
	return &resp, nil
}

// mutate locks the owning order first, then the requisition, matching the
// lock order of order cancellation. Both are saved.
func (s *RequisitionService) mutate(ctx context.Context, id int64, fn func(uow *UnitOfWork, order *manufacturing.ProductionOrder, r *manufacturing.MaterialRequisition) error) (*manufacturing.MaterialRequisition, error) {
	var r *manufacturing.MaterialRequisition
	err := s.run(ctx, func(uow *UnitOfWork) error {
		head, err := uow.RequisitionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		order, err := uow.OrderRepo().FindByIDForUpdate(ctx, head.ProductionOrderID)
		if err != nil {
			return err
		}
		if r, err = uow.RequisitionRepo().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := fn(uow, order, r); err != nil {
			return err
		}
		if err := uow.RequisitionRepo().Save(ctx, r); err != nil {
			return err
		}
		if err := uow.OrderRepo().Save(ctx, order); err != nil {
			return err
		}
		uow.Collect(r, order)
		return nil
	})
	return r, err
}

// Submit sends a draft requisition for approval
func (s *RequisitionService) Submit(ctx context.Context, id int64, actor string) (*RequisitionResponse, error) {
	return s.respond(s.mutate(ctx, id, func(_ *UnitOfWork, order *manufacturing.ProductionOrder, r *manufacturing.MaterialRequisition) error {
		if err := requireOpenOrder(order); err != nil {
			return err
		}
		return r.Submit(actor)
	}))
}

// Approve grants each line what is currently available and reserves it for
// order items that hold no reservation yet. Shortages are reported on the
// requisition, not as an error.
func (s *RequisitionService) Approve(ctx context.Context, id int64, actor string) (*RequisitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "requisition", "approve",
		telemetry.WithAttribute(telemetry.SpanAttrRequisitionID, id))
	defer span.End()

	r, err := s.mutate(ctx, id, func(uow *UnitOfWork, order *manufacturing.ProductionOrder, r *manufacturing.MaterialRequisition) error {
		if err := requireOpenOrder(order); err != nil {
			return err
		}
		available := make(map[int64]decimal.Decimal)
		for _, it := range r.Items {
			if _, ok := available[it.ProductID]; ok {
				continue
			}
			qty, err := uow.Ledger.Available(ctx, it.ProductID, r.WarehouseID)
			if err != nil {
				return err
			}
			available[it.ProductID] = qty
		}
		if err := r.Approve(actor, available); err != nil {
			return err
		}
		if err := reserveApproved(ctx, uow, order, r, actor); err != nil {
			return err
		}
		if order.Status == manufacturing.OrderStatusReleased && order.IsFullyReserved() {
			return order.MarkMaterialsReserved(actor)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if r.HasShortage {
		s.logger.Warn("requisition approved with shortage", zap.String("reference", r.Reference))
	} else {
		s.logger.Info("requisition approved", zap.String("reference", r.Reference))
	}
	return s.respond(r, nil)
}

func reserveApproved(ctx context.Context, uow *UnitOfWork, order *manufacturing.ProductionOrder, r *manufacturing.MaterialRequisition, actor string) error {
	for _, it := range r.Items {
		if it.ProductionOrderItemID == nil || !it.QuantityApproved.IsPositive() {
			continue
		}
		oi, ok := order.Item(*it.ProductionOrderItemID)
		if !ok || oi.ReservationHandle != nil {
			continue
		}
		qty := decimal.Min(it.QuantityApproved, oi.Unreserved())
		if !qty.IsPositive() {
			continue
		}
		res, err := uow.Ledger.Reserve(ctx, it.ProductID, r.WarehouseID, qty,
			inventory.RequisitionDoc{RequisitionID: r.ID, ItemID: it.ID}, actor)
		if err != nil {
			return err
		}
		if err := oi.RecordReservation(res.Quantity, res.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Pick takes material for an item. Tracked products must name a batch,
// which gets allocated; untracked products must not.
func (s *RequisitionService) Pick(ctx context.Context, id, itemID int64, req PickRequest, actor string) (*RequisitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "requisition", "pick",
		telemetry.WithAttribute(telemetry.SpanAttrRequisitionID, id),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity.String()))
	defer span.End()

	r, err := s.mutate(ctx, id, func(uow *UnitOfWork, order *manufacturing.ProductionOrder, r *manufacturing.MaterialRequisition) error {
		if err := requireOpenOrder(order); err != nil {
			return err
		}
		it, err := r.Item(itemID)
		if err != nil {
			return err
		}
		product, err := uow.Ledger.Product(ctx, it.ProductID)
		if err != nil {
			return err
		}
		tracked := product.TrackingMode != catalog.TrackingNone
		if tracked && req.BatchID == nil {
			return shared.NewValidationError("product %s is batch tracked; a batch is required", product.Code)
		}
		if !tracked && req.BatchID != nil {
			return shared.NewValidationError("product %s is not batch tracked", product.Code)
		}

		pick, err := r.Pick(itemID, manufacturing.PickSpec{
			BatchID:     req.BatchID,
			BatchNumber: req.BatchNumber,
			Quantity:    req.Quantity,
			Location:    req.Location,
		}, actor)
		if err != nil {
			return err
		}
		if req.BatchID != nil {
			batch, err := uow.Ledger.AllocateBatch(ctx, *req.BatchID, it.ProductID, r.WarehouseID, req.Quantity)
			if err != nil {
				return err
			}
			pick.BatchNumber = batch.Number
		}
		if it.ProductionOrderItemID != nil {
			if oi, ok := order.Item(*it.ProductionOrderItemID); ok {
				oi.MarkPicked()
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return s.respond(r, err)
}

// ReturnPick puts a picked quantity back and frees its batch allocation
func (s *RequisitionService) ReturnPick(ctx context.Context, id, itemID, pickID int64, actor string) (*RequisitionResponse, error) {
	return s.respond(s.mutate(ctx, id, func(uow *UnitOfWork, _ *manufacturing.ProductionOrder, r *manufacturing.MaterialRequisition) error {
		pick, err := r.ReturnPick(itemID, pickID)
		if err != nil {
			return err
		}
		return deallocatePicks(ctx, uow, []*manufacturing.MaterialPick{pick})
	}))
}

// Issue hands the picked quantity of an item to production through the ledger
func (s *RequisitionService) Issue(ctx context.Context, id, itemID int64, actor string) (*RequisitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "requisition", "issue",
		telemetry.WithAttribute(telemetry.SpanAttrRequisitionID, id),
		telemetry.WithAttribute("item_id", itemID))
	defer span.End()

	r, err := s.mutate(ctx, id, func(uow *UnitOfWork, order *manufacturing.ProductionOrder, r *manufacturing.MaterialRequisition) error {
		if err := requireOpenOrder(order); err != nil {
			return err
		}
		it, err := r.Item(itemID)
		if err != nil {
			return err
		}
		picks, total, err := r.Issue(itemID, actor)
		if err != nil {
			return err
		}
		draws := make([]inventory.BatchDraw, 0, len(picks))
		for _, p := range picks {
			if p.BatchID != nil {
				draws = append(draws, inventory.BatchDraw{BatchID: *p.BatchID, Number: p.BatchNumber, Quantity: p.QuantityPicked})
			}
		}

		var (
			oi     *manufacturing.ProductionOrderItem
			handle *uuid.UUID
		)
		if it.ProductionOrderItemID != nil {
			if found, ok := order.Item(*it.ProductionOrderItemID); ok {
				oi = found
				handle = oi.ReservationHandle
			}
		}
		if _, err := uow.Ledger.Issue(ctx, appinventory.IssueRequest{
			ProductID:   it.ProductID,
			WarehouseID: r.WarehouseID,
			Quantity:    total,
			Reservation: handle,
			Picked:      draws,
			Document:    inventory.RequisitionDoc{RequisitionID: r.ID, ItemID: it.ID},
			Actor:       actor,
		}); err != nil {
			return err
		}
		if oi != nil {
			if err := oi.RecordIssue(total); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("requisition item issued",
		zap.String("reference", r.Reference),
		zap.Int64("item_id", itemID),
		zap.String("status", string(r.Status)))
	return s.respond(r, nil)
}

// ShortClose closes an item at what has been issued and frees the rest of a
// reservation this requisition made
func (s *RequisitionService) ShortClose(ctx context.Context, id, itemID int64, actor string) (*RequisitionResponse, error) {
	return s.respond(s.mutate(ctx, id, func(uow *UnitOfWork, order *manufacturing.ProductionOrder, r *manufacturing.MaterialRequisition) error {
		it, err := r.ShortClose(itemID, actor)
		if err != nil {
			return err
		}
		return releaseRequisitionReservation(ctx, uow, order, r, it, actor)
	}))
}

// Complete closes an issued requisition
func (s *RequisitionService) Complete(ctx context.Context, id int64, actor string) (*RequisitionResponse, error) {
	return s.respond(s.mutate(ctx, id, func(_ *UnitOfWork, _ *manufacturing.ProductionOrder, r *manufacturing.MaterialRequisition) error {
		return r.Complete(actor)
	}))
}

// Cancel aborts a requisition before anything was issued. Open picks go back
// and reservations the requisition made are released.
func (s *RequisitionService) Cancel(ctx context.Context, id int64, req ReasonRequest, actor string) (*RequisitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "requisition", "cancel",
		telemetry.WithAttribute(telemetry.SpanAttrRequisitionID, id))
	defer span.End()

	r, err := s.mutate(ctx, id, func(uow *UnitOfWork, order *manufacturing.ProductionOrder, r *manufacturing.MaterialRequisition) error {
		returned, err := r.Cancel(actor, req.Reason)
		if err != nil {
			return err
		}
		if err := deallocatePicks(ctx, uow, returned); err != nil {
			return err
		}
		for _, it := range r.Items {
			if err := releaseRequisitionReservation(ctx, uow, order, r, it, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return s.respond(r, err)
}

// requireOpenOrder rejects material movement against a completed or cancelled order
func requireOpenOrder(order *manufacturing.ProductionOrder) error {
	if order.Status.IsTerminal() {
		return shared.NewStateError("production order %s is %s; no material moves against it", order.Reference, order.Status)
	}
	return nil
}

// releaseRequisitionReservation frees the reservation of the linked order item
// when that reservation was made by approving r
func releaseRequisitionReservation(ctx context.Context, uow *UnitOfWork, order *manufacturing.ProductionOrder, r *manufacturing.MaterialRequisition, it *manufacturing.MaterialRequisitionItem, actor string) error {
	if it.ProductionOrderItemID == nil {
		return nil
	}
	oi, ok := order.Item(*it.ProductionOrderItemID)
	if !ok || oi.ReservationHandle == nil {
		return nil
	}
	res, err := uow.ReservationRepo().FindByHandle(ctx, *oi.ReservationHandle)
	if err != nil {
		return err
	}
	doc, ok := res.Document.(inventory.RequisitionDoc)
	if !ok || doc.RequisitionID != r.ID {
		return nil
	}
	if _, err := uow.Ledger.Release(ctx, res.Handle, actor); err != nil {
		return err
	}
	oi.ClearReservation()
	return nil
}

// Get returns one requisition
func (s *RequisitionService) Get(ctx context.Context, id int64) (*RequisitionResponse, error) {
	var r *manufacturing.MaterialRequisition
	err := s.read(ctx, func(repos Repositories) error {
		var err error
		r, err = repos.RequisitionRepo().FindByID(ctx, id)
		return err
	})
	return s.respond(r, err)
}

// ListByOrder returns every requisition of an order
func (s *RequisitionService) ListByOrder(ctx context.Context, orderID int64) ([]RequisitionResponse, error) {
	var reqs []manufacturing.MaterialRequisition
	err := s.read(ctx, func(repos Repositories) error {
		var err error
		reqs, err = repos.RequisitionRepo().FindByOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]RequisitionResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, ToRequisitionResponse(&reqs[i]))
	}
	return out, nil
}
