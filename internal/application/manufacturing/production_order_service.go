package manufacturing

import (
	"context"
	"fmt"
	"time"

	appinventory "github.com/erp/manufacturing/internal/application/inventory"
	"github.com/erp/manufacturing/internal/domain/catalog"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductionOrderService drives production orders through their lifecycle
type ProductionOrderService struct {
	*runner
	refs       ReferenceGenerator
	tolerance  decimal.Decimal
	allocators map[manufacturing.AllocationMode]MaterialAllocator
}

// NewProductionOrderService creates a ProductionOrderService with the auto and manual allocators
func NewProductionOrderService(deps Dependencies, allocators ...MaterialAllocator) *ProductionOrderService {
	if len(allocators) == 0 {
		allocators = []MaterialAllocator{NewAutoAllocator(), NewManualAllocator()}
	}
	s := &ProductionOrderService{
		runner:     deps.runner(),
		refs:       deps.References,
		tolerance:  deps.Settings.OverproductionTolerance,
		allocators: make(map[manufacturing.AllocationMode]MaterialAllocator, len(allocators)),
	}
	for _, a := range allocators {
		s.allocators[a.Mode()] = a
	}
	return s
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ProductionOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Create opens a draft order against an effective BOM
func (s *ProductionOrderService) Create(ctx context.Context, req CreateOrderRequest, actor string) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production_order", "create",
		telemetry.WithAttribute(telemetry.SpanAttrBOMID, req.BillOfMaterialID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity.String()))
	defer span.End()

	reference, err := s.refs.Next(ctx, PrefixOrder)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var order *manufacturing.ProductionOrder
	err = s.run(ctx, func(uow *UnitOfWork) error {
		bom, err := uow.BOMRepo().FindByID(ctx, req.BillOfMaterialID)
		if err != nil {
			return err
		}
		if _, err := uow.Warehouses().FindByID(ctx, req.WarehouseID); err != nil {
			return err
		}
		order, err = manufacturing.NewProductionOrder(bom, manufacturing.OrderSpec{
			Reference:        reference,
			WarehouseID:      req.WarehouseID,
			Quantity:         req.Quantity,
			Priority:         req.Priority,
			AllocationMode:   manufacturing.AllocationMode(req.AllocationMode),
			PlannedStartDate: req.PlannedStartDate,
			PlannedEndDate:   req.PlannedEndDate,
			EstimatedTime:    req.EstimatedTime,
		}, time.Now())
		if err != nil {
			return err
		}
		return uow.OrderRepo().Save(ctx, order)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("production order created",
		zap.String("reference", order.Reference),
		zap.Int64("product_id", order.ProductID),
		zap.String("quantity", order.QuantityToProduce.String()))
	resp := ToOrderResponse(order)
	return &resp, nil
}

// mutate loads an order under lock, applies fn and saves it
func (s *ProductionOrderService) mutate(ctx context.Context, id int64, fn func(uow *UnitOfWork, order *manufacturing.ProductionOrder) error) (*manufacturing.ProductionOrder, error) {
	var order *manufacturing.ProductionOrder
	err := s.run(ctx, func(uow *UnitOfWork) error {
		var err error
		if order, err = uow.OrderRepo().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := fn(uow, order); err != nil {
			return err
		}
		if err := uow.OrderRepo().Save(ctx, order); err != nil {
			return err
		}
		uow.Collect(order)
		return nil
	})
	return order, err
}

func (s *ProductionOrderService) respond(order *manufacturing.ProductionOrder, err error) (*OrderResponse, error) {
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// Plan marks a draft order as planned
func (s *ProductionOrderService) Plan(ctx context.Context, id int64, actor string) (*OrderResponse, error) {
	return s.respond(s.mutate(ctx, id, func(_ *UnitOfWork, order *manufacturing.ProductionOrder) error {
		return order.Plan(actor)
	}))
}

// Release explodes the BOM into order items and then hands the order to its
// allocator in a second transaction. When allocation fails the order stays
// released with a shortage note, and both the order and the error are returned.
func (s *ProductionOrderService) Release(ctx context.Context, id int64, actor string) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production_order", "release",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, id))
	defer span.End()

	order, err := s.mutate(ctx, id, func(uow *UnitOfWork, order *manufacturing.ProductionOrder) error {
		bom, err := uow.BOMRepo().FindByID(ctx, order.BillOfMaterialID)
		if err != nil {
			return err
		}
		reqs, err := manufacturing.NewExploder(uow.BOMRepo(), nil).Explode(ctx, bom, order.QuantityToProduce)
		if err != nil {
			return err
		}
		return order.Release(reqs, actor)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("production order released",
		zap.String("reference", order.Reference),
		zap.Int("items", len(order.Items)),
		zap.String("estimated_cost", order.EstimatedCost.String()))

	allocated, err := s.allocate(ctx, id, actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return s.shortage(ctx, order, id, err)
	}
	if allocated != nil {
		order = allocated
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// ReserveMaterials retries automatic allocation for a released order
func (s *ProductionOrderService) ReserveMaterials(ctx context.Context, id int64, actor string) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production_order", "reserve_materials",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, id))
	defer span.End()

	order, err := s.allocate(ctx, id, actor)
	if err != nil {
		telemetry.RecordError(span, err)
		if shared.HasCode(err, shared.CodeInsufficientStock) {
			return s.shortage(ctx, nil, id, err)
		}
		return nil, err
	}
	return s.respond(order, nil)
}

// allocate runs the order's allocator. It returns nil for allocators that change nothing.
func (s *ProductionOrderService) allocate(ctx context.Context, id int64, actor string) (*manufacturing.ProductionOrder, error) {
	var (
		order   *manufacturing.ProductionOrder
		changed bool
		mode    manufacturing.AllocationMode
	)
	// the allocation mode never changes after creation, so it is read before locking
	err := s.read(ctx, func(repos Repositories) error {
		head, err := repos.OrderRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		mode = head.AllocationMode
		return nil
	})
	if err != nil {
		return nil, err
	}
	allocator, ok := s.allocators[mode]
	if !ok {
		return nil, shared.NewValidationError("no allocator for mode %s", mode)
	}
	var reference string
	if allocator.OpensRequisition() {
		if reference, err = s.refs.Next(ctx, PrefixRequisition); err != nil {
			return nil, err
		}
	}

	err = s.run(ctx, func(uow *UnitOfWork) error {
		var err error
		if order, err = uow.OrderRepo().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if order.Status != manufacturing.OrderStatusReleased {
			return shared.NewStateError("production order %s is %s; materials are reserved from released", order.Reference, order.Status)
		}
		req, err := allocator.Allocate(ctx, uow, order, reference, actor)
		if err != nil {
			return err
		}
		changed = req != nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}
	s.logger.Info("production order materials reserved", zap.String("reference", order.Reference))
	return order, nil
}

// shortage records why allocation failed on the order and returns the order with the cause
func (s *ProductionOrderService) shortage(ctx context.Context, fallback *manufacturing.ProductionOrder, id int64, cause error) (*OrderResponse, error) {
	s.logger.Warn("automatic material reservation failed", zap.Int64("order_id", id), zap.Error(cause))
	order, err := s.mutate(ctx, id, func(_ *UnitOfWork, order *manufacturing.ProductionOrder) error {
		order.RecordShortage(cause.Error())
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to record material shortage", zap.Int64("order_id", id), zap.Error(err))
		order = fallback
	}
	if order == nil {
		return nil, cause
	}
	resp := ToOrderResponse(order)
	return &resp, cause
}

// Start begins production
func (s *ProductionOrderService) Start(ctx context.Context, id int64, actor string) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production_order", "start",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, id))
	defer span.End()

	order, err := s.mutate(ctx, id, func(uow *UnitOfWork, order *manufacturing.ProductionOrder) error {
		wh, err := uow.Warehouses().FindByID(ctx, order.WarehouseID)
		if err != nil {
			return err
		}
		return order.Start(actor, wh.IsActive)
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return s.respond(order, err)
}

// Complete books output, consumes issued material, short-closes open
// requisitions, frees what was never issued and receives the finished goods
// into the order warehouse
func (s *ProductionOrderService) Complete(ctx context.Context, id int64, req CompleteOrderRequest, actor string) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production_order", "complete",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, id),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.QuantityProduced.String()))
	defer span.End()

	order, err := s.mutate(ctx, id, func(uow *UnitOfWork, order *manufacturing.ProductionOrder) error {
		if err := order.Complete(actor, req.QuantityProduced, req.QuantityScrapped, s.tolerance); err != nil {
			return err
		}
		if err := closeRequisitions(ctx, uow, order, "production order completed", actor); err != nil {
			return err
		}
		if err := releaseItems(ctx, uow, order, actor); err != nil {
			return err
		}
		if !req.QuantityProduced.IsPositive() {
			return nil
		}
		return receiveOutput(ctx, uow, order, req, actor)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("production order completed",
		zap.String("reference", order.Reference),
		zap.String("produced", order.QuantityProduced.String()),
		zap.String("scrapped", order.QuantityScrapped.String()),
		zap.String("actual_cost", order.ActualCost.String()))
	return s.respond(order, nil)
}

func releaseItems(ctx context.Context, uow *UnitOfWork, order *manufacturing.ProductionOrder, actor string) error {
	for _, it := range order.ReservedItems() {
		if _, err := uow.Ledger.Release(ctx, *it.ReservationHandle, actor); err != nil {
			return err
		}
		it.ClearReservation()
	}
	return nil
}

func receiveOutput(ctx context.Context, uow *UnitOfWork, order *manufacturing.ProductionOrder, req CompleteOrderRequest, actor string) error {
	product, err := uow.Ledger.Product(ctx, order.ProductID)
	if err != nil {
		return err
	}
	if !product.TrackInventory {
		return nil
	}
	receive := appinventory.ReceiveRequest{
		ProductID:   order.ProductID,
		WarehouseID: order.WarehouseID,
		Quantity:    order.QuantityProduced,
		ExpiryDate:  req.ExpiryDate,
		Document:    inventory.ProductionOrderDoc{OrderID: order.ID},
		Actor:       actor,
	}
	switch product.TrackingMode {
	case catalog.TrackingBatch:
		receive.BatchNumber = order.Reference
	case catalog.TrackingSerial:
		if receive.SerialNumbers, err = serialNumbers(order.Reference, order.QuantityProduced); err != nil {
			return err
		}
	}
	_, err = uow.Ledger.Receive(ctx, receive)
	return err
}

// serialNumbers generates prefix-0001 .. prefix-NNNN for a whole quantity
func serialNumbers(prefix string, qty decimal.Decimal) ([]string, error) {
	if !qty.Equal(qty.Truncate(0)) {
		return nil, shared.NewValidationError("serial-tracked quantity %s must be whole", qty.String())
	}
	n := int(qty.IntPart())
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("%s-%04d", prefix, i))
	}
	return out, nil
}

// Cancel stops the order, closes its open requisitions, releases every
// reservation and returns issued material that was never consumed
func (s *ProductionOrderService) Cancel(ctx context.Context, id int64, req ReasonRequest, actor string) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production_order", "cancel",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, id))
	defer span.End()

	order, err := s.mutate(ctx, id, func(uow *UnitOfWork, order *manufacturing.ProductionOrder) error {
		if err := order.Cancel(actor, req.Reason); err != nil {
			return err
		}
		if err := closeRequisitions(ctx, uow, order, req.Reason, actor); err != nil {
			return err
		}
		if err := releaseItems(ctx, uow, order, actor); err != nil {
			return err
		}
		return returnIssued(ctx, uow, order, actor)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("production order cancelled",
		zap.String("reference", order.Reference),
		zap.String("reason", order.CancellationReason))
	return s.respond(order, nil)
}

// closeRequisitions cancels requisitions that issued nothing and short-closes the rest
func closeRequisitions(ctx context.Context, uow *UnitOfWork, order *manufacturing.ProductionOrder, reason, actor string) error {
	reqs, err := uow.RequisitionRepo().FindByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	for i := range reqs {
		r := &reqs[i]
		switch r.Status {
		case manufacturing.RequisitionCompleted, manufacturing.RequisitionCancelled:
			continue
		case manufacturing.RequisitionIssued:
			if err := r.Complete(actor); err != nil {
				return err
			}
		default:
			if err := closeRequisition(ctx, uow, r, reason, actor); err != nil {
				return err
			}
		}
		if err := uow.RequisitionRepo().Save(ctx, r); err != nil {
			return err
		}
		uow.Collect(r)
	}
	return nil
}

func closeRequisition(ctx context.Context, uow *UnitOfWork, r *manufacturing.MaterialRequisition, reason, actor string) error {
	issued := false
	for _, it := range r.Items {
		if it.QuantityIssued.IsPositive() {
			issued = true
		}
	}
	if !issued {
		returned, err := r.Cancel(actor, reason)
		if err != nil {
			return err
		}
		return deallocatePicks(ctx, uow, returned)
	}

	for _, it := range r.Items {
		if it.IsDone() {
			continue
		}
		for _, p := range it.OpenPicks() {
			if _, err := r.ReturnPick(it.ID, p.ID); err != nil {
				return err
			}
			if err := deallocatePicks(ctx, uow, []*manufacturing.MaterialPick{p}); err != nil {
				return err
			}
		}
		if _, err := r.ShortClose(it.ID, actor); err != nil {
			return err
		}
	}
	return r.Complete(actor)
}

func deallocatePicks(ctx context.Context, uow *UnitOfWork, picks []*manufacturing.MaterialPick) error {
	for _, p := range picks {
		if p.BatchID == nil {
			continue
		}
		if err := uow.Ledger.DeallocateBatch(ctx, *p.BatchID, p.QuantityPicked); err != nil {
			return err
		}
	}
	return nil
}

// returnIssued books unconsumed issued material back into the order warehouse
func returnIssued(ctx context.Context, uow *UnitOfWork, order *manufacturing.ProductionOrder, actor string) error {
	for _, it := range order.Items {
		qty := it.Unreturned()
		if !qty.IsPositive() {
			continue
		}
		product, err := uow.Ledger.Product(ctx, it.ProductID)
		if err != nil {
			return err
		}
		receive := appinventory.ReceiveRequest{
			ProductID:   it.ProductID,
			WarehouseID: order.WarehouseID,
			Quantity:    qty,
			Document:    inventory.ProductionOrderDoc{OrderID: order.ID, ItemID: it.ID},
			Actor:       actor,
		}
		switch product.TrackingMode {
		case catalog.TrackingBatch:
			receive.BatchNumber = order.Reference + "-RET"
		case catalog.TrackingSerial:
			if receive.SerialNumbers, err = serialNumbers(fmt.Sprintf("%s-RET-%d", order.Reference, it.ProductID), qty); err != nil {
				return err
			}
		}
		if _, err := uow.Ledger.Receive(ctx, receive); err != nil {
			return err
		}
		if err := it.RecordReturn(qty); err != nil {
			return err
		}
	}
	return nil
}

// Hold pauses an order in progress
func (s *ProductionOrderService) Hold(ctx context.Context, id int64, req HoldOrderRequest, actor string) (*OrderResponse, error) {
	return s.respond(s.mutate(ctx, id, func(_ *UnitOfWork, order *manufacturing.ProductionOrder) error {
		return order.Hold(actor, req.Reason)
	}))
}

// Resume continues an order on hold
func (s *ProductionOrderService) Resume(ctx context.Context, id int64, actor string) (*OrderResponse, error) {
	return s.respond(s.mutate(ctx, id, func(_ *UnitOfWork, order *manufacturing.ProductionOrder) error {
		return order.Resume(actor)
	}))
}

// Get returns one order
func (s *ProductionOrderService) Get(ctx context.Context, id int64) (*OrderResponse, error) {
	var order *manufacturing.ProductionOrder
	err := s.read(ctx, func(repos Repositories) error {
		var err error
		order, err = repos.OrderRepo().FindByID(ctx, id)
		return err
	})
	return s.respond(order, err)
}

// List returns a page of orders
func (s *ProductionOrderService) List(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
	var (
		orders []manufacturing.ProductionOrder
		total  int64
	)
	err := s.read(ctx, func(repos Repositories) error {
		var err error
		orders, total, err = repos.OrderRepo().FindAll(ctx, filter.toDomain())
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, ToOrderResponse(&orders[i]))
	}
	return out, total, nil
}
