package manufacturing

import (
	"strings"
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a production order
type OrderStatus string

const (
	OrderStatusDraft             OrderStatus = "draft"
	OrderStatusPlanned           OrderStatus = "planned"
	OrderStatusReleased          OrderStatus = "released"
	OrderStatusMaterialsReserved OrderStatus = "materials_reserved"
	OrderStatusInProgress        OrderStatus = "in_progress"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusOnHold            OrderStatus = "on_hold"
)

// IsValid returns true if the status is known
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusPlanned, OrderStatusReleased, OrderStatusMaterialsReserved,
		OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled, OrderStatusOnHold:
		return true
	}
	return false
}

// IsTerminal returns true for completed and cancelled orders
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows s -> target
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if target == OrderStatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case OrderStatusDraft:
		return target == OrderStatusPlanned || target == OrderStatusReleased
	case OrderStatusPlanned:
		return target == OrderStatusReleased
	case OrderStatusReleased:
		return target == OrderStatusMaterialsReserved || target == OrderStatusInProgress
	case OrderStatusMaterialsReserved:
		return target == OrderStatusInProgress
	case OrderStatusInProgress:
		return target == OrderStatusCompleted || target == OrderStatusOnHold
	case OrderStatusOnHold:
		return target == OrderStatusInProgress
	case OrderStatusCompleted, OrderStatusCancelled:
		return false
	}
	return false
}

// AllocationMode selects how materials are reserved when an order is released
type AllocationMode string

const (
	AllocationAuto   AllocationMode = "auto"
	AllocationManual AllocationMode = "manual"
)

// IsValid returns true if the mode is known
func (m AllocationMode) IsValid() bool {
	return m == AllocationAuto || m == AllocationManual
}

// ProductionOrder is the aggregate root for making one product from one BOM version
type ProductionOrder struct {
	shared.BaseAggregateRoot
	Reference          string
	BillOfMaterialID   int64
	ProductID          int64
	WarehouseID        int64
	QuantityToProduce  decimal.Decimal
	QuantityProduced   decimal.Decimal
	QuantityScrapped   decimal.Decimal
	Status             OrderStatus
	Priority           int
	AllocationMode     AllocationMode
	PlannedStartDate   *time.Time
	PlannedEndDate     *time.Time
	ActualStartDate    *time.Time
	ActualEndDate      *time.Time
	EstimatedCost      decimal.Decimal
	ActualCost         decimal.Decimal
	EstimatedTime      int
	ActualTime         int
	StartedBy          string
	CompletedBy        string
	CancellationReason string
	HoldReason         string
	ShortageNote       string
	Items              []*ProductionOrderItem
}

// OrderSpec carries the attributes of a new order
type OrderSpec struct {
	Reference        string
	WarehouseID      int64
	Quantity         decimal.Decimal
	Priority         int
	AllocationMode   AllocationMode
	PlannedStartDate *time.Time
	PlannedEndDate   *time.Time
	EstimatedTime    int
}

// NewProductionOrder creates a draft order against an effective BOM
func NewProductionOrder(bom *BillOfMaterial, spec OrderSpec, now time.Time) (*ProductionOrder, error) {
	if !bom.IsEffective(now) {
		return nil, errState("bill of material %s is not effective", bom.Reference)
	}
	if spec.WarehouseID <= 0 {
		return nil, errValidation("warehouse is required")
	}
	if !spec.Quantity.IsPositive() {
		return nil, errValidation("quantity to produce must be positive")
	}
	if spec.AllocationMode == "" {
		spec.AllocationMode = AllocationAuto
	}
	if !spec.AllocationMode.IsValid() {
		return nil, errValidation("unknown allocation mode %q", spec.AllocationMode)
	}
	if spec.PlannedStartDate != nil && spec.PlannedEndDate != nil && !spec.PlannedEndDate.After(*spec.PlannedStartDate) {
		return nil, errValidation("planned end must be after planned start")
	}
	return &ProductionOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         spec.Reference,
		BillOfMaterialID:  bom.ID,
		ProductID:         bom.ProductID,
		WarehouseID:       spec.WarehouseID,
		QuantityToProduce: spec.Quantity,
		QuantityProduced:  decimal.Zero,
		QuantityScrapped:  decimal.Zero,
		Status:            OrderStatusDraft,
		Priority:          spec.Priority,
		AllocationMode:    spec.AllocationMode,
		PlannedStartDate:  spec.PlannedStartDate,
		PlannedEndDate:    spec.PlannedEndDate,
		EstimatedCost:     decimal.Zero,
		ActualCost:        decimal.Zero,
		EstimatedTime:     spec.EstimatedTime,
		Items:             make([]*ProductionOrderItem, 0),
	}, nil
}

// Plan marks a draft order as planned
func (o *ProductionOrder) Plan(actor string) error {
	return o.transition(OrderStatusPlanned, actor, "")
}

// Release creates one item per requirement and moves the order to released
func (o *ProductionOrder) Release(requirements []Requirement, actor string) error {
	if !o.Status.CanTransitionTo(OrderStatusReleased) {
		return o.stateError(OrderStatusReleased)
	}
	if len(requirements) == 0 {
		return errValidation("production order %s has no material requirements", o.Reference)
	}
	o.Items = make([]*ProductionOrderItem, 0, len(requirements))
	estimated := decimal.Zero
	for _, req := range requirements {
		item := newOrderItem(req)
		item.ProductionOrderID = o.ID
		o.Items = append(o.Items, item)
		estimated = estimated.Add(req.Quantity.Mul(req.UnitCost))
	}
	o.EstimatedCost = estimated.Round(costScale)
	return o.transition(OrderStatusReleased, actor, "")
}

// Item returns the order item with the given id
func (o *ProductionOrder) Item(id int64) (*ProductionOrderItem, bool) {
	for _, it := range o.Items {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

// IsFullyReserved returns true when every item holds its full requirement
func (o *ProductionOrder) IsFullyReserved() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, it := range o.Items {
		if !it.IsFullyReserved() {
			return false
		}
	}
	return true
}

// MarkMaterialsReserved moves a released order on once every item is reserved
func (o *ProductionOrder) MarkMaterialsReserved(actor string) error {
	if !o.IsFullyReserved() {
		return errState("production order %s is not fully reserved", o.Reference)
	}
	o.ShortageNote = ""
	return o.transition(OrderStatusMaterialsReserved, actor, "")
}

// RecordShortage keeps the reason an automatic reservation failed
func (o *ProductionOrder) RecordShortage(note string) {
	o.ShortageNote = note
	o.touch()
}

// Start begins production. The order warehouse must be active.
func (o *ProductionOrder) Start(actor string, warehouseActive bool) error {
	if !o.Status.CanTransitionTo(OrderStatusInProgress) || o.Status == OrderStatusOnHold {
		return o.stateError(OrderStatusInProgress)
	}
	if !warehouseActive {
		return errState("warehouse %d of production order %s is inactive", o.WarehouseID, o.Reference)
	}
	now := time.Now()
	o.ActualStartDate = &now
	o.StartedBy = actor
	return o.transition(OrderStatusInProgress, actor, "")
}

// Complete records output and accrues actual cost from consumed material.
// produced + scrapped may exceed the order quantity by at most tolerance (a fraction).
func (o *ProductionOrder) Complete(actor string, produced, scrapped, tolerance decimal.Decimal) error {
	if o.Status != OrderStatusInProgress {
		return o.stateError(OrderStatusCompleted)
	}
	if produced.IsNegative() || scrapped.IsNegative() {
		return errValidation("produced and scrapped quantities cannot be negative")
	}
	limit := o.QuantityToProduce.Mul(decimal.NewFromInt(1).Add(tolerance))
	if produced.Add(scrapped).GreaterThan(limit) {
		return errValidation("produced %s plus scrapped %s exceeds allowed %s",
			produced.String(), scrapped.String(), limit.String())
	}

	now := time.Now()
	o.QuantityProduced = produced
	o.QuantityScrapped = scrapped
	o.ActualEndDate = &now
	o.CompletedBy = actor
	if o.ActualStartDate != nil {
		o.ActualTime = int(now.Sub(*o.ActualStartDate).Minutes())
	}

	cost := decimal.Zero
	for _, it := range o.Items {
		it.Consume()
		cost = cost.Add(it.QuantityConsumed.Mul(it.UnitCost))
	}
	o.ActualCost = cost.Round(costScale)
	return o.transition(OrderStatusCompleted, actor, "")
}

// Cancel stops the order from any non-terminal state
func (o *ProductionOrder) Cancel(actor, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errValidation("cancellation reason is required")
	}
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return o.stateError(OrderStatusCancelled)
	}
	o.CancellationReason = reason
	return o.transition(OrderStatusCancelled, actor, reason)
}

// Hold pauses an order in progress
func (o *ProductionOrder) Hold(actor, reason string) error {
	if o.Status != OrderStatusInProgress {
		return o.stateError(OrderStatusOnHold)
	}
	o.HoldReason = strings.TrimSpace(reason)
	return o.transition(OrderStatusOnHold, actor, o.HoldReason)
}

// Resume continues an order on hold
func (o *ProductionOrder) Resume(actor string) error {
	if o.Status != OrderStatusOnHold {
		return o.stateError(OrderStatusInProgress)
	}
	o.HoldReason = ""
	return o.transition(OrderStatusInProgress, actor, "")
}

// ReservedItems returns items holding a reservation handle
func (o *ProductionOrder) ReservedItems() []*ProductionOrderItem {
	out := make([]*ProductionOrderItem, 0)
	for _, it := range o.Items {
		if it.ReservationHandle != nil {
			out = append(out, it)
		}
	}
	return out
}

func (o *ProductionOrder) transition(target OrderStatus, actor, reason string) error {
	if !o.Status.CanTransitionTo(target) {
		return o.stateError(target)
	}
	from := o.Status
	o.Status = target
	o.touch()
	ev := newStatusChangedEvent(EventTypeProductionOrderStatusChanged, AggregateTypeProductionOrder,
		o.ID, o.Reference, string(from), string(target), actor, reason)
	ev.Extra = map[string]any{"product_id": o.ProductID, "quantity": o.QuantityToProduce.String()}
	o.AddDomainEvent(ev)
	return nil
}

func (o *ProductionOrder) stateError(target OrderStatus) error {
	return errState("production order %s cannot move from %s to %s", o.Reference, o.Status, target)
}

func (o *ProductionOrder) touch() {
	o.UpdatedAt = time.Now()
}
