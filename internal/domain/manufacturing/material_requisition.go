package manufacturing

import (
	"strings"
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RequisitionStatus is the lifecycle state of a material requisition
type RequisitionStatus string

const (
	RequisitionDraft     RequisitionStatus = "draft"
	RequisitionSubmitted RequisitionStatus = "submitted"
	RequisitionApproved  RequisitionStatus = "approved"
	RequisitionPicking   RequisitionStatus = "picking"
	RequisitionIssued    RequisitionStatus = "issued"
	RequisitionCompleted RequisitionStatus = "completed"
	RequisitionCancelled RequisitionStatus = "cancelled"
)

// CanTransitionTo reports whether the workflow allows s -> target
func (s RequisitionStatus) CanTransitionTo(target RequisitionStatus) bool {
	switch s {
	case RequisitionDraft:
		return target == RequisitionSubmitted || target == RequisitionCancelled
	case RequisitionSubmitted:
		return target == RequisitionApproved || target == RequisitionCancelled
	case RequisitionApproved:
		return target == RequisitionPicking || target == RequisitionIssued || target == RequisitionCancelled
	case RequisitionPicking:
		return target == RequisitionIssued || target == RequisitionCancelled
	case RequisitionIssued:
		return target == RequisitionCompleted
	case RequisitionCompleted, RequisitionCancelled:
		return false
	}
	return false
}

// RequisitionType records how a requisition was created
type RequisitionType string

const (
	RequisitionAutomatic RequisitionType = "automatic"
	RequisitionManual    RequisitionType = "manual"
)

// RequisitionItemStatus mirrors the parent status per line, plus pending for shortages
type RequisitionItemStatus string

const (
	ItemStatusDraft     RequisitionItemStatus = "draft"
	ItemStatusSubmitted RequisitionItemStatus = "submitted"
	ItemStatusPending   RequisitionItemStatus = "pending"
	ItemStatusApproved  RequisitionItemStatus = "approved"
	ItemStatusPicking   RequisitionItemStatus = "picking"
	ItemStatusIssued    RequisitionItemStatus = "issued"
	ItemStatusCompleted RequisitionItemStatus = "completed"
	ItemStatusCancelled RequisitionItemStatus = "cancelled"
)

// MaterialRequisitionItem is one requested component
type MaterialRequisitionItem struct {
	ID                    int64
	RequisitionID         int64
	ProductionOrderItemID *int64
	ProductID             int64
	QuantityRequested     decimal.Decimal
	QuantityApproved      decimal.Decimal
	QuantityPicked        decimal.Decimal
	QuantityIssued        decimal.Decimal
	ShortageQuantity      decimal.Decimal
	Status                RequisitionItemStatus
	ShortClosed           bool
	Picks                 []*MaterialPick
}

// IsDone returns true once the item needs no more work
func (i *MaterialRequisitionItem) IsDone() bool {
	return i.ShortClosed || i.QuantityIssued.GreaterThanOrEqual(i.QuantityRequested) || i.Status == ItemStatusCancelled
}

// OpenPicks returns picks not yet issued or returned
func (i *MaterialRequisitionItem) OpenPicks() []*MaterialPick {
	out := make([]*MaterialPick, 0)
	for _, p := range i.Picks {
		if p.Status == PickStatusPicked {
			out = append(out, p)
		}
	}
	return out
}

// RequisitionLine is a requested quantity of one product
type RequisitionLine struct {
	ProductionOrderItemID *int64
	ProductID             int64
	Quantity              decimal.Decimal
}

// MaterialRequisition is the aggregate root for picking and issuing material to an order
type MaterialRequisition struct {
	shared.BaseAggregateRoot
	Reference          string
	ProductionOrderID  int64
	WarehouseID        int64
	Type               RequisitionType
	Status             RequisitionStatus
	HasShortage        bool
	RequestedBy        string
	ApprovedBy         string
	ApprovedAt         *time.Time
	CancellationReason string
	Items              []*MaterialRequisitionItem
}

// NewMaterialRequisition creates a draft manual requisition
func NewMaterialRequisition(reference string, order *ProductionOrder, lines []RequisitionLine, actor string) (*MaterialRequisition, error) {
	if order.Status.IsTerminal() || order.Status == OrderStatusDraft || order.Status == OrderStatusPlanned {
		return nil, errState("production order %s is %s and cannot requisition material", order.Reference, order.Status)
	}
	if len(lines) == 0 {
		return nil, errValidation("requisition needs at least one line")
	}
	r := &MaterialRequisition{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         reference,
		ProductionOrderID: order.ID,
		WarehouseID:       order.WarehouseID,
		Type:              RequisitionManual,
		Status:            RequisitionDraft,
		RequestedBy:       actor,
		Items:             make([]*MaterialRequisitionItem, 0, len(lines)),
	}
	for _, l := range lines {
		if l.ProductID <= 0 {
			return nil, errValidation("requisition line product is required")
		}
		if !l.Quantity.IsPositive() {
			return nil, errValidation("requested quantity must be positive")
		}
		r.Items = append(r.Items, &MaterialRequisitionItem{
			ProductionOrderItemID: l.ProductionOrderItemID,
			ProductID:             l.ProductID,
			QuantityRequested:     l.Quantity,
			QuantityApproved:      decimal.Zero,
			QuantityPicked:        decimal.Zero,
			QuantityIssued:        decimal.Zero,
			ShortageQuantity:      decimal.Zero,
			Status:                ItemStatusDraft,
			Picks:                 make([]*MaterialPick, 0),
		})
	}
	return r, nil
}

// NewAutomaticRequisition creates an approved requisition covering the reserved items of an order
func NewAutomaticRequisition(reference string, order *ProductionOrder, actor string) (*MaterialRequisition, error) {
	lines := make([]RequisitionLine, 0, len(order.Items))
	for _, it := range order.Items {
		if !it.QuantityReserved.IsPositive() {
			continue
		}
		id := it.ID
		lines = append(lines, RequisitionLine{ProductionOrderItemID: &id, ProductID: it.ProductID, Quantity: it.QuantityReserved})
	}
	r, err := NewMaterialRequisition(reference, order, lines, actor)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	r.Type = RequisitionAutomatic
	r.Status = RequisitionApproved
	r.ApprovedBy = actor
	r.ApprovedAt = &now
	for _, it := range r.Items {
		it.QuantityApproved = it.QuantityRequested
		it.Status = ItemStatusApproved
	}
	return r, nil
}

// Item returns the requisition item with the given id
func (r *MaterialRequisition) Item(id int64) (*MaterialRequisitionItem, error) {
	for _, it := range r.Items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, shared.ErrNotFound.WithDetail("requisition_item_id", id)
}

// Submit sends a draft requisition for approval
func (r *MaterialRequisition) Submit(actor string) error {
	if err := r.transition(RequisitionSubmitted, actor, ""); err != nil {
		return err
	}
	for _, it := range r.Items {
		it.Status = ItemStatusSubmitted
	}
	return nil
}

// Approve grants each line up to the stock currently available for it.
// available is consumed line by line so two lines of one product share it.
// Short lines stay pending and flag the requisition; this is not an error.
func (r *MaterialRequisition) Approve(actor string, available map[int64]decimal.Decimal) error {
	if !r.Status.CanTransitionTo(RequisitionApproved) {
		return r.stateError(RequisitionApproved)
	}
	remaining := make(map[int64]decimal.Decimal, len(available))
	for k, v := range available {
		remaining[k] = v
	}
	r.HasShortage = false
	for _, it := range r.Items {
		avail := decimal.Max(remaining[it.ProductID], decimal.Zero)
		granted := decimal.Min(it.QuantityRequested, avail)
		remaining[it.ProductID] = avail.Sub(granted)
		it.QuantityApproved = granted
		it.ShortageQuantity = it.QuantityRequested.Sub(granted)
		if it.ShortageQuantity.IsPositive() {
			it.Status = ItemStatusPending
			r.HasShortage = true
		} else {
			it.Status = ItemStatusApproved
		}
	}
	now := time.Now()
	r.ApprovedBy = actor
	r.ApprovedAt = &now
	reason := ""
	if r.HasShortage {
		reason = "approved with shortage"
	}
	return r.transition(RequisitionApproved, actor, reason)
}

// Pick records stock taken for an item. Cumulative picks may not exceed the approved quantity.
func (r *MaterialRequisition) Pick(itemID int64, spec PickSpec, actor string) (*MaterialPick, error) {
	if r.Status != RequisitionApproved && r.Status != RequisitionPicking {
		return nil, errState("requisition %s is %s; picking needs approved", r.Reference, r.Status)
	}
	it, err := r.Item(itemID)
	if err != nil {
		return nil, err
	}
	if it.ShortClosed || it.Status == ItemStatusCancelled {
		return nil, errState("requisition item %d is closed", itemID)
	}
	if !spec.Quantity.IsPositive() {
		return nil, errValidation("pick quantity must be positive")
	}
	if it.QuantityPicked.Add(spec.Quantity).GreaterThan(it.QuantityApproved) {
		return nil, NewOverPickError(it.ID, it.QuantityApproved, it.QuantityPicked, spec.Quantity)
	}

	pick := &MaterialPick{
		RequisitionItemID: it.ID,
		BatchID:           spec.BatchID,
		BatchNumber:       spec.BatchNumber,
		QuantityPicked:    spec.Quantity,
		Location:          spec.Location,
		PickedBy:          actor,
		PickedAt:          time.Now(),
		Status:            PickStatusPicked,
	}
	it.Picks = append(it.Picks, pick)
	it.QuantityPicked = it.QuantityPicked.Add(spec.Quantity)
	it.Status = ItemStatusPicking

	if r.Status == RequisitionApproved {
		return pick, r.transition(RequisitionPicking, actor, "")
	}
	r.touch()
	return pick, nil
}

// ReturnPick puts a picked (not yet issued) quantity back
func (r *MaterialRequisition) ReturnPick(itemID, pickID int64) (*MaterialPick, error) {
	it, err := r.Item(itemID)
	if err != nil {
		return nil, err
	}
	for _, p := range it.Picks {
		if p.ID != pickID {
			continue
		}
		if p.Status != PickStatusPicked {
			return nil, errState("pick %d is %s and cannot be returned", pickID, p.Status)
		}
		p.Status = PickStatusReturned
		it.QuantityPicked = it.QuantityPicked.Sub(p.QuantityPicked)
		r.touch()
		return p, nil
	}
	return nil, shared.ErrNotFound.WithDetail("pick_id", pickID)
}

// Issue turns every open pick of an item into issued and returns them with the total.
// The requisition moves to issued once every item is done.
func (r *MaterialRequisition) Issue(itemID int64, actor string) ([]*MaterialPick, decimal.Decimal, error) {
	if r.Status != RequisitionApproved && r.Status != RequisitionPicking {
		return nil, decimal.Zero, errState("requisition %s is %s and cannot issue", r.Reference, r.Status)
	}
	it, err := r.Item(itemID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	picks := it.OpenPicks()
	if len(picks) == 0 {
		return nil, decimal.Zero, errState("requisition item %d has nothing picked to issue", itemID)
	}
	total := decimal.Zero
	for _, p := range picks {
		p.Status = PickStatusIssued
		total = total.Add(p.QuantityPicked)
	}
	it.QuantityIssued = it.QuantityIssued.Add(total)
	if it.IsDone() {
		it.Status = ItemStatusIssued
	}
	return picks, total, r.advanceIfIssued(actor)
}

// ShortClose ends an item at whatever has been issued so far
func (r *MaterialRequisition) ShortClose(itemID int64, actor string) (*MaterialRequisitionItem, error) {
	if r.Status != RequisitionApproved && r.Status != RequisitionPicking {
		return nil, errState("requisition %s is %s and cannot short-close", r.Reference, r.Status)
	}
	it, err := r.Item(itemID)
	if err != nil {
		return nil, err
	}
	if len(it.OpenPicks()) > 0 {
		return nil, errState("requisition item %d still has open picks", itemID)
	}
	it.ShortClosed = true
	it.Status = ItemStatusCompleted
	return it, r.advanceIfIssued(actor)
}

// Complete closes an issued requisition
func (r *MaterialRequisition) Complete(actor string) error {
	for _, it := range r.Items {
		if !it.IsDone() {
			return errState("requisition item %d is neither fully issued nor short-closed", it.ID)
		}
	}
	if err := r.transition(RequisitionCompleted, actor, ""); err != nil {
		return err
	}
	for _, it := range r.Items {
		if it.Status == ItemStatusIssued {
			it.Status = ItemStatusCompleted
		}
	}
	return nil
}

// Cancel aborts the requisition and returns the picks that must be put back
func (r *MaterialRequisition) Cancel(actor, reason string) ([]*MaterialPick, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errValidation("cancellation reason is required")
	}
	if !r.Status.CanTransitionTo(RequisitionCancelled) {
		return nil, r.stateError(RequisitionCancelled)
	}
	for _, it := range r.Items {
		if it.QuantityIssued.IsPositive() {
			return nil, errState("requisition item %d already issued material", it.ID)
		}
	}
	returned := make([]*MaterialPick, 0)
	for _, it := range r.Items {
		for _, p := range it.OpenPicks() {
			p.Status = PickStatusReturned
			returned = append(returned, p)
		}
		it.QuantityPicked = decimal.Zero
		it.Status = ItemStatusCancelled
	}
	r.CancellationReason = reason
	return returned, r.transition(RequisitionCancelled, actor, reason)
}

func (r *MaterialRequisition) advanceIfIssued(actor string) error {
	for _, it := range r.Items {
		if !it.IsDone() {
			r.touch()
			return nil
		}
	}
	return r.transition(RequisitionIssued, actor, "")
}

func (r *MaterialRequisition) transition(target RequisitionStatus, actor, reason string) error {
	if !r.Status.CanTransitionTo(target) {
		return r.stateError(target)
	}
	from := r.Status
	r.Status = target
	r.touch()
	ev := newStatusChangedEvent(EventTypeMaterialRequisitionStatusChanged, AggregateTypeRequisition,
		r.ID, r.Reference, string(from), string(target), actor, reason)
	ev.Extra = map[string]any{"production_order_id": r.ProductionOrderID, "has_shortage": r.HasShortage}
	r.AddDomainEvent(ev)
	return nil
}

func (r *MaterialRequisition) stateError(target RequisitionStatus) error {
	return errState("requisition %s cannot move from %s to %s", r.Reference, r.Status, target)
}

func (r *MaterialRequisition) touch() {
	r.UpdatedAt = time.Now()
}
