package manufacturing

import (
	"context"
	"fmt"

	appinventory "github.com/erp/manufacturing/internal/application/inventory"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/manufacturing"
)

// MaterialAllocator decides what happens to a freshly released order's materials.
// It runs inside the second release transaction; an error rolls back everything it did.
type MaterialAllocator interface {
	Mode() manufacturing.AllocationMode
	// OpensRequisition reports whether Allocate needs a requisition reference
	OpensRequisition() bool
	// Allocate returns the requisition it created, if any
	Allocate(ctx context.Context, uow *UnitOfWork, order *manufacturing.ProductionOrder, reference, actor string) (*manufacturing.MaterialRequisition, error)
}

// AutoAllocator reserves every item all-or-nothing and opens an approved requisition
type AutoAllocator struct{}

// NewAutoAllocator creates an AutoAllocator
func NewAutoAllocator() *AutoAllocator {
	return &AutoAllocator{}
}

// Mode returns AllocationAuto
func (a *AutoAllocator) Mode() manufacturing.AllocationMode {
	return manufacturing.AllocationAuto
}

// OpensRequisition returns true
func (a *AutoAllocator) OpensRequisition() bool { return true }

// Allocate locks balances in ascending product order and reserves the
// unreserved part of each item. The first shortage aborts the whole batch.
func (a *AutoAllocator) Allocate(ctx context.Context, uow *UnitOfWork, order *manufacturing.ProductionOrder, reference, actor string) (*manufacturing.MaterialRequisition, error) {
	items := make([]*manufacturing.ProductionOrderItem, 0, len(order.Items))
	lines := make([]appinventory.ReserveLine, 0, len(order.Items))
	for _, it := range order.Items {
		if it.ReservationHandle != nil || !it.Unreserved().IsPositive() {
			continue
		}
		items = append(items, it)
		lines = append(lines, appinventory.ReserveLine{
			ProductID: it.ProductID,
			Quantity:  it.Unreserved(),
			Document:  inventory.ProductionOrderDoc{OrderID: order.ID, ItemID: it.ID},
		})
	}

	reservations, err := uow.Ledger.ReserveAll(ctx, order.WarehouseID, lines, actor)
	if err != nil {
		return nil, err
	}
	for i, r := range reservations {
		if err := items[i].RecordReservation(r.Quantity, r.Handle); err != nil {
			return nil, err
		}
	}
	if err := order.MarkMaterialsReserved(actor); err != nil {
		return nil, err
	}
	if err := uow.OrderRepo().Save(ctx, order); err != nil {
		return nil, err
	}

	req, err := manufacturing.NewAutomaticRequisition(reference, order, actor)
	if err != nil {
		return nil, err
	}
	if err := uow.RequisitionRepo().Save(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to save automatic requisition: %w", err)
	}
	uow.Collect(order, req)
	return req, nil
}

// ManualAllocator leaves the order released; stock is reserved when a requisition is approved
type ManualAllocator struct{}

// NewManualAllocator creates a ManualAllocator
func NewManualAllocator() *ManualAllocator {
	return &ManualAllocator{}
}

// Mode returns AllocationManual
func (a *ManualAllocator) Mode() manufacturing.AllocationMode {
	return manufacturing.AllocationManual
}

// OpensRequisition returns false
func (a *ManualAllocator) OpensRequisition() bool { return false }

// Allocate does nothing
func (a *ManualAllocator) Allocate(context.Context, *UnitOfWork, *manufacturing.ProductionOrder, string, string) (*manufacturing.MaterialRequisition, error) {
	return nil, nil
}
