package inventory

import (
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockBalance is the aggregate root for one (product, warehouse) pair.
// available = quantity - reserved; 0 <= reserved <= quantity always holds.
type StockBalance struct {
	shared.BaseAggregateRoot
	ProductID        int64
	WarehouseID      int64
	Quantity         decimal.Decimal
	ReservedQuantity decimal.Decimal
}

// NewStockBalance creates an empty balance for a product in a warehouse
func NewStockBalance(productID, warehouseID int64) (*StockBalance, error) {
	if productID <= 0 {
		return nil, shared.NewValidationError("product id is required")
	}
	if warehouseID <= 0 {
		return nil, shared.NewValidationError("warehouse id is required")
	}
	return &StockBalance{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		WarehouseID:       warehouseID,
		Quantity:          decimal.Zero,
		ReservedQuantity:  decimal.Zero,
	}, nil
}

// AvailableQuantity returns quantity not held by reservations
func (b *StockBalance) AvailableQuantity() decimal.Decimal {
	return b.Quantity.Sub(b.ReservedQuantity)
}

// Reserve holds qty for a document and returns the reservation handle
func (b *StockBalance) Reserve(qty decimal.Decimal, doc DocumentRef, actor string) (*Reservation, error) {
	if err := validatePositive(qty, "reserve quantity"); err != nil {
		return nil, err
	}
	available := b.AvailableQuantity()
	if available.LessThan(qty) {
		return nil, NewInsufficientStockError(b.ProductID, b.WarehouseID, qty, available)
	}

	b.ReservedQuantity = b.ReservedQuantity.Add(qty)
	b.touch()

	r := newReservation(b.ProductID, b.WarehouseID, qty, doc)
	b.AddDomainEvent(NewStockReservedEvent(b, r, actor))
	return r, nil
}

// Release returns the outstanding part of a reservation to available stock.
// Releasing an already released or fully issued reservation is a no-op.
func (b *StockBalance) Release(r *Reservation, actor string) (decimal.Decimal, error) {
	if err := b.owns(r); err != nil {
		return decimal.Zero, err
	}
	outstanding := r.Outstanding()
	if r.Released || !outstanding.IsPositive() {
		return decimal.Zero, nil
	}

	b.ReservedQuantity = b.ReservedQuantity.Sub(outstanding)
	r.markReleased()
	b.touch()
	b.AddDomainEvent(NewStockReleasedEvent(b, r, outstanding, actor))
	return outstanding, nil
}

// Issue removes qty from physical stock. With a reservation the reserved
// quantity drops together with quantity; without one the qty must be available.
// One movement is produced per batch draw, or a single movement when untracked.
func (b *StockBalance) Issue(qty decimal.Decimal, r *Reservation, draws []BatchDraw, doc DocumentRef, actor string) ([]*StockMovement, error) {
	if err := validatePositive(qty, "issue quantity"); err != nil {
		return nil, err
	}
	if len(draws) > 0 && !sumDraws(draws).Equal(qty) {
		return nil, shared.NewValidationError("batch draws total %s does not match issue quantity %s", sumDraws(draws).String(), qty.String())
	}

	if r != nil {
		if err := b.owns(r); err != nil {
			return nil, err
		}
		outstanding := r.Outstanding()
		if outstanding.LessThan(qty) {
			return nil, shared.NewDomainError(shared.CodeInsufficientStock,
				"issue quantity exceeds reservation outstanding "+outstanding.String()).
				WithDetail("shortfall", qty.Sub(outstanding).String())
		}
		if b.Quantity.LessThan(qty) {
			return nil, NewInsufficientStockError(b.ProductID, b.WarehouseID, qty, b.Quantity)
		}
		b.ReservedQuantity = b.ReservedQuantity.Sub(qty)
		r.QuantityIssued = r.QuantityIssued.Add(qty)
		r.UpdatedAt = time.Now()
	} else {
		available := b.AvailableQuantity()
		if available.LessThan(qty) {
			return nil, NewInsufficientStockError(b.ProductID, b.WarehouseID, qty, available)
		}
	}

	movements := b.applyOut(qty, draws, MovementOut, doc, actor)
	if r != nil {
		for _, m := range movements {
			m.ReservationID = &r.Handle
		}
	}
	b.touch()
	b.AddDomainEvent(NewStockIssuedEvent(b, qty, doc, actor))
	return movements, nil
}

// Receive adds qty to physical stock
func (b *StockBalance) Receive(qty decimal.Decimal, batchID *int64, doc DocumentRef, actor string) (*StockMovement, error) {
	if err := validatePositive(qty, "receive quantity"); err != nil {
		return nil, err
	}
	before := b.Quantity
	b.Quantity = b.Quantity.Add(qty)
	m := newMovement(b, MovementIn, qty, before, doc, actor)
	m.BatchID = batchID
	b.touch()
	b.AddDomainEvent(NewStockReceivedEvent(b, qty, doc, actor))
	return m, nil
}

// Adjust applies a signed correction. It may never take quantity below what is reserved.
func (b *StockBalance) Adjust(delta decimal.Decimal, reason, actor string) (*StockMovement, error) {
	if delta.IsZero() {
		return nil, shared.NewValidationError("adjustment quantity cannot be zero")
	}
	if reason == "" {
		return nil, shared.NewValidationError("adjustment reason is required")
	}
	after := b.Quantity.Add(delta)
	if after.LessThan(b.ReservedQuantity) {
		return nil, NewInsufficientStockError(b.ProductID, b.WarehouseID, delta.Neg(), b.AvailableQuantity())
	}
	before := b.Quantity
	b.Quantity = after
	m := newMovement(b, MovementAdjustment, delta, before, AdjustmentDoc{Reason: reason}, actor)
	m.Reason = reason
	b.touch()
	b.AddDomainEvent(NewStockAdjustedEvent(b, delta, reason, actor))
	return m, nil
}

// TransferOut removes available stock bound for another warehouse
func (b *StockBalance) TransferOut(qty decimal.Decimal, draws []BatchDraw, doc DocumentRef, actor string) ([]*StockMovement, error) {
	if err := validatePositive(qty, "transfer quantity"); err != nil {
		return nil, err
	}
	available := b.AvailableQuantity()
	if available.LessThan(qty) {
		return nil, NewInsufficientStockError(b.ProductID, b.WarehouseID, qty, available)
	}
	movements := b.applyOut(qty, draws, MovementTransfer, doc, actor)
	b.touch()
	return movements, nil
}

// TransferIn adds stock arriving from another warehouse
func (b *StockBalance) TransferIn(qty decimal.Decimal, batchID *int64, doc DocumentRef, actor string) (*StockMovement, error) {
	if err := validatePositive(qty, "transfer quantity"); err != nil {
		return nil, err
	}
	before := b.Quantity
	b.Quantity = b.Quantity.Add(qty)
	m := newMovement(b, MovementTransfer, qty, before, doc, actor)
	m.BatchID = batchID
	b.touch()
	return m, nil
}

// CheckInvariants verifies 0 <= reserved <= quantity
func (b *StockBalance) CheckInvariants() error {
	if b.ReservedQuantity.IsNegative() {
		return shared.NewStateError("reserved quantity is negative for product %d", b.ProductID)
	}
	if b.ReservedQuantity.GreaterThan(b.Quantity) {
		return shared.NewStateError("reserved quantity exceeds on-hand quantity for product %d", b.ProductID)
	}
	return nil
}

func (b *StockBalance) applyOut(qty decimal.Decimal, draws []BatchDraw, movementType MovementType, doc DocumentRef, actor string) []*StockMovement {
	if len(draws) == 0 {
		before := b.Quantity
		b.Quantity = b.Quantity.Sub(qty)
		return []*StockMovement{newMovement(b, movementType, qty.Neg(), before, doc, actor)}
	}
	movements := make([]*StockMovement, 0, len(draws))
	for _, d := range draws {
		before := b.Quantity
		b.Quantity = b.Quantity.Sub(d.Quantity)
		m := newMovement(b, movementType, d.Quantity.Neg(), before, doc, actor)
		batchID := d.BatchID
		m.BatchID = &batchID
		movements = append(movements, m)
	}
	return movements
}

func (b *StockBalance) owns(r *Reservation) error {
	if r.ProductID != b.ProductID || r.WarehouseID != b.WarehouseID {
		return shared.NewValidationError("reservation %s does not belong to product %d in warehouse %d",
			r.Handle, b.ProductID, b.WarehouseID)
	}
	return nil
}

func (b *StockBalance) touch() {
	b.UpdatedAt = time.Now()
}
