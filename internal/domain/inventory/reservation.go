package inventory

import (
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reservation is a soft hold on stock. It lowers available quantity without
// moving physical stock, and is drawn down by issues until fully consumed.
type Reservation struct {
	shared.BaseEntity
	Handle         uuid.UUID
	ProductID      int64
	WarehouseID    int64
	Quantity       decimal.Decimal
	QuantityIssued decimal.Decimal
	Document       DocumentRef
	Released       bool
	ReleasedAt     *time.Time
}

func newReservation(productID, warehouseID int64, qty decimal.Decimal, doc DocumentRef) *Reservation {
	if doc == nil {
		doc = ManualDoc{}
	}
	return &Reservation{
		BaseEntity:     shared.NewBaseEntity(),
		Handle:         uuid.New(),
		ProductID:      productID,
		WarehouseID:    warehouseID,
		Quantity:       qty,
		QuantityIssued: decimal.Zero,
		Document:       doc,
	}
}

// Outstanding returns the quantity still held by the reservation
func (r *Reservation) Outstanding() decimal.Decimal {
	if r.Released {
		return decimal.Zero
	}
	return r.Quantity.Sub(r.QuantityIssued)
}

// IsActive returns true while some quantity is still held
func (r *Reservation) IsActive() bool {
	return r.Outstanding().IsPositive()
}

// IsConsumed returns true once the full quantity has been issued
func (r *Reservation) IsConsumed() bool {
	return r.QuantityIssued.GreaterThanOrEqual(r.Quantity)
}

func (r *Reservation) markReleased() {
	now := time.Now()
	r.Released = true
	r.ReleasedAt = &now
	r.UpdatedAt = now
}
