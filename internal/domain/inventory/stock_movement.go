package inventory

import (
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType represents the direction of a stock movement
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementTransfer   MovementType = "transfer"
	MovementAdjustment MovementType = "adjustment"
)

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementIn, MovementOut, MovementTransfer, MovementAdjustment:
		return true
	}
	return false
}

// StockMovement is an immutable audit record of a physical quantity change.
// Quantity is signed: positive moves stock in, negative moves it out.
type StockMovement struct {
	shared.BaseEntity
	ProductID     int64
	WarehouseID   int64
	MovementType  MovementType
	Quantity      decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	BatchID       *int64
	ReservationID *uuid.UUID
	Document      DocumentRef
	Actor         string
	Reason        string
	OccurredAt    time.Time
}

func newMovement(b *StockBalance, movementType MovementType, delta, before decimal.Decimal, doc DocumentRef, actor string) *StockMovement {
	if doc == nil {
		doc = ManualDoc{}
	}
	now := time.Now()
	return &StockMovement{
		BaseEntity:    shared.NewBaseEntity(),
		ProductID:     b.ProductID,
		WarehouseID:   b.WarehouseID,
		MovementType:  movementType,
		Quantity:      delta,
		BalanceBefore: before,
		BalanceAfter:  b.Quantity,
		Document:      doc,
		Actor:         actor,
		OccurredAt:    now,
	}
}

// IsInbound returns true if the movement increased the balance
func (m *StockMovement) IsInbound() bool {
	return m.Quantity.IsPositive()
}
