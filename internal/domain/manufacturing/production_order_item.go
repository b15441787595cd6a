package manufacturing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItemStatus tracks material flow for one exploded component
type OrderItemStatus string

const (
	OrderItemPending  OrderItemStatus = "pending"
	OrderItemReserved OrderItemStatus = "reserved"
	OrderItemPicked   OrderItemStatus = "picked"
	OrderItemIssued   OrderItemStatus = "issued"
	OrderItemConsumed OrderItemStatus = "consumed"
	OrderItemReturned OrderItemStatus = "returned"
)

// ProductionOrderItem is one component requirement of an order.
// issued <= reserved <= required always holds.
type ProductionOrderItem struct {
	ID                int64
	ProductionOrderID int64
	ProductID         int64
	QuantityRequired  decimal.Decimal
	QuantityReserved  decimal.Decimal
	QuantityIssued    decimal.Decimal
	QuantityConsumed  decimal.Decimal
	QuantityReturned  decimal.Decimal
	UnitCost          decimal.Decimal
	Status            OrderItemStatus
	ReservationHandle *uuid.UUID
}

func newOrderItem(req Requirement) *ProductionOrderItem {
	return &ProductionOrderItem{
		ProductID:        req.ProductID,
		QuantityRequired: req.Quantity,
		QuantityReserved: decimal.Zero,
		QuantityIssued:   decimal.Zero,
		QuantityConsumed: decimal.Zero,
		QuantityReturned: decimal.Zero,
		UnitCost:         req.UnitCost,
		Status:           OrderItemPending,
	}
}

// Unreserved returns how much of the requirement has no reservation yet
func (i *ProductionOrderItem) Unreserved() decimal.Decimal {
	return i.QuantityRequired.Sub(i.QuantityReserved)
}

// IsFullyReserved returns true once the whole requirement is reserved
func (i *ProductionOrderItem) IsFullyReserved() bool {
	return i.QuantityReserved.GreaterThanOrEqual(i.QuantityRequired)
}

// RecordReservation attaches a ledger reservation of qty
func (i *ProductionOrderItem) RecordReservation(qty decimal.Decimal, handle uuid.UUID) error {
	if !qty.IsPositive() {
		return errValidation("reserved quantity must be positive")
	}
	if i.ReservationHandle != nil {
		return errState("order item %d already holds reservation %s", i.ID, i.ReservationHandle)
	}
	if i.QuantityReserved.Add(qty).GreaterThan(i.QuantityRequired) {
		return errValidation("reservation of %s exceeds requirement %s for product %d",
			qty.String(), i.QuantityRequired.String(), i.ProductID)
	}
	i.QuantityReserved = i.QuantityReserved.Add(qty)
	i.ReservationHandle = &handle
	i.Status = OrderItemReserved
	return nil
}

// ClearReservation drops the un-issued part of the reservation
func (i *ProductionOrderItem) ClearReservation() {
	i.QuantityReserved = i.QuantityIssued
	i.ReservationHandle = nil
	if i.QuantityIssued.IsZero() {
		i.Status = OrderItemPending
	}
}

// MarkPicked records that material for the item is being picked
func (i *ProductionOrderItem) MarkPicked() {
	if i.Status == OrderItemPending || i.Status == OrderItemReserved {
		i.Status = OrderItemPicked
	}
}

// RecordIssue credits qty issued to production
func (i *ProductionOrderItem) RecordIssue(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return errValidation("issued quantity must be positive")
	}
	if i.QuantityIssued.Add(qty).GreaterThan(i.QuantityReserved) {
		return errValidation("issuing %s would exceed reserved %s for product %d",
			qty.String(), i.QuantityReserved.String(), i.ProductID)
	}
	i.QuantityIssued = i.QuantityIssued.Add(qty)
	i.Status = OrderItemIssued
	return nil
}

// Consume books all issued and unreturned material as consumed
func (i *ProductionOrderItem) Consume() {
	i.QuantityConsumed = i.QuantityIssued.Sub(i.QuantityReturned)
	if i.QuantityConsumed.IsPositive() {
		i.Status = OrderItemConsumed
	}
}

// RecordReturn books issued material going back to stock
func (i *ProductionOrderItem) RecordReturn(qty decimal.Decimal) error {
	if i.QuantityReturned.Add(qty).GreaterThan(i.QuantityIssued) {
		return errValidation("cannot return more than issued for product %d", i.ProductID)
	}
	i.QuantityReturned = i.QuantityReturned.Add(qty)
	i.Status = OrderItemReturned
	return nil
}

// Unreturned returns issued quantity still on the shop floor
func (i *ProductionOrderItem) Unreturned() decimal.Decimal {
	return i.QuantityIssued.Sub(i.QuantityReturned).Sub(i.QuantityConsumed)
}
