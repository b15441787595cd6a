package inventory

import (
	"strings"
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BatchKind distinguishes lot-tracked stock from individually serialised units
type BatchKind string

const (
	BatchKindLot    BatchKind = "batch"
	BatchKindSerial BatchKind = "serial"
)

// SerialStatus tracks a single serialised unit
type SerialStatus string

const (
	SerialAvailable SerialStatus = "available"
	SerialAllocated SerialStatus = "allocated"
	SerialConsumed  SerialStatus = "consumed"
)

// QualityStatus gates whether a batch may be consumed
type QualityStatus string

const (
	QualityReleased   QualityStatus = "released"
	QualityQuarantine QualityStatus = "quarantine"
	QualityRejected   QualityStatus = "rejected"
)

// ProductBatch is a lot or serial number of one product held in one warehouse.
// quantity_available + quantity_allocated never exceeds quantity.
type ProductBatch struct {
	shared.BaseAggregateRoot
	ProductID         int64
	WarehouseID       int64
	Kind              BatchKind
	Number            string
	Quantity          decimal.Decimal
	QuantityAvailable decimal.Decimal
	QuantityAllocated decimal.Decimal
	SerialStatus      SerialStatus
	ExpiryDate        *time.Time
	ReceivedDate      time.Time
	QualityStatus     QualityStatus
}

// NewLotBatch creates a lot batch holding qty units
func NewLotBatch(productID, warehouseID int64, number string, qty decimal.Decimal, expiry *time.Time, received time.Time) (*ProductBatch, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewValidationError("batch number is required")
	}
	if err := validatePositive(qty, "batch quantity"); err != nil {
		return nil, err
	}
	return &ProductBatch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		WarehouseID:       warehouseID,
		Kind:              BatchKindLot,
		Number:            number,
		Quantity:          qty,
		QuantityAvailable: qty,
		QuantityAllocated: decimal.Zero,
		ExpiryDate:        expiry,
		ReceivedDate:      received,
		QualityStatus:     QualityReleased,
	}, nil
}

// NewSerialUnit creates a single serialised unit
func NewSerialUnit(productID, warehouseID int64, serial string, expiry *time.Time, received time.Time) (*ProductBatch, error) {
	b, err := NewLotBatch(productID, warehouseID, serial, decimal.NewFromInt(1), expiry, received)
	if err != nil {
		return nil, err
	}
	b.Kind = BatchKindSerial
	b.SerialStatus = SerialAvailable
	return b, nil
}

// IsUsable reports whether the batch can be picked or drawn from
func (b *ProductBatch) IsUsable() bool {
	if b.QualityStatus != QualityReleased || !b.QuantityAvailable.IsPositive() {
		return false
	}
	if b.Kind == BatchKindSerial {
		return b.SerialStatus == SerialAvailable
	}
	return true
}

// Allocate moves qty from available to allocated for a pick
func (b *ProductBatch) Allocate(qty decimal.Decimal) error {
	if err := b.checkDraw(qty); err != nil {
		return err
	}
	b.QuantityAvailable = b.QuantityAvailable.Sub(qty)
	b.QuantityAllocated = b.QuantityAllocated.Add(qty)
	if b.Kind == BatchKindSerial {
		b.SerialStatus = SerialAllocated
	}
	b.touch()
	return nil
}

// Deallocate returns a previously allocated qty to available
func (b *ProductBatch) Deallocate(qty decimal.Decimal) error {
	if err := validatePositive(qty, "deallocate quantity"); err != nil {
		return err
	}
	if b.QuantityAllocated.LessThan(qty) {
		return shared.NewStateError("batch %s has only %s allocated", b.Number, b.QuantityAllocated.String())
	}
	b.QuantityAllocated = b.QuantityAllocated.Sub(qty)
	b.QuantityAvailable = b.QuantityAvailable.Add(qty)
	if b.Kind == BatchKindSerial {
		b.SerialStatus = SerialAvailable
	}
	b.touch()
	return nil
}

// ConsumeAllocated removes allocated qty from the batch when picks are issued
func (b *ProductBatch) ConsumeAllocated(qty decimal.Decimal) error {
	if err := validatePositive(qty, "consume quantity"); err != nil {
		return err
	}
	if b.QuantityAllocated.LessThan(qty) {
		return shared.NewStateError("batch %s has only %s allocated", b.Number, b.QuantityAllocated.String())
	}
	b.QuantityAllocated = b.QuantityAllocated.Sub(qty)
	b.Quantity = b.Quantity.Sub(qty)
	b.markConsumedIfEmpty()
	b.touch()
	return nil
}

// Consume removes qty straight from available stock
func (b *ProductBatch) Consume(qty decimal.Decimal) error {
	if err := b.checkDraw(qty); err != nil {
		return err
	}
	b.QuantityAvailable = b.QuantityAvailable.Sub(qty)
	b.Quantity = b.Quantity.Sub(qty)
	b.markConsumedIfEmpty()
	b.touch()
	return nil
}

// SetQualityStatus records an inspection result
func (b *ProductBatch) SetQualityStatus(status QualityStatus) {
	b.QualityStatus = status
	b.touch()
}

func (b *ProductBatch) checkDraw(qty decimal.Decimal) error {
	if err := validatePositive(qty, "batch quantity"); err != nil {
		return err
	}
	if b.QualityStatus != QualityReleased {
		return shared.NewStateError("batch %s is not released for use (quality %s)", b.Number, b.QualityStatus)
	}
	if b.Kind == BatchKindSerial {
		if !qty.Equal(decimal.NewFromInt(1)) {
			return shared.NewValidationError("serial %s can only be drawn as a single unit", b.Number)
		}
		if b.SerialStatus != SerialAvailable {
			return shared.NewStateError("serial %s is %s", b.Number, b.SerialStatus)
		}
	}
	if b.QuantityAvailable.LessThan(qty) {
		return NewInsufficientStockError(b.ProductID, b.WarehouseID, qty, b.QuantityAvailable).
			WithDetail("batch", b.Number)
	}
	return nil
}

func (b *ProductBatch) markConsumedIfEmpty() {
	if b.Kind == BatchKindSerial && b.Quantity.IsZero() {
		b.SerialStatus = SerialConsumed
	}
}

func (b *ProductBatch) touch() {
	b.UpdatedAt = time.Now()
}
