package catalog

import (
	"strings"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TrackingMode controls the granularity stock is tracked at for a product
type TrackingMode string

const (
	TrackingNone   TrackingMode = "none"
	TrackingBatch  TrackingMode = "batch"
	TrackingSerial TrackingMode = "serial"
)

// IsValid returns true if the tracking mode is a known value
func (m TrackingMode) IsValid() bool {
	switch m {
	case TrackingNone, TrackingBatch, TrackingSerial:
		return true
	default:
		return false
	}
}

// Product is the catalog view consumed by manufacturing.
// It is owned by the catalog context and never mutated here.
type Product struct {
	shared.BaseEntity
	Code           string
	Name           string
	Unit           string
	CostPrice      decimal.Decimal
	TrackInventory bool
	TrackingMode   TrackingMode
}

// NewProduct creates a catalog product
func NewProduct(code, name, unit string, costPrice decimal.Decimal) (*Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewValidationError("product code cannot be empty")
	}
	if strings.TrimSpace(unit) == "" {
		return nil, shared.NewValidationError("product unit cannot be empty")
	}
	if costPrice.IsNegative() {
		return nil, shared.NewValidationError("cost price cannot be negative")
	}
	return &Product{
		BaseEntity:     shared.NewBaseEntity(),
		Code:           strings.ToUpper(code),
		Name:           name,
		Unit:           unit,
		CostPrice:      costPrice,
		TrackInventory: true,
		TrackingMode:   TrackingNone,
	}, nil
}

// IsBatchTracked reports whether stock moves must name a batch or serial
func (p *Product) IsBatchTracked() bool {
	return p.TrackInventory && (p.TrackingMode == TrackingBatch || p.TrackingMode == TrackingSerial)
}

// IsSerialTracked reports whether each unit carries its own serial number
func (p *Product) IsSerialTracked() bool {
	return p.TrackInventory && p.TrackingMode == TrackingSerial
}
