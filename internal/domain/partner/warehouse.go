package partner

import (
	"strings"

	"github.com/erp/manufacturing/internal/domain/shared"
)

// Warehouse is the partner-owned stock location referenced by the ledger
type Warehouse struct {
	shared.BaseEntity
	Code            string
	Name            string
	IsActive        bool
	AcceptsInbound  bool
	AcceptsOutbound bool
}

// NewWarehouse creates an active warehouse open in both directions
func NewWarehouse(code, name string) (*Warehouse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewValidationError("warehouse code cannot be empty")
	}
	return &Warehouse{
		BaseEntity:      shared.NewBaseEntity(),
		Code:            strings.ToUpper(code),
		Name:            name,
		IsActive:        true,
		AcceptsInbound:  true,
		AcceptsOutbound: true,
	}, nil
}

// CanReceive returns nil when stock may flow into the warehouse
func (w *Warehouse) CanReceive() error {
	if !w.IsActive {
		return shared.NewStateError("warehouse %s is inactive", w.Code)
	}
	if !w.AcceptsInbound {
		return shared.NewStateError("warehouse %s does not accept inbound stock", w.Code)
	}
	return nil
}

// CanShip returns nil when stock may be reserved or issued from the warehouse
func (w *Warehouse) CanShip() error {
	if !w.IsActive {
		return shared.NewStateError("warehouse %s is inactive", w.Code)
	}
	if !w.AcceptsOutbound {
		return shared.NewStateError("warehouse %s does not accept outbound movements", w.Code)
	}
	return nil
}
