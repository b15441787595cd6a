package inventory

import (
	"fmt"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// NewInsufficientStockError reports a shortfall for a (product, warehouse) pair
func NewInsufficientStockError(productID, warehouseID int64, requested, available decimal.Decimal) *shared.DomainError {
	shortfall := requested.Sub(available)
	err := shared.NewDomainError(shared.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for product %d in warehouse %d: requested %s, available %s, short %s",
			productID, warehouseID, requested.String(), available.String(), shortfall.String()))
	err.Details = map[string]any{
		"product_id":   productID,
		"warehouse_id": warehouseID,
		"requested":    requested.String(),
		"available":    available.String(),
		"shortfall":    shortfall.String(),
	}
	return err
}

func validatePositive(qty decimal.Decimal, what string) error {
	if !qty.IsPositive() {
		return shared.NewValidationError("%s must be positive, got %s", what, qty.String())
	}
	return nil
}
