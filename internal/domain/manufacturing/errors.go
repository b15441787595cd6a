package manufacturing

import (
	"fmt"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CodeBOMCycle is a validation failure raised when a BOM would contain itself.
// It answers 400 like other validation errors.
const CodeBOMCycle = "BOM_CYCLE"

// ErrBOMCycle is returned when a component would eventually contain itself
var ErrBOMCycle = shared.NewDomainError(CodeBOMCycle, "bill of material would contain a cycle")

func errValidation(format string, args ...any) *shared.DomainError {
	return shared.NewValidationError(format, args...)
}

func errState(format string, args ...any) *shared.DomainError {
	return shared.NewStateError(format, args...)
}

// NewOverPickError reports how far a pick would exceed the approved quantity
func NewOverPickError(itemID int64, approved, picked, requested decimal.Decimal) *shared.DomainError {
	excess := picked.Add(requested).Sub(approved)
	err := shared.NewDomainError(shared.CodeOverPick,
		fmt.Sprintf("picking %s would exceed approved quantity %s for requisition item %d by %s",
			requested.String(), approved.String(), itemID, excess.String()))
	err.Details = map[string]any{
		"item_id":  itemID,
		"approved": approved.String(),
		"picked":   picked.String(),
		"excess":   excess.String(),
	}
	return err
}
