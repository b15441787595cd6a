package manufacturing

import (
	"github.com/shopspring/decimal"
)

// ItemType classifies a BOM line
type ItemType string

const (
	ItemTypeComponent   ItemType = "component"
	ItemTypeRawMaterial ItemType = "raw_material"
	ItemTypeSubAssembly ItemType = "sub_assembly"
)

// IsValid returns true if the item type is known
func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeComponent, ItemTypeRawMaterial, ItemTypeSubAssembly:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// BOMItem is one node of a BOM tree. Line is its key inside the BOM arena;
// ParentLine is zero for top-level items. Child quantities are per unit of the parent.
type BOMItem struct {
	ID              int64
	Line            int
	ParentLine      int
	Level           int
	Sequence        int
	ProductID       int64
	Quantity        decimal.Decimal
	ScrapPercentage decimal.Decimal
	UnitCost        decimal.Decimal
	TotalCost       decimal.Decimal
	ItemType        ItemType
	IsOptional      bool
	IsPhantom       bool
	Notes           string
}

// QuantityWithScrap returns quantity * (1 + scrap/100)
func (i *BOMItem) QuantityWithScrap() decimal.Decimal {
	return i.Quantity.Mul(decimal.NewFromInt(1).Add(i.ScrapPercentage.Div(hundred)))
}

// IsRoot returns true for top-level items
func (i *BOMItem) IsRoot() bool {
	return i.ParentLine == 0
}

// ItemSpec carries the editable attributes of a BOM line
type ItemSpec struct {
	ProductID       int64
	ParentLine      int
	Sequence        int
	Quantity        decimal.Decimal
	ScrapPercentage decimal.Decimal
	ItemType        ItemType
	IsOptional      bool
	IsPhantom       bool
	Notes           string
}

func (s ItemSpec) validate() error {
	if s.ProductID <= 0 {
		return errValidation("component product is required")
	}
	if !s.Quantity.IsPositive() {
		return errValidation("item quantity must be positive")
	}
	if s.ScrapPercentage.IsNegative() || s.ScrapPercentage.GreaterThanOrEqual(hundred) {
		return errValidation("scrap percentage must be in [0, 100)")
	}
	if !s.ItemType.IsValid() {
		return errValidation("unknown item type %q", s.ItemType)
	}
	return nil
}
