package manufacturing

import (
	"context"

	"github.com/shopspring/decimal"
)

const costScale = 4

// CostCalculator rolls material cost up a BOM tree
type CostCalculator struct {
	prices PriceSource
	boms   BOMSource
	policy ExplosionPolicy
}

// NewCostCalculator creates a calculator
func NewCostCalculator(prices PriceSource, boms BOMSource, policy ExplosionPolicy) *CostCalculator {
	if policy == nil {
		policy = NewPhantomPolicy()
	}
	return &CostCalculator{prices: prices, boms: boms, policy: policy}
}

// Recalculate refreshes unit and total cost on every line and the BOM totals.
// Approved BOMs keep their snapshot and are rejected here.
func (c *CostCalculator) Recalculate(ctx context.Context, bom *BillOfMaterial) error {
	if bom.Status != BOMStatusDraft && bom.Status != BOMStatusPendingApproval {
		return errState("bill of material %s is %s; costs are frozen", bom.Reference, bom.Status)
	}
	total := decimal.Zero
	for _, item := range bom.Roots() {
		if err := c.rollItem(ctx, bom, item); err != nil {
			return err
		}
		total = total.Add(item.TotalCost)
	}
	bom.TotalCost = total.Round(costScale)
	bom.TotalBOMCost = bom.TotalCost.Add(bom.LaborCost).Add(bom.OverheadCost)
	bom.touch()
	return nil
}

// rollItem sets UnitCost and TotalCost on item. Inline children price the
// item per unit; otherwise a sub-assembly or phantom uses its approved BOM,
// falling back to the catalog cost price.
func (c *CostCalculator) rollItem(ctx context.Context, bom *BillOfMaterial, item *BOMItem) error {
	unit := decimal.Zero
	children := bom.Children(item.Line)

	switch {
	case len(children) > 0:
		for _, child := range children {
			if err := c.rollItem(ctx, bom, child); err != nil {
				return err
			}
			unit = unit.Add(child.TotalCost)
		}
	case item.ItemType == ItemTypeSubAssembly || c.policy.Expand(item):
		sub, err := c.boms.LatestApproved(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if sub == nil {
			if unit, err = c.prices.CostPrice(ctx, item.ProductID); err != nil {
				return err
			}
			break
		}
		if err := CheckComponent(ctx, c.boms, bom.ProductID, item.ProductID); err != nil {
			return err
		}
		if c.policy.Expand(item) {
			unit = sub.TotalCost.Div(sub.Quantity)
		} else {
			unit = sub.TotalBOMCost.Div(sub.Quantity)
		}
	default:
		var err error
		if unit, err = c.prices.CostPrice(ctx, item.ProductID); err != nil {
			return err
		}
	}

	item.UnitCost = unit.Round(costScale)
	item.TotalCost = item.QuantityWithScrap().Mul(item.UnitCost).Round(costScale)
	return nil
}
