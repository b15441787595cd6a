package manufacturing

import (
	"context"

	"github.com/shopspring/decimal"
)

// BOMSource resolves the recipe behind a sub-assembly or phantom component.
// LatestApproved returns nil, nil when the product has no approved BOM.
type BOMSource interface {
	LatestApproved(ctx context.Context, productID int64) (*BillOfMaterial, error)
}

// PriceSource returns the catalog cost price of a product
type PriceSource interface {
	CostPrice(ctx context.Context, productID int64) (decimal.Decimal, error)
}

// CheckComponent walks the approved BOMs below component and fails with
// ErrBOMCycle if output is reachable, i.e. the component eventually contains it.
func CheckComponent(ctx context.Context, boms BOMSource, output, component int64) error {
	visited := make(map[int64]bool)
	return walkComponents(ctx, boms, output, component, visited)
}

func walkComponents(ctx context.Context, boms BOMSource, target, product int64, visited map[int64]bool) error {
	if product == target {
		return ErrBOMCycle.WithDetail("product_id", target)
	}
	if visited[product] {
		return nil
	}
	visited[product] = true

	sub, err := boms.LatestApproved(ctx, product)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}
	for _, it := range sub.Items {
		if err := walkComponents(ctx, boms, target, it.ProductID, visited); err != nil {
			return err
		}
	}
	return nil
}
