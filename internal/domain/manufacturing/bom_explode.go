package manufacturing

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// Requirement is the total quantity of one component needed by an order
type Requirement struct {
	ProductID int64
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
}

// Exploder flattens a BOM into component requirements
type Exploder struct {
	boms   BOMSource
	policy ExplosionPolicy
}

// NewExploder creates an exploder with the given phantom policy
func NewExploder(boms BOMSource, policy ExplosionPolicy) *Exploder {
	if policy == nil {
		policy = NewPhantomPolicy()
	}
	return &Exploder{boms: boms, policy: policy}
}

// WithPolicy returns a copy using a different policy
func (e *Exploder) WithPolicy(policy ExplosionPolicy) *Exploder {
	return &Exploder{boms: e.boms, policy: policy}
}

type accumulator struct {
	qty  map[int64]decimal.Decimal
	cost map[int64]decimal.Decimal
}

func (a *accumulator) add(productID int64, qty, unitCost decimal.Decimal) {
	a.qty[productID] = a.qty[productID].Add(qty)
	a.cost[productID] = a.cost[productID].Add(qty.Mul(unitCost))
}

// Explode scales the BOM by orderQty / bom.Quantity, expands expandable lines
// and sums duplicate components. Results are ordered by ascending product id.
func (e *Exploder) Explode(ctx context.Context, bom *BillOfMaterial, orderQty decimal.Decimal) ([]Requirement, error) {
	if !orderQty.IsPositive() {
		return nil, errValidation("order quantity must be positive")
	}
	acc := &accumulator{qty: map[int64]decimal.Decimal{}, cost: map[int64]decimal.Decimal{}}
	factor := orderQty.Div(bom.Quantity)
	path := map[int64]bool{bom.ProductID: true}

	for _, item := range bom.Roots() {
		if err := e.visit(ctx, bom, item, factor, path, acc); err != nil {
			return nil, err
		}
	}

	out := make([]Requirement, 0, len(acc.qty))
	for productID, qty := range acc.qty {
		unit := decimal.Zero
		if qty.IsPositive() {
			unit = acc.cost[productID].Div(qty).Round(costScale)
		}
		out = append(out, Requirement{ProductID: productID, Quantity: qty.Round(costScale), UnitCost: unit})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (e *Exploder) visit(ctx context.Context, bom *BillOfMaterial, item *BOMItem, multiplier decimal.Decimal, path map[int64]bool, acc *accumulator) error {
	if !e.policy.Include(item) {
		return nil
	}
	qty := item.QuantityWithScrap().Mul(multiplier)

	if !e.policy.Expand(item) {
		acc.add(item.ProductID, qty, item.UnitCost)
		return nil
	}

	if children := bom.Children(item.Line); len(children) > 0 {
		for _, child := range children {
			if err := e.visit(ctx, bom, child, qty, path, acc); err != nil {
				return err
			}
		}
		return nil
	}

	sub, err := e.boms.LatestApproved(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if sub == nil {
		acc.add(item.ProductID, qty, item.UnitCost)
		return nil
	}
	if path[sub.ProductID] {
		return ErrBOMCycle.WithDetail("product_id", sub.ProductID)
	}
	path[sub.ProductID] = true
	defer delete(path, sub.ProductID)

	subFactor := qty.Div(sub.Quantity)
	for _, child := range sub.Roots() {
		if err := e.visit(ctx, sub, child, subFactor, path, acc); err != nil {
			return err
		}
	}
	return nil
}
