package manufacturing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func ds(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeBOMs map[int64]*BillOfMaterial

func (f fakeBOMs) LatestApproved(_ context.Context, productID int64) (*BillOfMaterial, error) {
	return f[productID], nil
}

type fakePrices map[int64]decimal.Decimal

func (f fakePrices) CostPrice(_ context.Context, productID int64) (decimal.Decimal, error) {
	return f[productID], nil
}

func draftBOM(t *testing.T, productID int64, qty int64) *BillOfMaterial {
	t.Helper()
	b, err := NewBillOfMaterial("BOM-TEST", productID, "1.0", d(qty), "pcs")
	require.NoError(t, err)
	b.ID = productID * 100
	return b
}

func addItem(t *testing.T, b *BillOfMaterial, productID int64, qty string) *BOMItem {
	t.Helper()
	it, err := b.AddItem(ItemSpec{ProductID: productID, Quantity: ds(qty), ItemType: ItemTypeComponent})
	require.NoError(t, err)
	return it
}

func approve(t *testing.T, b *BillOfMaterial) *BillOfMaterial {
	t.Helper()
	require.NoError(t, b.SubmitForApproval("engineer"))
	require.NoError(t, b.Approve("manager"))
	return b
}
