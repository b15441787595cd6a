package manufacturing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillOfMaterial_CostRollup(t *testing.T) {
	ctx := context.Background()

	t.Run("two items plus labor and overhead", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		addItem(t, b, 2, "2")
		addItem(t, b, 3, "1")
		require.NoError(t, b.SetOverheads(d(3), d(2)))

		calc := NewCostCalculator(fakePrices{2: d(5), 3: d(10)}, fakeBOMs{}, nil)
		require.NoError(t, calc.Recalculate(ctx, b))

		assert.True(t, b.TotalCost.Equal(d(20)), "total cost %s", b.TotalCost)
		assert.True(t, b.TotalBOMCost.Equal(d(25)), "total bom cost %s", b.TotalBOMCost)
	})

	t.Run("scrap inflates line cost", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		_, err := b.AddItem(ItemSpec{ProductID: 2, Quantity: d(10), ScrapPercentage: d(5), ItemType: ItemTypeRawMaterial})
		require.NoError(t, err)

		calc := NewCostCalculator(fakePrices{2: d(2)}, fakeBOMs{}, nil)
		require.NoError(t, calc.Recalculate(ctx, b))

		assert.True(t, b.Items[0].QuantityWithScrap().Equal(ds("10.5")))
		assert.True(t, b.TotalCost.Equal(d(21)))
	})

	t.Run("sub-assembly priced from its approved bom per unit", func(t *testing.T) {
		sub := draftBOM(t, 5, 2)
		addItem(t, sub, 6, "3")
		calcSub := NewCostCalculator(fakePrices{6: d(8)}, fakeBOMs{}, nil)
		require.NoError(t, calcSub.Recalculate(ctx, sub))
		require.NoError(t, sub.SetOverheads(d(6), d(0)))
		approve(t, sub)

		b := draftBOM(t, 1, 1)
		_, err := b.AddItem(ItemSpec{ProductID: 5, Quantity: d(1), ItemType: ItemTypeSubAssembly})
		require.NoError(t, err)

		calc := NewCostCalculator(fakePrices{5: d(999)}, fakeBOMs{5: sub}, nil)
		require.NoError(t, calc.Recalculate(ctx, b))
		// (24 material + 6 labor) / 2 units
		assert.True(t, b.Items[0].UnitCost.Equal(d(15)), "unit cost %s", b.Items[0].UnitCost)
	})

	t.Run("inline children price their parent per unit", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		parent := addItem(t, b, 7, "2")
		_, err := b.AddItem(ItemSpec{ProductID: 8, ParentLine: parent.Line, Quantity: d(3), ItemType: ItemTypeComponent})
		require.NoError(t, err)

		calc := NewCostCalculator(fakePrices{7: d(100), 8: d(4)}, fakeBOMs{}, nil)
		require.NoError(t, calc.Recalculate(ctx, b))
		assert.True(t, parent.UnitCost.Equal(d(12)))
		assert.True(t, b.TotalCost.Equal(d(24)))
	})

	t.Run("component whose bom contains the output is a cycle", func(t *testing.T) {
		sub := draftBOM(t, 5, 1)
		addItem(t, sub, 1, "1")
		approve(t, sub)

		b := draftBOM(t, 1, 1)
		_, err := b.AddItem(ItemSpec{ProductID: 5, Quantity: d(1), ItemType: ItemTypeSubAssembly})
		require.NoError(t, err)

		calc := NewCostCalculator(fakePrices{}, fakeBOMs{5: sub}, nil)
		err = calc.Recalculate(ctx, b)
		assert.True(t, errors.Is(err, ErrBOMCycle))
	})

	t.Run("approved costs are frozen", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		addItem(t, b, 2, "1")
		approve(t, b)
		err := NewCostCalculator(fakePrices{}, fakeBOMs{}, nil).Recalculate(ctx, b)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})
}

func TestBillOfMaterial_Approval(t *testing.T) {
	t.Run("approve sets latest flag and raises event", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		addItem(t, b, 2, "1")
		approve(t, b)

		assert.Equal(t, BOMStatusApproved, b.Status)
		assert.True(t, b.IsLatestVersion)
		assert.Equal(t, "manager", b.ApprovedBy)
		assert.NotNil(t, b.ApprovedAt)
		require.Len(t, b.GetDomainEvents(), 2)
		assert.Equal(t, EventTypeBOMApproved, b.GetDomainEvents()[1].EventType())
	})

	t.Run("approve then reject is illegal", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		addItem(t, b, 2, "1")
		approve(t, b)

		err := b.Reject("manager", "too late")
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Equal(t, BOMStatusApproved, b.Status)
	})

	t.Run("approving twice is an error and not a state change", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		addItem(t, b, 2, "1")
		approve(t, b)
		approvedAt := b.ApprovedAt

		err := b.Approve("someone else")
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Equal(t, "manager", b.ApprovedBy)
		assert.Equal(t, approvedAt, b.ApprovedAt)
	})

	t.Run("reject needs a reason and returns to draft", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		addItem(t, b, 2, "1")
		require.NoError(t, b.SubmitForApproval("engineer"))

		err := b.Reject("manager", "  ")
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.Equal(t, BOMStatusPendingApproval, b.Status)

		require.NoError(t, b.Reject("manager", "wrong screws"))
		assert.Equal(t, BOMStatusDraft, b.Status)
		assert.Equal(t, "wrong screws", b.RejectionReason)
		assert.True(t, b.IsEditable())
	})

	t.Run("empty bom cannot be submitted", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		err := b.SubmitForApproval("engineer")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("approved bom is immutable", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		addItem(t, b, 2, "1")
		approve(t, b)

		_, err := b.AddItem(ItemSpec{ProductID: 3, Quantity: d(1), ItemType: ItemTypeComponent})
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.True(t, errors.Is(b.SetOverheads(d(1), d(1)), shared.ErrInvalidState))
	})

	t.Run("obsolete drops latest flag and effectiveness", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		addItem(t, b, 2, "1")
		approve(t, b)
		require.True(t, b.IsEffective(time.Now()))

		require.NoError(t, b.MarkObsolete("manager"))
		assert.False(t, b.IsLatestVersion)
		assert.False(t, b.IsEffective(time.Now()))
	})
}

func TestBillOfMaterial_Effectiveness(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	from := now.AddDate(0, 0, -1)
	until := now.AddDate(0, 0, 1)

	b := draftBOM(t, 1, 1)
	addItem(t, b, 2, "1")
	assert.False(t, b.IsEffective(now), "draft is never effective")

	require.NoError(t, b.SetValidity(&from, &until))
	approve(t, b)

	assert.True(t, b.IsEffective(now))
	assert.False(t, b.IsEffective(from.Add(-time.Second)))
	assert.False(t, b.IsEffective(until), "expiry is exclusive")

	err := draftBOM(t, 1, 1).SetValidity(&until, &from)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestBillOfMaterial_Items(t *testing.T) {
	t.Run("levels increase from parent to child", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		top := addItem(t, b, 2, "1")
		mid, err := b.AddItem(ItemSpec{ProductID: 3, ParentLine: top.Line, Quantity: d(1), ItemType: ItemTypeSubAssembly})
		require.NoError(t, err)
		leaf, err := b.AddItem(ItemSpec{ProductID: 4, ParentLine: mid.Line, Quantity: d(1), ItemType: ItemTypeRawMaterial})
		require.NoError(t, err)

		assert.Equal(t, 0, top.Level)
		assert.Equal(t, 1, mid.Level)
		assert.Equal(t, 2, leaf.Level)
	})

	t.Run("output product cannot be its own component", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		_, err := b.AddItem(ItemSpec{ProductID: 1, Quantity: d(1), ItemType: ItemTypeComponent})
		assert.True(t, errors.Is(err, ErrBOMCycle))
	})

	t.Run("component repeated on its ancestor chain is rejected", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		top := addItem(t, b, 2, "1")
		_, err := b.AddItem(ItemSpec{ProductID: 2, ParentLine: top.Line, Quantity: d(1), ItemType: ItemTypeComponent})
		assert.True(t, errors.Is(err, ErrBOMCycle))
		assert.False(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("move under own descendant is rejected", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		top := addItem(t, b, 2, "1")
		child, err := b.AddItem(ItemSpec{ProductID: 3, ParentLine: top.Line, Quantity: d(1), ItemType: ItemTypeComponent})
		require.NoError(t, err)

		err = b.MoveItem(top.Line, child.Line)
		assert.True(t, errors.Is(err, ErrBOMCycle))
	})

	t.Run("move relevels the subtree", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		a := addItem(t, b, 2, "1")
		other := addItem(t, b, 3, "1")
		child, err := b.AddItem(ItemSpec{ProductID: 4, ParentLine: other.Line, Quantity: d(1), ItemType: ItemTypeComponent})
		require.NoError(t, err)

		require.NoError(t, b.MoveItem(other.Line, a.Line))
		assert.Equal(t, 1, other.Level)
		assert.Equal(t, 2, child.Level)
	})

	t.Run("remove drops the subtree", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		top := addItem(t, b, 2, "1")
		_, err := b.AddItem(ItemSpec{ProductID: 3, ParentLine: top.Line, Quantity: d(1), ItemType: ItemTypeComponent})
		require.NoError(t, err)
		addItem(t, b, 4, "1")

		require.NoError(t, b.RemoveItem(top.Line))
		require.Len(t, b.Items, 1)
		assert.Equal(t, int64(4), b.Items[0].ProductID)
	})

	t.Run("scrap must stay below one hundred percent", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		_, err := b.AddItem(ItemSpec{ProductID: 2, Quantity: d(1), ScrapPercentage: d(100), ItemType: ItemTypeComponent})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestBillOfMaterial_NewVersion(t *testing.T) {
	b := draftBOM(t, 1, 1)
	addItem(t, b, 2, "3")
	_, err := b.NewVersion("BOM-2", "2.0")
	assert.True(t, errors.Is(err, shared.ErrInvalidState))

	approve(t, b)
	next, err := b.NewVersion("BOM-2", "2.0")
	require.NoError(t, err)

	assert.Equal(t, BOMStatusDraft, next.Status)
	require.NotNil(t, next.ParentBOMID)
	assert.Equal(t, b.ID, *next.ParentBOMID)
	require.Len(t, next.Items, 1)
	assert.Zero(t, next.Items[0].ID)
	assert.False(t, next.IsLatestVersion)

	_, err = b.NewVersion("BOM-3", "1.0")
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestExploder(t *testing.T) {
	ctx := context.Background()

	t.Run("scales by order quantity and applies scrap", func(t *testing.T) {
		b := draftBOM(t, 1, 2)
		_, err := b.AddItem(ItemSpec{ProductID: 3, Quantity: d(4), ScrapPercentage: d(10), ItemType: ItemTypeRawMaterial})
		require.NoError(t, err)
		addItem(t, b, 2, "1")

		reqs, err := NewExploder(fakeBOMs{}, nil).Explode(ctx, b, d(10))
		require.NoError(t, err)
		require.Len(t, reqs, 2)
		assert.Equal(t, int64(2), reqs[0].ProductID)
		assert.True(t, reqs[0].Quantity.Equal(d(5)))
		assert.True(t, reqs[1].Quantity.Equal(d(22)), "got %s", reqs[1].Quantity)
	})

	t.Run("phantom lines flatten into their bom and duplicates sum", func(t *testing.T) {
		phantom := draftBOM(t, 9, 1)
		addItem(t, phantom, 2, "2")
		addItem(t, phantom, 4, "1")
		approve(t, phantom)

		b := draftBOM(t, 1, 1)
		addItem(t, b, 2, "1")
		_, err := b.AddItem(ItemSpec{ProductID: 9, Quantity: d(3), ItemType: ItemTypeSubAssembly, IsPhantom: true})
		require.NoError(t, err)

		reqs, err := NewExploder(fakeBOMs{9: phantom}, nil).Explode(ctx, b, d(1))
		require.NoError(t, err)
		require.Len(t, reqs, 2)
		assert.Equal(t, int64(2), reqs[0].ProductID)
		assert.True(t, reqs[0].Quantity.Equal(d(7)))
		assert.Equal(t, int64(4), reqs[1].ProductID)
		assert.True(t, reqs[1].Quantity.Equal(d(3)))
	})

	t.Run("required only policy skips optional lines", func(t *testing.T) {
		b := draftBOM(t, 1, 1)
		addItem(t, b, 2, "1")
		_, err := b.AddItem(ItemSpec{ProductID: 3, Quantity: d(1), ItemType: ItemTypeComponent, IsOptional: true})
		require.NoError(t, err)

		ex := NewExploder(fakeBOMs{}, nil)
		all, err := ex.Explode(ctx, b, d(1))
		require.NoError(t, err)
		assert.Len(t, all, 2)

		required, err := ex.WithPolicy(NewRequiredOnlyPolicy()).Explode(ctx, b, d(1))
		require.NoError(t, err)
		require.Len(t, required, 1)
		assert.Equal(t, int64(2), required[0].ProductID)
	})

	t.Run("cycle through phantom boms is detected", func(t *testing.T) {
		loop := draftBOM(t, 9, 1)
		_, err := loop.AddItem(ItemSpec{ProductID: 1, Quantity: d(1), ItemType: ItemTypeSubAssembly, IsPhantom: true})
		require.NoError(t, err)
		approve(t, loop)

		b := draftBOM(t, 1, 1)
		_, err = b.AddItem(ItemSpec{ProductID: 9, Quantity: d(1), ItemType: ItemTypeSubAssembly, IsPhantom: true})
		require.NoError(t, err)
		approve(t, b)

		_, err = NewExploder(fakeBOMs{9: loop, 1: b}, nil).Explode(ctx, b, d(1))
		assert.True(t, errors.Is(err, ErrBOMCycle))
	})
}
