package manufacturing

import (
	"errors"
	"testing"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submittedRequisition(t *testing.T, lines ...RequisitionLine) *MaterialRequisition {
	t.Helper()
	o := releasedOrder(t)
	r, err := NewMaterialRequisition("MR-TEST", o, lines, "clerk")
	require.NoError(t, err)
	r.ID = 5
	for i, it := range r.Items {
		it.ID = int64(i + 1)
	}
	require.NoError(t, r.Submit("clerk"))
	return r
}

func TestMaterialRequisition_Create(t *testing.T) {
	t.Run("draft order cannot requisition", func(t *testing.T) {
		o := newOrder(t, AllocationManual)
		_, err := NewMaterialRequisition("MR-1", o, []RequisitionLine{{ProductID: 2, Quantity: d(1)}}, "clerk")
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("lines must be positive", func(t *testing.T) {
		o := releasedOrder(t)
		_, err := NewMaterialRequisition("MR-1", o, []RequisitionLine{{ProductID: 2, Quantity: d(0)}}, "clerk")
		assert.True(t, errors.Is(err, shared.ErrValidation))
		_, err = NewMaterialRequisition("MR-1", o, nil, "clerk")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("automatic requisition covers reserved items and starts approved", func(t *testing.T) {
		o := releasedOrder(t)
		reserveAll(t, o)
		r, err := NewAutomaticRequisition("MR-2", o, "system")
		require.NoError(t, err)

		assert.Equal(t, RequisitionAutomatic, r.Type)
		assert.Equal(t, RequisitionApproved, r.Status)
		require.Len(t, r.Items, 2)
		require.NotNil(t, r.Items[0].ProductionOrderItemID)
		assert.Equal(t, o.Items[0].ID, *r.Items[0].ProductionOrderItemID)
		assert.True(t, r.Items[0].QuantityApproved.Equal(d(20)))
	})
}

func TestMaterialRequisition_PickOverPick(t *testing.T) {
	r := submittedRequisition(t, RequisitionLine{ProductID: 2, Quantity: d(20)})
	require.NoError(t, r.Approve("supervisor", map[int64]decimal.Decimal{2: d(20)}))
	item := r.Items[0]
	assert.True(t, item.QuantityApproved.Equal(d(20)))
	assert.False(t, r.HasShortage)

	_, err := r.Pick(item.ID, PickSpec{Quantity: d(8)}, "picker")
	require.NoError(t, err)
	assert.Equal(t, RequisitionPicking, r.Status)

	_, err = r.Pick(item.ID, PickSpec{Quantity: d(12)}, "picker")
	require.NoError(t, err)
	assert.True(t, item.QuantityPicked.Equal(d(20)))

	_, err = r.Pick(item.ID, PickSpec{Quantity: d(1)}, "picker")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrOverPick))
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "1", de.Details["excess"])
	assert.True(t, item.QuantityPicked.Equal(d(20)), "failed pick leaves quantity unchanged")
}

func TestMaterialRequisition_Approve(t *testing.T) {
	t.Run("shortage is partial approval not an error", func(t *testing.T) {
		r := submittedRequisition(t, RequisitionLine{ProductID: 2, Quantity: d(20)})
		require.NoError(t, r.Approve("supervisor", map[int64]decimal.Decimal{2: d(12)}))

		item := r.Items[0]
		assert.Equal(t, RequisitionApproved, r.Status)
		assert.True(t, r.HasShortage)
		assert.Equal(t, ItemStatusPending, item.Status)
		assert.True(t, item.QuantityApproved.Equal(d(12)))
		assert.True(t, item.ShortageQuantity.Equal(d(8)))
	})

	t.Run("lines of one product share availability", func(t *testing.T) {
		r := submittedRequisition(t,
			RequisitionLine{ProductID: 2, Quantity: d(6)},
			RequisitionLine{ProductID: 2, Quantity: d(6)},
		)
		require.NoError(t, r.Approve("supervisor", map[int64]decimal.Decimal{2: d(10)}))
		assert.True(t, r.Items[0].QuantityApproved.Equal(d(6)))
		assert.True(t, r.Items[1].QuantityApproved.Equal(d(4)))
		assert.True(t, r.HasShortage)
	})

	t.Run("draft cannot be approved", func(t *testing.T) {
		o := releasedOrder(t)
		r, err := NewMaterialRequisition("MR-1", o, []RequisitionLine{{ProductID: 2, Quantity: d(1)}}, "clerk")
		require.NoError(t, err)
		err = r.Approve("supervisor", map[int64]decimal.Decimal{2: d(1)})
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})
}

func TestMaterialRequisition_IssueAndComplete(t *testing.T) {
	r := submittedRequisition(t,
		RequisitionLine{ProductID: 2, Quantity: d(5)},
		RequisitionLine{ProductID: 3, Quantity: d(4)},
	)
	require.NoError(t, r.Approve("supervisor", map[int64]decimal.Decimal{2: d(5), 3: d(2)}))

	_, _, err := r.Issue(1, "store")
	assert.True(t, errors.Is(err, shared.ErrInvalidState), "nothing picked yet")

	p, err := r.Pick(1, PickSpec{Quantity: d(5)}, "picker")
	require.NoError(t, err)
	p.ID = 100
	picks, total, err := r.Issue(1, "store")
	require.NoError(t, err)
	require.Len(t, picks, 1)
	assert.True(t, total.Equal(d(5)))
	assert.Equal(t, PickStatusIssued, p.Status)
	assert.Equal(t, RequisitionPicking, r.Status)

	assert.True(t, errors.Is(r.Complete("store"), shared.ErrInvalidState))

	_, err = r.Pick(2, PickSpec{Quantity: d(2)}, "picker")
	require.NoError(t, err)
	_, _, err = r.Issue(2, "store")
	require.NoError(t, err)
	assert.Equal(t, RequisitionPicking, r.Status, "item 2 still short")

	_, err = r.ShortClose(2, "store")
	require.NoError(t, err)
	assert.Equal(t, RequisitionIssued, r.Status)

	require.NoError(t, r.Complete("store"))
	assert.Equal(t, RequisitionCompleted, r.Status)
}

func TestMaterialRequisition_ReturnAndCancel(t *testing.T) {
	r := submittedRequisition(t, RequisitionLine{ProductID: 2, Quantity: d(10)})
	require.NoError(t, r.Approve("supervisor", map[int64]decimal.Decimal{2: d(10)}))

	p1, err := r.Pick(1, PickSpec{Quantity: d(4)}, "picker")
	require.NoError(t, err)
	p1.ID = 1
	p2, err := r.Pick(1, PickSpec{Quantity: d(3)}, "picker")
	require.NoError(t, err)
	p2.ID = 2

	returned, err := r.ReturnPick(1, 1)
	require.NoError(t, err)
	assert.Equal(t, PickStatusReturned, returned.Status)
	assert.True(t, r.Items[0].QuantityPicked.Equal(d(3)))

	_, err = r.ReturnPick(1, 1)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))

	assert.True(t, errors.Is(func() error { _, err := r.Cancel("clerk", ""); return err }(), shared.ErrValidation))

	open, err := r.Cancel("clerk", "order changed")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, int64(2), open[0].ID)
	assert.Equal(t, RequisitionCancelled, r.Status)
	assert.Equal(t, ItemStatusCancelled, r.Items[0].Status)
}

func TestMaterialRequisition_CannotCancelAfterIssue(t *testing.T) {
	r := submittedRequisition(t, RequisitionLine{ProductID: 2, Quantity: d(10)})
	require.NoError(t, r.Approve("supervisor", map[int64]decimal.Decimal{2: d(10)}))
	_, err := r.Pick(1, PickSpec{Quantity: d(4)}, "picker")
	require.NoError(t, err)
	_, _, err = r.Issue(1, "store")
	require.NoError(t, err)

	_, err = r.Cancel("clerk", "too late")
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}
