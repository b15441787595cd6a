package manufacturing

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func effectiveBOM(t *testing.T) *BillOfMaterial {
	t.Helper()
	b := draftBOM(t, 1, 1)
	addItem(t, b, 2, "2")
	addItem(t, b, 3, "1")
	return approve(t, b)
}

func newOrder(t *testing.T, mode AllocationMode) *ProductionOrder {
	t.Helper()
	o, err := NewProductionOrder(effectiveBOM(t), OrderSpec{
		Reference:      "PRO-TEST",
		WarehouseID:    7,
		Quantity:       d(10),
		AllocationMode: mode,
	}, time.Now())
	require.NoError(t, err)
	o.ID = 42
	return o
}

func releasedOrder(t *testing.T) *ProductionOrder {
	t.Helper()
	o := newOrder(t, AllocationAuto)
	require.NoError(t, o.Release([]Requirement{
		{ProductID: 2, Quantity: d(20), UnitCost: d(5)},
		{ProductID: 3, Quantity: d(10), UnitCost: d(10)},
	}, "planner"))
	for i, it := range o.Items {
		it.ID = int64(i + 1)
	}
	return o
}

func reserveAll(t *testing.T, o *ProductionOrder) {
	t.Helper()
	for _, it := range o.Items {
		require.NoError(t, it.RecordReservation(it.QuantityRequired, uuid.New()))
	}
}

func TestNewProductionOrder(t *testing.T) {
	t.Run("requires an effective bom", func(t *testing.T) {
		draft := draftBOM(t, 1, 1)
		addItem(t, draft, 2, "1")
		_, err := NewProductionOrder(draft, OrderSpec{WarehouseID: 1, Quantity: d(1)}, time.Now())
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("defaults to auto allocation", func(t *testing.T) {
		o, err := NewProductionOrder(effectiveBOM(t), OrderSpec{WarehouseID: 1, Quantity: d(1)}, time.Now())
		require.NoError(t, err)
		assert.Equal(t, AllocationAuto, o.AllocationMode)
		assert.Equal(t, OrderStatusDraft, o.Status)
		assert.Equal(t, int64(1), o.ProductID)
	})

	t.Run("rejects non-positive quantity and inverted plan", func(t *testing.T) {
		_, err := NewProductionOrder(effectiveBOM(t), OrderSpec{WarehouseID: 1, Quantity: d(0)}, time.Now())
		assert.True(t, errors.Is(err, shared.ErrValidation))

		start := time.Now()
		end := start.Add(-time.Hour)
		_, err = NewProductionOrder(effectiveBOM(t), OrderSpec{
			WarehouseID: 1, Quantity: d(1), PlannedStartDate: &start, PlannedEndDate: &end,
		}, time.Now())
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestProductionOrder_Lifecycle(t *testing.T) {
	t.Run("release snapshots requirements and estimated cost", func(t *testing.T) {
		o := releasedOrder(t)
		assert.Equal(t, OrderStatusReleased, o.Status)
		require.Len(t, o.Items, 2)
		assert.True(t, o.EstimatedCost.Equal(d(200)))
		assert.Equal(t, OrderItemPending, o.Items[0].Status)
	})

	t.Run("release is allowed from planned", func(t *testing.T) {
		o := newOrder(t, AllocationManual)
		require.NoError(t, o.Plan("planner"))
		require.NoError(t, o.Release([]Requirement{{ProductID: 2, Quantity: d(1), UnitCost: d(1)}}, "planner"))
		assert.Equal(t, OrderStatusReleased, o.Status)
	})

	t.Run("materials reserved needs every item reserved", func(t *testing.T) {
		o := releasedOrder(t)
		require.NoError(t, o.Items[0].RecordReservation(d(20), uuid.New()))
		err := o.MarkMaterialsReserved("system")
		assert.True(t, errors.Is(err, shared.ErrInvalidState))

		require.NoError(t, o.Items[1].RecordReservation(d(10), uuid.New()))
		require.NoError(t, o.MarkMaterialsReserved("system"))
		assert.Equal(t, OrderStatusMaterialsReserved, o.Status)
	})

	t.Run("start fails on inactive warehouse", func(t *testing.T) {
		o := releasedOrder(t)
		err := o.Start("op", false)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Equal(t, OrderStatusReleased, o.Status)

		require.NoError(t, o.Start("op", true))
		assert.Equal(t, OrderStatusInProgress, o.Status)
		assert.Equal(t, "op", o.StartedBy)
		assert.NotNil(t, o.ActualStartDate)
	})

	t.Run("start from draft is illegal", func(t *testing.T) {
		o := newOrder(t, AllocationAuto)
		assert.True(t, errors.Is(o.Start("op", true), shared.ErrInvalidState))
	})

	t.Run("complete accrues consumed cost within tolerance", func(t *testing.T) {
		o := releasedOrder(t)
		reserveAll(t, o)
		require.NoError(t, o.Items[0].RecordIssue(d(20)))
		require.NoError(t, o.Items[1].RecordIssue(d(8)))
		require.NoError(t, o.Items[1].RecordReturn(d(1)))
		require.NoError(t, o.Start("op", true))

		err := o.Complete("op", d(10), d(2), ds("0.1"))
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.Equal(t, OrderStatusInProgress, o.Status)

		require.NoError(t, o.Complete("op", d(10), d(1), ds("0.1")))
		assert.Equal(t, OrderStatusCompleted, o.Status)
		assert.True(t, o.Items[1].QuantityConsumed.Equal(d(7)))
		// 20 x 5 + 7 x 10
		assert.True(t, o.ActualCost.Equal(d(170)), "actual cost %s", o.ActualCost)
		assert.NotNil(t, o.ActualEndDate)
	})

	t.Run("hold and resume only around in progress", func(t *testing.T) {
		o := releasedOrder(t)
		assert.True(t, errors.Is(o.Hold("op", "break"), shared.ErrInvalidState))

		require.NoError(t, o.Start("op", true))
		require.NoError(t, o.Hold("op", "machine down"))
		assert.Equal(t, "machine down", o.HoldReason)
		assert.True(t, errors.Is(o.Start("op", true), shared.ErrInvalidState))

		require.NoError(t, o.Resume("op"))
		assert.Equal(t, OrderStatusInProgress, o.Status)
		assert.Empty(t, o.HoldReason)
	})

	t.Run("cancel needs a reason and is terminal", func(t *testing.T) {
		o := releasedOrder(t)
		assert.True(t, errors.Is(o.Cancel("op", ""), shared.ErrValidation))
		require.NoError(t, o.Cancel("op", "customer withdrew"))
		assert.Equal(t, OrderStatusCancelled, o.Status)

		assert.True(t, errors.Is(o.Cancel("op", "again"), shared.ErrInvalidState))
		assert.True(t, errors.Is(o.Start("op", true), shared.ErrInvalidState))
	})

	t.Run("each transition raises a status event", func(t *testing.T) {
		o := releasedOrder(t)
		require.NoError(t, o.Start("op", true))
		events := o.GetDomainEvents()
		require.Len(t, events, 2)
		last, ok := events[1].(*StatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, "released", last.From)
		assert.Equal(t, "in_progress", last.To)
		assert.Equal(t, "op", last.Actor())
	})
}

func TestProductionOrderItem(t *testing.T) {
	o := releasedOrder(t)
	it := o.Items[0]

	err := it.RecordReservation(d(21), uuid.New())
	assert.True(t, errors.Is(err, shared.ErrValidation))

	require.NoError(t, it.RecordReservation(d(15), uuid.New()))
	err = it.RecordReservation(d(1), uuid.New())
	assert.True(t, errors.Is(err, shared.ErrInvalidState), "second handle on one item")

	assert.True(t, errors.Is(it.RecordIssue(d(16)), shared.ErrValidation), "issued cannot exceed reserved")
	require.NoError(t, it.RecordIssue(d(5)))

	it.ClearReservation()
	assert.True(t, it.QuantityReserved.Equal(d(5)))
	assert.Nil(t, it.ReservationHandle)
	assert.True(t, it.Unreturned().Equal(d(5)))
}
