package inventory

import (
	"errors"
	"testing"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func balanceWith(t *testing.T, qty int64) *StockBalance {
	t.Helper()
	b, err := NewStockBalance(1, 1)
	require.NoError(t, err)
	b.ID = 10
	if qty > 0 {
		_, err = b.Receive(d(qty), nil, ManualDoc{}, "tester")
		require.NoError(t, err)
	}
	return b
}

func assertInvariants(t *testing.T, b *StockBalance) {
	t.Helper()
	require.NoError(t, b.CheckInvariants())
	assert.True(t, b.AvailableQuantity().Equal(b.Quantity.Sub(b.ReservedQuantity)))
	assert.False(t, b.AvailableQuantity().IsNegative())
}

func TestNewStockBalance(t *testing.T) {
	t.Run("starts empty", func(t *testing.T) {
		b, err := NewStockBalance(3, 4)
		require.NoError(t, err)
		assert.True(t, b.Quantity.IsZero())
		assert.True(t, b.ReservedQuantity.IsZero())
		assert.Equal(t, 1, b.Version)
	})

	t.Run("rejects missing ids", func(t *testing.T) {
		_, err := NewStockBalance(0, 4)
		assert.True(t, errors.Is(err, shared.ErrValidation))
		_, err = NewStockBalance(3, 0)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestStockBalance_Reserve(t *testing.T) {
	t.Run("reserve then oversell is rejected and balance unchanged", func(t *testing.T) {
		b := balanceWith(t, 10)

		r, err := b.Reserve(d(7), ProductionOrderDoc{OrderID: 1}, "u1")
		require.NoError(t, err)
		assert.True(t, b.AvailableQuantity().Equal(d(3)))
		assert.True(t, r.Outstanding().Equal(d(7)))

		_, err = b.Reserve(d(5), ProductionOrderDoc{OrderID: 2}, "u1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "2", de.Details["shortfall"])

		assert.True(t, b.Quantity.Equal(d(10)))
		assert.True(t, b.ReservedQuantity.Equal(d(7)))
		assertInvariants(t, b)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		b := balanceWith(t, 10)
		_, err := b.Reserve(decimal.Zero, nil, "u1")
		assert.True(t, errors.Is(err, shared.ErrValidation))
		_, err = b.Reserve(d(-1), nil, "u1")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("emits a reservation event", func(t *testing.T) {
		b := balanceWith(t, 10)
		b.ClearDomainEvents()

		_, err := b.Reserve(d(1), nil, "u1")
		require.NoError(t, err)
		require.Len(t, b.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeStockReserved, b.GetDomainEvents()[0].EventType())
	})
}

func TestStockBalance_Release(t *testing.T) {
	t.Run("double release does not double credit", func(t *testing.T) {
		b := balanceWith(t, 10)
		r, err := b.Reserve(d(4), nil, "u1")
		require.NoError(t, err)

		released, err := b.Release(r, "u1")
		require.NoError(t, err)
		assert.True(t, released.Equal(d(4)))
		assert.True(t, b.AvailableQuantity().Equal(d(10)))

		released, err = b.Release(r, "u1")
		require.NoError(t, err)
		assert.True(t, released.IsZero())
		assert.True(t, b.AvailableQuantity().Equal(d(10)))
		assert.True(t, b.ReservedQuantity.IsZero())
		assertInvariants(t, b)
	})

	t.Run("releases only the un-issued remainder", func(t *testing.T) {
		b := balanceWith(t, 10)
		r, err := b.Reserve(d(6), nil, "u1")
		require.NoError(t, err)
		_, err = b.Issue(d(4), r, nil, nil, "u1")
		require.NoError(t, err)

		released, err := b.Release(r, "u1")
		require.NoError(t, err)
		assert.True(t, released.Equal(d(2)))
		assert.True(t, b.Quantity.Equal(d(6)))
		assert.True(t, b.ReservedQuantity.IsZero())
		assertInvariants(t, b)
	})

	t.Run("rejects reservation from another balance", func(t *testing.T) {
		b := balanceWith(t, 10)
		other, err := NewStockBalance(2, 1)
		require.NoError(t, err)
		_, err = other.Receive(d(5), nil, nil, "u1")
		require.NoError(t, err)
		r, err := other.Reserve(d(1), nil, "u1")
		require.NoError(t, err)

		_, err = b.Release(r, "u1")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestStockBalance_Issue(t *testing.T) {
	t.Run("issue against reservation lowers quantity and reserved together", func(t *testing.T) {
		b := balanceWith(t, 10)
		r, err := b.Reserve(d(5), nil, "u1")
		require.NoError(t, err)

		movements, err := b.Issue(d(5), r, nil, RequisitionDoc{RequisitionID: 1, ItemID: 2}, "u1")
		require.NoError(t, err)
		require.Len(t, movements, 1)
		m := movements[0]
		assert.Equal(t, MovementOut, m.MovementType)
		assert.True(t, m.BalanceBefore.Equal(d(10)))
		assert.True(t, m.BalanceAfter.Equal(d(5)))
		assert.True(t, m.Quantity.Equal(d(-5)))
		require.NotNil(t, m.ReservationID)
		assert.Equal(t, r.Handle, *m.ReservationID)
		assert.True(t, b.ReservedQuantity.IsZero())
		assert.True(t, r.IsConsumed())
		assertInvariants(t, b)
	})

	t.Run("issue beyond reservation fails", func(t *testing.T) {
		b := balanceWith(t, 10)
		r, err := b.Reserve(d(2), nil, "u1")
		require.NoError(t, err)

		_, err = b.Issue(d(3), r, nil, nil, "u1")
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assert.True(t, b.Quantity.Equal(d(10)))
	})

	t.Run("unreserved issue cannot touch reserved stock", func(t *testing.T) {
		b := balanceWith(t, 10)
		_, err := b.Reserve(d(8), nil, "u1")
		require.NoError(t, err)

		_, err = b.Issue(d(3), nil, nil, nil, "u1")
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

		_, err = b.Issue(d(2), nil, nil, nil, "u1")
		require.NoError(t, err)
		assertInvariants(t, b)
	})

	t.Run("one movement per batch draw with running balances", func(t *testing.T) {
		b := balanceWith(t, 10)
		draws := []BatchDraw{{BatchID: 1, Quantity: d(3)}, {BatchID: 2, Quantity: d(2)}}

		movements, err := b.Issue(d(5), nil, draws, nil, "u1")
		require.NoError(t, err)
		require.Len(t, movements, 2)
		assert.True(t, movements[0].BalanceBefore.Equal(d(10)))
		assert.True(t, movements[0].BalanceAfter.Equal(d(7)))
		assert.True(t, movements[1].BalanceBefore.Equal(d(7)))
		assert.True(t, movements[1].BalanceAfter.Equal(d(5)))
		assert.Equal(t, int64(2), *movements[1].BatchID)
	})

	t.Run("draws must add up to the issue quantity", func(t *testing.T) {
		b := balanceWith(t, 10)
		_, err := b.Issue(d(5), nil, []BatchDraw{{BatchID: 1, Quantity: d(3)}}, nil, "u1")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestStockBalance_Adjust(t *testing.T) {
	t.Run("positive and negative adjustments write audit pairs", func(t *testing.T) {
		b := balanceWith(t, 10)
		m, err := b.Adjust(d(-4), "cycle count", "u1")
		require.NoError(t, err)
		assert.Equal(t, MovementAdjustment, m.MovementType)
		assert.True(t, m.BalanceBefore.Equal(d(10)))
		assert.True(t, m.BalanceAfter.Equal(d(6)))
		assert.Equal(t, AdjustmentDoc{Reason: "cycle count"}, m.Document)
	})

	t.Run("cannot adjust below reserved", func(t *testing.T) {
		b := balanceWith(t, 10)
		_, err := b.Reserve(d(8), nil, "u1")
		require.NoError(t, err)
		_, err = b.Adjust(d(-3), "damage", "u1")
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assertInvariants(t, b)
	})

	t.Run("requires reason and non-zero delta", func(t *testing.T) {
		b := balanceWith(t, 10)
		_, err := b.Adjust(decimal.Zero, "x", "u1")
		assert.True(t, errors.Is(err, shared.ErrValidation))
		_, err = b.Adjust(d(1), "", "u1")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestStockBalance_Transfer(t *testing.T) {
	src := balanceWith(t, 10)
	dst, err := NewStockBalance(1, 2)
	require.NoError(t, err)

	out, err := src.TransferOut(d(4), nil, ManualDoc{Note: "rebalance"}, "u1")
	require.NoError(t, err)
	in, err := dst.TransferIn(d(4), nil, ManualDoc{Note: "rebalance"}, "u1")
	require.NoError(t, err)

	assert.Equal(t, MovementTransfer, out[0].MovementType)
	assert.Equal(t, MovementTransfer, in.MovementType)
	assert.True(t, src.Quantity.Equal(d(6)))
	assert.True(t, dst.Quantity.Equal(d(4)))
}
