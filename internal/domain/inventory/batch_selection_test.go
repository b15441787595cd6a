package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lot(t *testing.T, id int64, qty int64, expiry *time.Time, received time.Time) *ProductBatch {
	t.Helper()
	b, err := NewLotBatch(1, 1, "LOT", decimal.NewFromInt(qty), expiry, received)
	require.NoError(t, err)
	b.ID = id
	return b
}

func TestFEFOSelector_Select(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	early := base.AddDate(0, 1, 0)
	late := base.AddDate(0, 6, 0)

	t.Run("earliest expiry first, no expiry last", func(t *testing.T) {
		batches := []*ProductBatch{
			lot(t, 1, 5, nil, base),
			lot(t, 2, 5, &late, base),
			lot(t, 3, 5, &early, base.AddDate(0, 0, 3)),
		}

		draws, short := NewFEFOSelector().Select(decimal.NewFromInt(12), batches)

		assert.True(t, short.IsZero())
		require.Len(t, draws, 3)
		assert.Equal(t, int64(3), draws[0].BatchID)
		assert.Equal(t, int64(2), draws[1].BatchID)
		assert.Equal(t, int64(1), draws[2].BatchID)
		assert.True(t, draws[2].Quantity.Equal(decimal.NewFromInt(2)))
	})

	t.Run("ties on expiry broken by received date", func(t *testing.T) {
		batches := []*ProductBatch{
			lot(t, 1, 5, &early, base.AddDate(0, 0, 2)),
			lot(t, 2, 5, &early, base),
		}
		draws, _ := NewFEFOSelector().Select(decimal.NewFromInt(3), batches)
		require.Len(t, draws, 1)
		assert.Equal(t, int64(2), draws[0].BatchID)
	})

	t.Run("skips quarantined batches and reports shortfall", func(t *testing.T) {
		q := lot(t, 1, 5, &early, base)
		q.SetQualityStatus(QualityQuarantine)
		batches := []*ProductBatch{q, lot(t, 2, 4, &late, base)}

		draws, short := NewFEFOSelector().Select(decimal.NewFromInt(6), batches)
		require.Len(t, draws, 1)
		assert.Equal(t, int64(2), draws[0].BatchID)
		assert.True(t, short.Equal(decimal.NewFromInt(2)))
	})
}

func TestFIFOSelector_Select(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	early := base.AddDate(0, 1, 0)
	batches := []*ProductBatch{
		lot(t, 1, 5, &early, base.AddDate(0, 0, 5)),
		lot(t, 2, 5, nil, base),
	}
	draws, _ := NewFIFOSelector().Select(decimal.NewFromInt(1), batches)
	require.Len(t, draws, 1)
	assert.Equal(t, int64(2), draws[0].BatchID)
	assert.Equal(t, "fifo", SelectorByName("fifo").Name())
	assert.Equal(t, "fefo", SelectorByName("").Name())
}

func TestProductBatch_Allocation(t *testing.T) {
	now := time.Now()

	t.Run("allocate, deallocate and consume keep totals consistent", func(t *testing.T) {
		b := lot(t, 1, 10, nil, now)
		require.NoError(t, b.Allocate(decimal.NewFromInt(4)))
		assert.True(t, b.QuantityAvailable.Equal(decimal.NewFromInt(6)))
		assert.True(t, b.QuantityAllocated.Equal(decimal.NewFromInt(4)))

		require.NoError(t, b.Deallocate(decimal.NewFromInt(1)))
		require.NoError(t, b.ConsumeAllocated(decimal.NewFromInt(3)))
		assert.True(t, b.Quantity.Equal(decimal.NewFromInt(7)))
		assert.True(t, b.QuantityAvailable.Equal(decimal.NewFromInt(7)))
		assert.True(t, b.QuantityAllocated.IsZero())
	})

	t.Run("cannot allocate more than available", func(t *testing.T) {
		b := lot(t, 1, 2, nil, now)
		assert.Error(t, b.Allocate(decimal.NewFromInt(3)))
	})

	t.Run("serial units move as a whole", func(t *testing.T) {
		s, err := NewSerialUnit(1, 1, "SN-1", nil, now)
		require.NoError(t, err)
		assert.Error(t, s.Allocate(decimal.NewFromInt(2)))
		require.NoError(t, s.Allocate(decimal.NewFromInt(1)))
		assert.Equal(t, SerialAllocated, s.SerialStatus)
		assert.Error(t, s.Allocate(decimal.NewFromInt(1)))
		require.NoError(t, s.ConsumeAllocated(decimal.NewFromInt(1)))
		assert.Equal(t, SerialConsumed, s.SerialStatus)
	})
}
