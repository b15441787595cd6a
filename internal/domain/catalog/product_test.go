package catalog

import (
	"testing"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	t.Run("normalizes code", func(t *testing.T) {
		p, err := NewProduct(" frame-01 ", "Frame", "pcs", decimal.NewFromInt(40))
		require.NoError(t, err)
		assert.Equal(t, "FRAME-01", p.Code)
		assert.True(t, p.TrackInventory)
		assert.Equal(t, TrackingNone, p.TrackingMode)
		assert.False(t, p.IsBatchTracked())
	})

	tests := []struct {
		name string
		code string
		unit string
		cost decimal.Decimal
	}{
		{"empty code", "  ", "pcs", decimal.Zero},
		{"empty unit", "BOLT", "", decimal.Zero},
		{"negative cost", "BOLT", "pcs", decimal.NewFromInt(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProduct(tt.code, "x", tt.unit, tt.cost)
			assert.True(t, shared.HasCode(err, shared.CodeValidation))
		})
	}
}

func TestProductTracking(t *testing.T) {
	p, err := NewProduct("CELL", "Battery cell", "pcs", decimal.NewFromInt(3))
	require.NoError(t, err)

	p.TrackingMode = TrackingBatch
	assert.True(t, p.IsBatchTracked())
	assert.False(t, p.IsSerialTracked())

	p.TrackingMode = TrackingSerial
	assert.True(t, p.IsBatchTracked())
	assert.True(t, p.IsSerialTracked())

	p.TrackInventory = false
	assert.False(t, p.IsBatchTracked())

	assert.True(t, TrackingSerial.IsValid())
	assert.False(t, TrackingMode("lot").IsValid())
}
