package partner

import (
	"testing"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWarehouse(t *testing.T) {
	w, err := NewWarehouse(" main ", "Main store")
	require.NoError(t, err)
	assert.Equal(t, "MAIN", w.Code)
	assert.NoError(t, w.CanReceive())
	assert.NoError(t, w.CanShip())

	_, err = NewWarehouse("", "nameless")
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
}

func TestWarehouseDirections(t *testing.T) {
	w, err := NewWarehouse("QA", "Quarantine")
	require.NoError(t, err)

	w.AcceptsOutbound = false
	assert.NoError(t, w.CanReceive())
	assert.True(t, shared.HasCode(w.CanShip(), shared.CodeInvalidState))

	w.AcceptsOutbound = true
	w.IsActive = false
	assert.True(t, shared.HasCode(w.CanReceive(), shared.CodeInvalidState))
	assert.True(t, shared.HasCode(w.CanShip(), shared.CodeInvalidState))
}
