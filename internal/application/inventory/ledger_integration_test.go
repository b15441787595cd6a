//go:build integration

package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appinv "github.com/erp/manufacturing/internal/application/inventory"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/persistence"
	"github.com/erp/manufacturing/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockLedgerService_ConcurrentReservationsNeverOversell(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	product := testutil.SeedProduct(t, db, "BEARING", 3)
	wh := testutil.SeedWarehouse(t, db, "MAIN")

	svc := appinv.NewStockLedgerService(persistence.NewGormTransactionScope(db), inventory.NewFEFOSelector(),
		appinv.RetryPolicy{MaxAttempts: 5, Backoff: 5 * time.Millisecond}, nil)
	ctx := context.Background()

	_, err := svc.Receive(ctx, appinv.ReceiveStockRequest{ProductID: product.ID, WarehouseID: wh.ID, Quantity: d(10)}, "clerk")
	require.NoError(t, err)

	const workers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		short     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ctx, appinv.ReserveStockRequest{ProductID: product.ID, WarehouseID: wh.ID, Quantity: d(1)}, "planner")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, shared.ErrInsufficientStock):
				short++
			default:
				t.Errorf("unexpected reserve error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, workers-10, short)

	balance, err := svc.GetBalance(ctx, product.ID, wh.ID)
	require.NoError(t, err)
	assert.True(t, balance.Quantity.Equal(d(10)))
	assert.True(t, balance.ReservedQuantity.Equal(d(10)))
	assert.True(t, balance.AvailableQuantity.IsZero())
}
