package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	appinv "github.com/erp/manufacturing/internal/application/inventory"
	"github.com/erp/manufacturing/internal/domain/catalog"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/persistence"
	"github.com/erp/manufacturing/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d = testutil.Dec

func newLedgerService(t *testing.T) (*appinv.StockLedgerService, *testutil.RecordingPublisher, func(code string, mode catalog.TrackingMode) int64, int64, int64) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	main := testutil.SeedWarehouse(t, db, "MAIN")
	spare := testutil.SeedWarehouse(t, db, "SPARE")

	svc := appinv.NewStockLedgerService(persistence.NewGormTransactionScope(db), inventory.NewFEFOSelector(),
		appinv.RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}, nil)
	events := testutil.NewRecordingPublisher()
	svc.SetEventPublisher(events)

	product := func(code string, mode catalog.TrackingMode) int64 {
		return testutil.SeedTrackedProduct(t, db, code, 10, mode).ID
	}
	return svc, events, product, main.ID, spare.ID
}

func TestStockLedgerService_ReserveIssueRelease(t *testing.T) {
	svc, events, product, wh, _ := newLedgerService(t)
	ctx := context.Background()
	bolt := product("BOLT", catalog.TrackingNone)

	_, err := svc.Receive(ctx, appinv.ReceiveStockRequest{ProductID: bolt, WarehouseID: wh, Quantity: d(100)}, "clerk")
	require.NoError(t, err)

	res, err := svc.Reserve(ctx, appinv.ReserveStockRequest{ProductID: bolt, WarehouseID: wh, Quantity: d(30), Note: "job 7"}, "planner")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.Handle)
	assert.Equal(t, "manual", res.Document.Kind)

	_, err = svc.Reserve(ctx, appinv.ReserveStockRequest{ProductID: bolt, WarehouseID: wh, Quantity: d(71)}, "planner")
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

	movements, err := svc.Issue(ctx, appinv.IssueStockRequest{ProductID: bolt, WarehouseID: wh, Quantity: d(10), Reservation: &res.Handle}, "picker")
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, string(inventory.MovementOut), movements[0].MovementType)
	assert.True(t, movements[0].BalanceAfter.Equal(d(90)))

	balance, err := svc.GetBalance(ctx, bolt, wh)
	require.NoError(t, err)
	assert.True(t, balance.Quantity.Equal(d(90)))
	assert.True(t, balance.ReservedQuantity.Equal(d(20)))
	assert.True(t, balance.AvailableQuantity.Equal(d(70)))

	released, err := svc.Release(ctx, res.Handle, "planner")
	require.NoError(t, err)
	assert.True(t, released.Equal(d(20)))

	again, err := svc.Release(ctx, res.Handle, "planner")
	require.NoError(t, err)
	assert.True(t, again.IsZero(), "a second release changes nothing")

	stored, err := svc.GetReservation(ctx, res.Handle)
	require.NoError(t, err)
	assert.True(t, stored.Released)
	assert.True(t, stored.QuantityIssued.Equal(d(10)))

	_, err = svc.Release(ctx, uuid.New(), "planner")
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	assert.Contains(t, events.Types(), inventory.EventTypeStockReserved)
	assert.Contains(t, events.Types(), inventory.EventTypeStockIssued)
	assert.Contains(t, events.Types(), inventory.EventTypeStockReleased)
}

func TestStockLedgerService_AdjustKeepsReservationsCovered(t *testing.T) {
	svc, _, product, wh, _ := newLedgerService(t)
	ctx := context.Background()
	nut := product("NUT", catalog.TrackingNone)

	_, err := svc.Receive(ctx, appinv.ReceiveStockRequest{ProductID: nut, WarehouseID: wh, Quantity: d(10)}, "clerk")
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, appinv.ReserveStockRequest{ProductID: nut, WarehouseID: wh, Quantity: d(8)}, "planner")
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, appinv.AdjustStockRequest{ProductID: nut, WarehouseID: wh, Delta: d(-3), Reason: "damaged"}, "auditor")
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

	m, err := svc.Adjust(ctx, appinv.AdjustStockRequest{ProductID: nut, WarehouseID: wh, Delta: d(-2), Reason: "damaged"}, "auditor")
	require.NoError(t, err)
	assert.Equal(t, string(inventory.MovementAdjustment), m.MovementType)
	assert.Equal(t, "damaged", m.Reason)

	_, err = svc.Adjust(ctx, appinv.AdjustStockRequest{ProductID: nut, WarehouseID: wh, Delta: d(1)}, "auditor")
	assert.True(t, errors.Is(err, shared.ErrValidation))

	movements, total, err := svc.ListMovements(ctx, nut, wh, appinv.MovementListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, movements, 2)
}

func TestStockLedgerService_IssueDrawsBatchesFirstExpiredFirst(t *testing.T) {
	svc, _, product, wh, _ := newLedgerService(t)
	ctx := context.Background()
	resin := product("RESIN", catalog.TrackingBatch)

	late := time.Now().AddDate(0, 0, 30)
	soon := time.Now().AddDate(0, 0, 10)
	lateIn, err := svc.Receive(ctx, appinv.ReceiveStockRequest{ProductID: resin, WarehouseID: wh, Quantity: d(5), BatchNumber: "LOT-LATE", ExpiryDate: &late}, "clerk")
	require.NoError(t, err)
	soonIn, err := svc.Receive(ctx, appinv.ReceiveStockRequest{ProductID: resin, WarehouseID: wh, Quantity: d(5), BatchNumber: "LOT-SOON", ExpiryDate: &soon}, "clerk")
	require.NoError(t, err)

	_, err = svc.Receive(ctx, appinv.ReceiveStockRequest{ProductID: resin, WarehouseID: wh, Quantity: d(5)}, "clerk")
	assert.True(t, errors.Is(err, shared.ErrValidation), "batch tracked receipts need a batch number")

	out, err := svc.Issue(ctx, appinv.IssueStockRequest{ProductID: resin, WarehouseID: wh, Quantity: d(6)}, "picker")
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].BatchID)
	require.NotNil(t, out[1].BatchID)
	assert.Equal(t, *soonIn[0].BatchID, *out[0].BatchID)
	assert.True(t, out[0].Quantity.Abs().Equal(d(5)))
	assert.Equal(t, *lateIn[0].BatchID, *out[1].BatchID)
	assert.True(t, out[1].Quantity.Abs().Equal(d(1)))

	_, err = svc.Issue(ctx, appinv.IssueStockRequest{ProductID: resin, WarehouseID: wh, Quantity: d(5)}, "picker")
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
}

func TestStockLedgerService_Transfer(t *testing.T) {
	svc, _, product, main, spare := newLedgerService(t)
	ctx := context.Background()
	pipe := product("PIPE", catalog.TrackingNone)

	_, err := svc.Receive(ctx, appinv.ReceiveStockRequest{ProductID: pipe, WarehouseID: main, Quantity: d(12)}, "clerk")
	require.NoError(t, err)

	movements, err := svc.Transfer(ctx, appinv.TransferStockRequest{ProductID: pipe, FromWarehouseID: main, ToWarehouseID: spare, Quantity: d(5)}, "clerk")
	require.NoError(t, err)
	assert.Len(t, movements, 2)

	balances, err := svc.ListBalances(ctx, pipe)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.True(t, balances[0].Quantity.Equal(d(7)))
	assert.True(t, balances[1].Quantity.Equal(d(5)))

	_, err = svc.Transfer(ctx, appinv.TransferStockRequest{ProductID: pipe, FromWarehouseID: main, ToWarehouseID: main, Quantity: d(1)}, "clerk")
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = svc.Transfer(ctx, appinv.TransferStockRequest{ProductID: pipe, FromWarehouseID: spare, ToWarehouseID: main, Quantity: d(6)}, "clerk")
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
}

func TestLedger_ReserveRequiresShippingWarehouse(t *testing.T) {
	tests := []struct {
		name     string
		inactive bool
		noShip   bool
		wantErr  bool
	}{
		{name: "active warehouse", wantErr: false},
		{name: "inactive warehouse", inactive: true, wantErr: true},
		{name: "warehouse closed to outbound", noShip: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := testutil.NewSQLiteDB(t)
			wh := testutil.SeedWarehouse(t, db, "MAIN")
			bolt := testutil.SeedProduct(t, db, "BOLT", 1).ID
			scope := persistence.NewGormTransactionScope(db)
			svc := appinv.NewStockLedgerService(scope, inventory.NewFEFOSelector(),
				appinv.RetryPolicy{MaxAttempts: 1}, nil)

			_, err := svc.Receive(ctx, appinv.ReceiveStockRequest{ProductID: bolt, WarehouseID: wh.ID, Quantity: d(10)}, "clerk")
			require.NoError(t, err)

			wh.IsActive = !tt.inactive
			wh.AcceptsOutbound = !tt.noShip
			require.NoError(t, persistence.NewGormWarehouseRepository(db).Save(ctx, wh))

			_, err = svc.Reserve(ctx, appinv.ReserveStockRequest{ProductID: bolt, WarehouseID: wh.ID, Quantity: d(2)}, "planner")
			var reserveAllErr error
			require.NoError(t, scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
				_, reserveAllErr = appinv.NewLedger(repos, inventory.NewFEFOSelector()).ReserveAll(ctx, wh.ID,
					[]appinv.ReserveLine{{ProductID: bolt, Quantity: d(1), Document: inventory.ManualDoc{Note: "line"}}}, "planner")
				return nil
			}))

			if !tt.wantErr {
				assert.NoError(t, err)
				assert.NoError(t, reserveAllErr)
				return
			}
			assert.True(t, shared.HasCode(err, shared.CodeInvalidState), "Reserve: %v", err)
			assert.True(t, shared.HasCode(reserveAllErr, shared.CodeInvalidState), "ReserveAll: %v", reserveAllErr)

			balance, err := svc.GetBalance(ctx, bolt, wh.ID)
			require.NoError(t, err)
			assert.True(t, balance.ReservedQuantity.IsZero())
		})
	}
}
