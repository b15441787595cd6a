package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appinv "github.com/erp/manufacturing/internal/application/inventory"
	appmfg "github.com/erp/manufacturing/internal/application/manufacturing"
	"github.com/erp/manufacturing/internal/domain/catalog"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/partner"
	"github.com/erp/manufacturing/internal/infrastructure/logger"
	"github.com/erp/manufacturing/internal/infrastructure/persistence"
	"github.com/erp/manufacturing/internal/interfaces/http/dto"
	"github.com/erp/manufacturing/internal/interfaces/http/handler"
	"github.com/erp/manufacturing/internal/interfaces/http/middleware"
	"github.com/erp/manufacturing/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

type api struct {
	t         *testing.T
	engine    *gin.Engine
	events    *testutil.RecordingPublisher
	bike      *catalog.Product
	frame     *catalog.Product
	wheel     *catalog.Product
	warehouse *partner.Warehouse
}

func newAPI(t *testing.T) *api {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	a := &api{t: t, events: testutil.NewRecordingPublisher()}
	a.bike = testutil.SeedProduct(t, db, "BIKE", 0)
	a.frame = testutil.SeedProduct(t, db, "FRAME", 40)
	a.wheel = testutil.SeedProduct(t, db, "WHEEL", 15)
	a.warehouse = testutil.SeedWarehouse(t, db, "MAIN")

	settings := appmfg.DefaultSettings()
	settings.Retry = appinv.RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}
	deps := appmfg.Dependencies{
		Scope:      persistence.NewGormManufacturingScope(db),
		References: testutil.NewSequenceReferences(),
		Publisher:  a.events,
		Settings:   settings,
	}
	ledger := appinv.NewStockLedgerService(persistence.NewGormTransactionScope(db),
		inventory.NewFEFOSelector(), settings.Retry, nil)

	a.engine = testutil.NewEngine()
	a.engine.Use(logger.GinMiddleware(zap.NewNop()))
	v1 := a.engine.Group("/api/v1")
	handler.NewBOMHandler(appmfg.NewBOMService(deps)).RegisterRoutes(v1)
	handler.NewProductionOrderHandler(appmfg.NewProductionOrderService(deps)).RegisterRoutes(v1)
	handler.NewRequisitionHandler(appmfg.NewRequisitionService(deps)).RegisterRoutes(v1)
	handler.NewScheduleHandler(appmfg.NewScheduleService(deps)).RegisterRoutes(v1)
	handler.NewStockHandler(ledger).RegisterRoutes(v1)
	return a
}

func (a *api) do(method, path string, body any, user string) *httptest.ResponseRecorder {
	a.t.Helper()
	headers := map[string]string{}
	if user != "" {
		headers[logger.HeaderUserID] = user
	}
	return testutil.Do(a.t, a.engine, method, "/api/v1"+path, body, headers)
}

func (a *api) receive(p *catalog.Product, qty int64) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/stock/receipts", gin.H{
		"product_id": p.ID, "warehouse_id": a.warehouse.ID, "quantity": qty,
	}, "receiver")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
}

func (a *api) balance(p *catalog.Product) appinv.BalanceResponse {
	a.t.Helper()
	w := a.do(http.MethodGet, fmt.Sprintf("/stock/balances/%d/%d", p.ID, a.warehouse.ID), nil, "")
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[appinv.BalanceResponse](a.t, w).Data
}

// approvedBike creates BIKE = 1 FRAME + 2 WHEEL and walks it to approved
func (a *api) approvedBike() appmfg.BOMResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/boms", gin.H{
		"product_id": a.bike.ID,
		"version":    "1",
		"quantity":   "1",
		"items": []gin.H{
			{"product_id": a.frame.ID, "quantity": "1", "item_type": "component"},
			{"product_id": a.wheel.ID, "quantity": "2", "item_type": "component"},
		},
	}, "engineer")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	bom := decode[appmfg.BOMResponse](a.t, w).Data

	w = a.do(http.MethodPost, fmt.Sprintf("/boms/%d/submit", bom.ID), nil, "engineer")
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	w = a.do(http.MethodPost, fmt.Sprintf("/boms/%d/approve", bom.ID), nil, "manager")
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[appmfg.BOMResponse](a.t, w).Data
}

func (a *api) order(bomID int64, qty int64, mode string) appmfg.OrderResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/production-orders", gin.H{
		"bill_of_material_id": bomID,
		"warehouse_id":        a.warehouse.ID,
		"quantity":            qty,
		"allocation_mode":     mode,
	}, "planner")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[appmfg.OrderResponse](a.t, w).Data
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	return testutil.JSONBodyAs[envelope[T]](t, w)
}
