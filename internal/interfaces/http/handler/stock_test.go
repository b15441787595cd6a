package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	appinv "github.com/erp/manufacturing/internal/application/inventory"
	"github.com/erp/manufacturing/internal/interfaces/http/dto"
	"github.com/erp/manufacturing/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockHandler_ReserveRejectsShortageWithoutSideEffects(t *testing.T) {
	a := newAPI(t)
	a.receive(a.frame, 10)

	w := a.do(http.MethodPost, "/stock/reservations", gin.H{
		"product_id": a.frame.ID, "warehouse_id": a.warehouse.ID, "quantity": "7",
	}, "planner")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[appinv.ReservationResponse](t, w).Data
	assert.True(t, res.Outstanding.Equal(decimal.NewFromInt(7)))

	balance := a.balance(a.frame)
	assert.True(t, balance.AvailableQuantity.Equal(decimal.NewFromInt(3)))

	w = a.do(http.MethodPost, "/stock/reservations", gin.H{
		"product_id": a.frame.ID, "warehouse_id": a.warehouse.ID, "quantity": "5",
	}, "planner")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeInsufficientStock)

	balance = a.balance(a.frame)
	assert.True(t, balance.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, balance.ReservedQuantity.Equal(decimal.NewFromInt(7)))

	w = a.do(http.MethodDelete, "/stock/reservations/"+res.Handle.String(), nil, "planner")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	released := decode[struct {
		Released decimal.Decimal `json:"released"`
	}](t, w).Data
	assert.True(t, released.Released.Equal(decimal.NewFromInt(7)))

	w = a.do(http.MethodDelete, "/stock/reservations/"+res.Handle.String(), nil, "planner")
	require.Equal(t, http.StatusOK, w.Code)
	again := decode[struct {
		Released decimal.Decimal `json:"released"`
	}](t, w).Data
	assert.True(t, again.Released.IsZero())
}

func TestStockHandler_Validation(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/stock/receipts", gin.H{
		"product_id": a.frame.ID, "warehouse_id": a.warehouse.ID, "quantity": "-1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)

	w = a.do(http.MethodPost, "/stock/transfers", gin.H{
		"product_id": a.frame.ID, "from_warehouse_id": a.warehouse.ID, "to_warehouse_id": a.warehouse.ID, "quantity": "1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)

	w = a.do(http.MethodGet, "/stock/reservations/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeBadRequest)

	w = a.do(http.MethodGet, "/stock/balances", nil, "")
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)
}

func TestStockHandler_MovementsRecordActor(t *testing.T) {
	a := newAPI(t)
	a.receive(a.wheel, 5)

	w := a.do(http.MethodPost, "/stock/adjustments", gin.H{
		"product_id": a.wheel.ID, "warehouse_id": a.warehouse.ID, "delta": "-2", "reason": "damaged",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodGet, fmt.Sprintf("/stock/movements/%d/%d?page_size=10", a.wheel.ID, a.warehouse.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[[]appinv.MovementResponse](t, w)
	require.Len(t, page.Data, 2)
	require.NotNil(t, page.Meta)
	assert.Equal(t, int64(2), page.Meta.Total)
	assert.Equal(t, 10, page.Meta.PageSize)

	actors := []string{page.Data[0].Actor, page.Data[1].Actor}
	assert.ElementsMatch(t, []string{"receiver", "anonymous"}, actors)
	assert.True(t, a.balance(a.wheel).Quantity.Equal(decimal.NewFromInt(3)))
}
