package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	appmfg "github.com/erp/manufacturing/internal/application/manufacturing"
	"github.com/erp/manufacturing/internal/interfaces/http/dto"
	"github.com/erp/manufacturing/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionOrderHandler_ReleaseShortageKeepsOrderReleased(t *testing.T) {
	a := newAPI(t)
	bom := a.approvedBike()
	a.receive(a.frame, 10)
	a.receive(a.wheel, 4)
	order := a.order(bom.ID, 5, "auto")

	w := a.do(http.MethodPost, fmt.Sprintf("/production-orders/%d/release", order.ID), nil, "planner")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	resp := decode[appmfg.OrderResponse](t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeInsufficientStock, resp.Error.Code)
	assert.Equal(t, "released", resp.Data.Status)
	assert.NotEmpty(t, resp.Data.ShortageNote)

	assert.True(t, a.balance(a.frame).ReservedQuantity.IsZero(), "frame reservation is rolled back")
	assert.True(t, a.balance(a.wheel).ReservedQuantity.IsZero())

	a.receive(a.wheel, 10)
	w = a.do(http.MethodPost, fmt.Sprintf("/production-orders/%d/reserve", order.ID), nil, "planner")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "materials_reserved", decode[appmfg.OrderResponse](t, w).Data.Status)
	assert.True(t, a.balance(a.wheel).ReservedQuantity.Equal(decimal.NewFromInt(10)))
}

func TestProductionOrderHandler_Lifecycle(t *testing.T) {
	a := newAPI(t)
	bom := a.approvedBike()
	a.receive(a.frame, 10)
	a.receive(a.wheel, 30)
	order := a.order(bom.ID, 5, "auto")
	assert.Equal(t, "draft", order.Status)

	w := a.do(http.MethodPost, fmt.Sprintf("/production-orders/%d/release", order.ID), nil, "planner")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, fmt.Sprintf("/production-orders/%d/start", order.ID), nil, "operator")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	started := decode[appmfg.OrderResponse](t, w).Data
	assert.Equal(t, "in_progress", started.Status)
	assert.Equal(t, "operator", started.StartedBy)

	w = a.do(http.MethodPost, fmt.Sprintf("/production-orders/%d/hold", order.ID), nil, "operator")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "on_hold", decode[appmfg.OrderResponse](t, w).Data.Status)

	w = a.do(http.MethodPost, fmt.Sprintf("/production-orders/%d/resume", order.ID), nil, "operator")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "in_progress", decode[appmfg.OrderResponse](t, w).Data.Status)

	w = a.do(http.MethodPost, fmt.Sprintf("/production-orders/%d/complete", order.ID), gin.H{"quantity_produced": "6"}, "operator")
	assert.Equal(t, http.StatusBadRequest, w.Code, "over-production beyond tolerance")
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)

	w = a.do(http.MethodPost, fmt.Sprintf("/production-orders/%d/complete", order.ID), gin.H{"quantity_produced": "5"}, "operator")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[appmfg.OrderResponse](t, w).Data
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, "operator", done.CompletedBy)
	assert.True(t, a.balance(a.bike).Quantity.Equal(decimal.NewFromInt(5)))

	w = a.do(http.MethodPost, fmt.Sprintf("/production-orders/%d/cancel", order.ID), gin.H{"reason": "too late"}, "planner")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeInvalidState)

	w = a.do(http.MethodGet, "/production-orders?status=completed", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode[[]appmfg.OrderResponse](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, order.ID, list.Data[0].ID)
}

func TestProductionOrderHandler_CancelReleasesReservations(t *testing.T) {
	a := newAPI(t)
	bom := a.approvedBike()
	a.receive(a.frame, 10)
	a.receive(a.wheel, 30)
	order := a.order(bom.ID, 5, "auto")

	w := a.do(http.MethodPost, fmt.Sprintf("/production-orders/%d/release", order.ID), nil, "planner")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, a.balance(a.wheel).ReservedQuantity.Equal(decimal.NewFromInt(10)))

	w = a.do(http.MethodPost, fmt.Sprintf("/production-orders/%d/cancel", order.ID), gin.H{"reason": "customer withdrew"}, "planner")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decode[appmfg.OrderResponse](t, w).Data
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "customer withdrew", cancelled.CancellationReason)
	assert.True(t, a.balance(a.wheel).ReservedQuantity.IsZero())
	assert.True(t, a.balance(a.frame).ReservedQuantity.IsZero())
}
