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

func TestBOMHandler_CreateRollsUpCost(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/boms", gin.H{
		"product_id":    a.bike.ID,
		"version":       "1",
		"quantity":      "1",
		"labor_cost":    "3",
		"overhead_cost": "2",
		"items": []gin.H{
			{"product_id": a.frame.ID, "quantity": "2", "item_type": "component"},
			{"product_id": a.wheel.ID, "quantity": "1", "item_type": "component"},
		},
	}, "engineer")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bom := decode[appmfg.BOMResponse](t, w).Data
	assert.Equal(t, "draft", bom.Status)
	// 2 x 40 + 1 x 15
	assert.True(t, bom.TotalCost.Equal(decimal.NewFromInt(95)), bom.TotalCost.String())
	assert.True(t, bom.TotalBOMCost.Equal(decimal.NewFromInt(100)), bom.TotalBOMCost.String())
	assert.Len(t, bom.Items, 2)
}

func TestBOMHandler_ApproveAndReject(t *testing.T) {
	a := newAPI(t)
	approved := a.approvedBike()
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "manager", approved.ApprovedBy)
	assert.True(t, approved.IsLatestVersion)

	w := a.do(http.MethodPost, fmt.Sprintf("/boms/%d/versions", approved.ID), gin.H{"version": "2"}, "engineer")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	draft := decode[appmfg.BOMResponse](t, w).Data
	assert.Equal(t, "draft", draft.Status)

	w = a.do(http.MethodPost, fmt.Sprintf("/boms/%d/reject", draft.ID), gin.H{"reason": "wrong wheel"}, "manager")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "drafts are submitted before review")
	testutil.AssertErrorResponse(t, w, dto.ErrCodeInvalidState)

	w = a.do(http.MethodPost, fmt.Sprintf("/boms/%d/submit", draft.ID), nil, "engineer")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, fmt.Sprintf("/boms/%d/reject", draft.ID), gin.H{}, "manager")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)

	w = a.do(http.MethodPost, fmt.Sprintf("/boms/%d/reject", draft.ID), gin.H{"reason": "wrong wheel"}, "manager")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rejected := decode[appmfg.BOMResponse](t, w).Data
	assert.Equal(t, "draft", rejected.Status, "rejected BOMs return to draft for rework")
	assert.Equal(t, "wrong wheel", rejected.RejectionReason)

	w = a.do(http.MethodGet, fmt.Sprintf("/boms?product_id=%d&status=approved", a.bike.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode[[]appmfg.BOMResponse](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, approved.ID, list.Data[0].ID)
	assert.Equal(t, int64(1), list.Meta.Total)
}

func TestBOMHandler_Explode(t *testing.T) {
	a := newAPI(t)
	bom := a.approvedBike()

	w := a.do(http.MethodPost, fmt.Sprintf("/boms/%d/explode", bom.ID), gin.H{"quantity": "3"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reqs := decode[[]appmfg.RequirementResponse](t, w).Data
	require.Len(t, reqs, 2)

	needed := map[int64]decimal.Decimal{}
	for _, r := range reqs {
		needed[r.ProductID] = r.Quantity
	}
	assert.True(t, needed[a.frame.ID].Equal(decimal.NewFromInt(3)))
	assert.True(t, needed[a.wheel.ID].Equal(decimal.NewFromInt(6)))
}

func TestBOMHandler_Errors(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/boms/999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeNotFound)

	w = a.do(http.MethodGet, "/boms/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeBadRequest)

	w = a.do(http.MethodPost, "/boms", gin.H{"product_id": a.bike.ID, "version": "1", "quantity": "0"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)
}
