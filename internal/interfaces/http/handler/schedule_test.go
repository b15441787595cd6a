package handler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	appmfg "github.com/erp/manufacturing/internal/application/manufacturing"
	"github.com/erp/manufacturing/internal/interfaces/http/dto"
	"github.com/erp/manufacturing/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleHandler_ConflictDetection(t *testing.T) {
	a := newAPI(t)
	bom := a.approvedBike()
	order := a.order(bom.ID, 5, "manual")

	w := a.do(http.MethodPost, "/work-centers", gin.H{
		"code": "WELD-1", "name": "Welding", "capacity_per_day": 480,
		"efficiency_percentage": "100", "max_batch_size": "100",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	wc := decode[appmfg.WorkCenterResponse](t, w).Data

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	book := func(fromMin, toMin int) appmfg.ScheduleResponse {
		t.Helper()
		w := a.do(http.MethodPost, "/schedules", gin.H{
			"production_order_id": order.ID,
			"work_center_id":      wc.ID,
			"operation":           "weld",
			"scheduled_start":     day.Add(time.Duration(fromMin) * time.Minute),
			"scheduled_end":       day.Add(time.Duration(toMin) * time.Minute),
			"quantity":            "5",
		}, "planner")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		return decode[appmfg.ScheduleResponse](t, w).Data
	}

	first := book(600, 660)  // 10:00-11:00
	second := book(630, 690) // 10:30-11:30
	third := book(660, 720)  // 11:00-12:00
	assert.False(t, first.HasConflict, "flag is set when the overlapping entry arrives")
	assert.True(t, second.HasConflict)
	assert.True(t, third.HasConflict, "11:00-12:00 overlaps 10:30-11:30")

	w = a.do(http.MethodGet, fmt.Sprintf("/schedules/%d", first.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[appmfg.ScheduleResponse](t, w).Data.HasConflict)

	w = a.do(http.MethodGet, fmt.Sprintf("/work-centers/%d/conflicts", wc.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]appmfg.ScheduleResponse](t, w).Data, 3)

	w = a.do(http.MethodPost, fmt.Sprintf("/schedules/%d/cancel", second.ID), gin.H{"reason": "moved"}, "planner")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodGet, fmt.Sprintf("/work-centers/%d/conflicts", wc.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[[]appmfg.ScheduleResponse](t, w).Data, "touching windows do not overlap")

	w = a.do(http.MethodPut, fmt.Sprintf("/schedules/%d/window", third.ID), gin.H{
		"scheduled_start": day.Add(10*time.Hour + 30*time.Minute),
		"scheduled_end":   day.Add(11*time.Hour + 30*time.Minute),
	}, "planner")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[appmfg.ScheduleResponse](t, w).Data.HasConflict)

	w = a.do(http.MethodGet, fmt.Sprintf("/production-orders/%d/schedules", order.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]appmfg.ScheduleResponse](t, w).Data, 3)
}

func TestScheduleHandler_Validation(t *testing.T) {
	a := newAPI(t)
	bom := a.approvedBike()
	order := a.order(bom.ID, 5, "manual")

	w := a.do(http.MethodPost, "/work-centers", gin.H{"code": "X", "name": "X", "capacity_per_day": 0}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)

	w = a.do(http.MethodPost, "/work-centers", gin.H{
		"code": "PAINT", "name": "Paint", "capacity_per_day": 480, "efficiency_percentage": "90",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	wc := decode[appmfg.WorkCenterResponse](t, w).Data

	start := time.Date(2025, 3, 3, 18, 0, 0, 0, time.UTC)
	w = a.do(http.MethodPost, "/schedules", gin.H{
		"production_order_id": order.ID,
		"work_center_id":      wc.ID,
		"scheduled_start":     start,
		"scheduled_end":       start.Add(-time.Hour),
		"quantity":            "5",
	}, "planner")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)

	w = a.do(http.MethodGet, "/work-centers?active=true", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]appmfg.WorkCenterResponse](t, w).Data, 1)
}
