package handler

import (
	"context"

	appmfg "github.com/erp/manufacturing/internal/application/manufacturing"
	"github.com/gin-gonic/gin"
)

// ScheduleHandler serves work centers and production schedules
type ScheduleHandler struct {
	BaseHandler
	scheduleService *appmfg.ScheduleService
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(scheduleService *appmfg.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// RegisterRoutes mounts the work center and schedule routes on rg
func (h *ScheduleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	wcs := rg.Group("/work-centers")
	wcs.POST("", h.CreateWorkCenter)
	wcs.GET("", h.ListWorkCenters)
	wcs.GET("/:id", h.GetWorkCenter)
	wcs.GET("/:id/conflicts", h.ListConflicts)

	schedules := rg.Group("/schedules")
	schedules.POST("", h.Create)
	schedules.GET("/:id", h.Get)
	schedules.PUT("/:id/window", h.Reschedule)
	schedules.POST("/:id/ready", h.transition(h.scheduleService.MarkReady))
	schedules.POST("/:id/start", h.transition(h.scheduleService.Start))
	schedules.POST("/:id/resume", h.transition(h.scheduleService.Resume))
	schedules.POST("/:id/complete", h.Complete)
	schedules.POST("/:id/hold", h.Hold)
	schedules.POST("/:id/cancel", h.Cancel)

	rg.GET("/production-orders/:id/schedules", h.ListByOrder)
}

// CreateWorkCenter handles POST /work-centers
func (h *ScheduleHandler) CreateWorkCenter(c *gin.Context) {
	var req appmfg.CreateWorkCenterRequest
	if !h.BindJSON(c, &req) {
		return
	}
	wc, err := h.scheduleService.CreateWorkCenter(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, wc)
}

// ListWorkCenters handles GET /work-centers
func (h *ScheduleHandler) ListWorkCenters(c *gin.Context) {
	var filter appmfg.WorkCenterListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	wcs, total, err := h.scheduleService.ListWorkCenters(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, wcs, total, filter.Page, filter.PageSize)
}

// GetWorkCenter handles GET /work-centers/:id
func (h *ScheduleHandler) GetWorkCenter(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	wc, err := h.scheduleService.GetWorkCenter(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, wc)
}

// ListConflicts handles GET /work-centers/:id/conflicts
func (h *ScheduleHandler) ListConflicts(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	h.respondList(c)(h.scheduleService.ListConflicts(c.Request.Context(), id))
}

// Create handles POST /schedules
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req appmfg.CreateScheduleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	s, err := h.scheduleService.Create(c.Request.Context(), req, actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, s)
}

// Get handles GET /schedules/:id
func (h *ScheduleHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.scheduleService.Get(c.Request.Context(), id))
}

// ListByOrder handles GET /production-orders/:id/schedules
func (h *ScheduleHandler) ListByOrder(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	h.respondList(c)(h.scheduleService.ListByOrder(c.Request.Context(), id))
}

// Reschedule handles PUT /schedules/:id/window
func (h *ScheduleHandler) Reschedule(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.RescheduleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.scheduleService.Reschedule(c.Request.Context(), id, req))
}

// Complete handles POST /schedules/:id/complete
func (h *ScheduleHandler) Complete(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.CompleteScheduleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.scheduleService.Complete(c.Request.Context(), id, req, actor(c)))
}

// Hold handles POST /schedules/:id/hold. The body is optional.
func (h *ScheduleHandler) Hold(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.HoldOrderRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.scheduleService.Hold(c.Request.Context(), id, req, actor(c)))
}

// Cancel handles POST /schedules/:id/cancel
func (h *ScheduleHandler) Cancel(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.ReasonRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.scheduleService.Cancel(c.Request.Context(), id, req, actor(c)))
}

type scheduleTransition func(ctx context.Context, id int64, actor string) (*appmfg.ScheduleResponse, error)

func (h *ScheduleHandler) transition(fn scheduleTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.ParamID(c, "id")
		if !ok {
			return
		}
		h.respond(c)(fn(c.Request.Context(), id, actor(c)))
	}
}

func (h *ScheduleHandler) respond(c *gin.Context) func(*appmfg.ScheduleResponse, error) {
	return func(s *appmfg.ScheduleResponse, err error) {
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, s)
	}
}

func (h *ScheduleHandler) respondList(c *gin.Context) func([]appmfg.ScheduleResponse, error) {
	return func(s []appmfg.ScheduleResponse, err error) {
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, s)
	}
}
