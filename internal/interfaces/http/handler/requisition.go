package handler

import (
	"context"

	appmfg "github.com/erp/manufacturing/internal/application/manufacturing"
	"github.com/gin-gonic/gin"
)

// RequisitionHandler serves material requisitions
type RequisitionHandler struct {
	BaseHandler
	requisitionService *appmfg.RequisitionService
}

// NewRequisitionHandler creates a new RequisitionHandler
func NewRequisitionHandler(requisitionService *appmfg.RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{requisitionService: requisitionService}
}

// RegisterRoutes mounts the requisition routes on rg
func (h *RequisitionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reqs := rg.Group("/requisitions")
	reqs.POST("", h.Create)
	reqs.GET("/:id", h.Get)
	reqs.POST("/:id/submit", h.transition(h.requisitionService.Submit))
	reqs.POST("/:id/approve", h.transition(h.requisitionService.Approve))
	reqs.POST("/:id/complete", h.transition(h.requisitionService.Complete))
	reqs.POST("/:id/cancel", h.Cancel)
	reqs.POST("/:id/items/:item_id/picks", h.Pick)
	reqs.DELETE("/:id/items/:item_id/picks/:pick_id", h.ReturnPick)
	reqs.POST("/:id/items/:item_id/issue", h.itemAction(h.requisitionService.Issue))
	reqs.POST("/:id/items/:item_id/short-close", h.itemAction(h.requisitionService.ShortClose))

	rg.GET("/production-orders/:id/requisitions", h.ListByOrder)
}

// Create handles POST /requisitions
func (h *RequisitionHandler) Create(c *gin.Context) {
	var req appmfg.CreateRequisitionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	r, err := h.requisitionService.Create(c.Request.Context(), req, actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, r)
}

// Get handles GET /requisitions/:id
func (h *RequisitionHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.requisitionService.Get(c.Request.Context(), id))
}

// ListByOrder handles GET /production-orders/:id/requisitions
func (h *RequisitionHandler) ListByOrder(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	reqs, err := h.requisitionService.ListByOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, reqs)
}

// Cancel handles POST /requisitions/:id/cancel
func (h *RequisitionHandler) Cancel(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.ReasonRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.requisitionService.Cancel(c.Request.Context(), id, req, actor(c)))
}

// Pick handles POST /requisitions/:id/items/:item_id/picks
func (h *RequisitionHandler) Pick(c *gin.Context) {
	id, itemID, ok := h.itemPath(c)
	if !ok {
		return
	}
	var req appmfg.PickRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.requisitionService.Pick(c.Request.Context(), id, itemID, req, actor(c)))
}

// ReturnPick handles DELETE /requisitions/:id/items/:item_id/picks/:pick_id
func (h *RequisitionHandler) ReturnPick(c *gin.Context) {
	id, itemID, ok := h.itemPath(c)
	if !ok {
		return
	}
	pickID, ok := h.ParamID(c, "pick_id")
	if !ok {
		return
	}
	h.respond(c)(h.requisitionService.ReturnPick(c.Request.Context(), id, itemID, pickID, actor(c)))
}

type requisitionTransition func(ctx context.Context, id int64, actor string) (*appmfg.RequisitionResponse, error)

func (h *RequisitionHandler) transition(fn requisitionTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.ParamID(c, "id")
		if !ok {
			return
		}
		h.respond(c)(fn(c.Request.Context(), id, actor(c)))
	}
}

type requisitionItemAction func(ctx context.Context, id, itemID int64, actor string) (*appmfg.RequisitionResponse, error)

func (h *RequisitionHandler) itemAction(fn requisitionItemAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, itemID, ok := h.itemPath(c)
		if !ok {
			return
		}
		h.respond(c)(fn(c.Request.Context(), id, itemID, actor(c)))
	}
}

func (h *RequisitionHandler) itemPath(c *gin.Context) (int64, int64, bool) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return 0, 0, false
	}
	itemID, ok := h.ParamID(c, "item_id")
	if !ok {
		return 0, 0, false
	}
	return id, itemID, true
}

func (h *RequisitionHandler) respond(c *gin.Context) func(*appmfg.RequisitionResponse, error) {
	return func(r *appmfg.RequisitionResponse, err error) {
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, r)
	}
}
