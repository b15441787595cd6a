package handler

import (
	appmfg "github.com/erp/manufacturing/internal/application/manufacturing"
	"github.com/gin-gonic/gin"
)

// BOMHandler serves bills of material
type BOMHandler struct {
	BaseHandler
	bomService *appmfg.BOMService
}

// NewBOMHandler creates a new BOMHandler
func NewBOMHandler(bomService *appmfg.BOMService) *BOMHandler {
	return &BOMHandler{bomService: bomService}
}

// RegisterRoutes mounts the BOM routes on rg
func (h *BOMHandler) RegisterRoutes(rg *gin.RouterGroup) {
	boms := rg.Group("/boms")
	boms.POST("", h.Create)
	boms.GET("", h.List)
	boms.GET("/:id", h.Get)
	boms.POST("/:id/items", h.AddItem)
	boms.PUT("/:id/items/:line", h.UpdateItem)
	boms.DELETE("/:id/items/:line", h.RemoveItem)
	boms.POST("/:id/items/:line/move", h.MoveItem)
	boms.PUT("/:id/costs", h.UpdateCosts)
	boms.POST("/:id/recalculate", h.Recalculate)
	boms.POST("/:id/submit", h.Submit)
	boms.POST("/:id/approve", h.Approve)
	boms.POST("/:id/reject", h.Reject)
	boms.POST("/:id/obsolete", h.MarkObsolete)
	boms.POST("/:id/versions", h.NewVersion)
	boms.POST("/:id/explode", h.Explode)
}

// Create handles POST /boms
func (h *BOMHandler) Create(c *gin.Context) {
	var req appmfg.CreateBOMRequest
	if !h.BindJSON(c, &req) {
		return
	}
	bom, err := h.bomService.Create(c.Request.Context(), req, actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, bom)
}

// List handles GET /boms
func (h *BOMHandler) List(c *gin.Context) {
	var filter appmfg.BOMListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	boms, total, err := h.bomService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, boms, total, filter.Page, filter.PageSize)
}

// Get handles GET /boms/:id
func (h *BOMHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.bomService.Get(c.Request.Context(), id))
}

// AddItem handles POST /boms/:id/items
func (h *BOMHandler) AddItem(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.BOMItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.bomService.AddItem(c.Request.Context(), id, req))
}

// UpdateItem handles PUT /boms/:id/items/:line
func (h *BOMHandler) UpdateItem(c *gin.Context) {
	id, line, ok := h.itemPath(c)
	if !ok {
		return
	}
	var req appmfg.BOMItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.bomService.UpdateItem(c.Request.Context(), id, line, req))
}

// RemoveItem handles DELETE /boms/:id/items/:line
func (h *BOMHandler) RemoveItem(c *gin.Context) {
	id, line, ok := h.itemPath(c)
	if !ok {
		return
	}
	h.respond(c)(h.bomService.RemoveItem(c.Request.Context(), id, line))
}

// MoveItem handles POST /boms/:id/items/:line/move
func (h *BOMHandler) MoveItem(c *gin.Context) {
	id, line, ok := h.itemPath(c)
	if !ok {
		return
	}
	var req appmfg.MoveBOMItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.bomService.MoveItem(c.Request.Context(), id, line, req))
}

// UpdateCosts handles PUT /boms/:id/costs
func (h *BOMHandler) UpdateCosts(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.UpdateBOMCostsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.bomService.UpdateCosts(c.Request.Context(), id, req))
}

// Recalculate handles POST /boms/:id/recalculate
func (h *BOMHandler) Recalculate(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.bomService.Recalculate(c.Request.Context(), id))
}

// Submit handles POST /boms/:id/submit
func (h *BOMHandler) Submit(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.bomService.Submit(c.Request.Context(), id, actor(c)))
}

// Approve handles POST /boms/:id/approve
func (h *BOMHandler) Approve(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.bomService.Approve(c.Request.Context(), id, actor(c)))
}

// Reject handles POST /boms/:id/reject
func (h *BOMHandler) Reject(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.ReasonRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.bomService.Reject(c.Request.Context(), id, req, actor(c)))
}

// MarkObsolete handles POST /boms/:id/obsolete
func (h *BOMHandler) MarkObsolete(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.bomService.MarkObsolete(c.Request.Context(), id, actor(c)))
}

// NewVersion handles POST /boms/:id/versions
func (h *BOMHandler) NewVersion(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.NewBOMVersionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	bom, err := h.bomService.NewVersion(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, bom)
}

// Explode handles POST /boms/:id/explode
func (h *BOMHandler) Explode(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.ExplodeBOMRequest
	if !h.BindJSON(c, &req) {
		return
	}
	reqs, err := h.bomService.Explode(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, reqs)
}

func (h *BOMHandler) itemPath(c *gin.Context) (int64, int, bool) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return 0, 0, false
	}
	line, ok := h.ParamID(c, "line")
	if !ok {
		return 0, 0, false
	}
	return id, int(line), true
}

func (h *BOMHandler) respond(c *gin.Context) func(*appmfg.BOMResponse, error) {
	return func(bom *appmfg.BOMResponse, err error) {
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, bom)
	}
}
