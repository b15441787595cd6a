package handler

import (
	"context"

	appmfg "github.com/erp/manufacturing/internal/application/manufacturing"
	"github.com/gin-gonic/gin"
)

// ProductionOrderHandler serves production orders
type ProductionOrderHandler struct {
	BaseHandler
	orderService *appmfg.ProductionOrderService
}

// NewProductionOrderHandler creates a new ProductionOrderHandler
func NewProductionOrderHandler(orderService *appmfg.ProductionOrderService) *ProductionOrderHandler {
	return &ProductionOrderHandler{orderService: orderService}
}

// RegisterRoutes mounts the order routes on rg
func (h *ProductionOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/production-orders")
	orders.POST("", h.Create)
	orders.GET("", h.List)
	orders.GET("/:id", h.Get)
	orders.POST("/:id/plan", h.transition(h.orderService.Plan))
	orders.POST("/:id/release", h.transition(h.orderService.Release))
	orders.POST("/:id/reserve", h.transition(h.orderService.ReserveMaterials))
	orders.POST("/:id/start", h.transition(h.orderService.Start))
	orders.POST("/:id/resume", h.transition(h.orderService.Resume))
	orders.POST("/:id/complete", h.Complete)
	orders.POST("/:id/cancel", h.Cancel)
	orders.POST("/:id/hold", h.Hold)
}

// Create handles POST /production-orders
func (h *ProductionOrderHandler) Create(c *gin.Context) {
	var req appmfg.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.orderService.Create(c.Request.Context(), req, actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, order)
}

// List handles GET /production-orders
func (h *ProductionOrderHandler) List(c *gin.Context) {
	var filter appmfg.OrderListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// Get handles GET /production-orders/:id
func (h *ProductionOrderHandler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.orderService.Get(c.Request.Context(), id))
}

// Complete handles POST /production-orders/:id/complete
func (h *ProductionOrderHandler) Complete(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.CompleteOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.orderService.Complete(c.Request.Context(), id, req, actor(c)))
}

// Cancel handles POST /production-orders/:id/cancel
func (h *ProductionOrderHandler) Cancel(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.ReasonRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.orderService.Cancel(c.Request.Context(), id, req, actor(c)))
}

// Hold handles POST /production-orders/:id/hold. The body is optional.
func (h *ProductionOrderHandler) Hold(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req appmfg.HoldOrderRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.orderService.Hold(c.Request.Context(), id, req, actor(c)))
}

type orderTransition func(ctx context.Context, id int64, actor string) (*appmfg.OrderResponse, error)

// transition serves the body-less lifecycle endpoints
func (h *ProductionOrderHandler) transition(fn orderTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.ParamID(c, "id")
		if !ok {
			return
		}
		h.respond(c)(fn(c.Request.Context(), id, actor(c)))
	}
}

// respond answers with the order. A shortage during release or reservation
// still carries the order, which records the failure.
func (h *ProductionOrderHandler) respond(c *gin.Context) func(*appmfg.OrderResponse, error) {
	return func(order *appmfg.OrderResponse, err error) {
		switch {
		case err != nil && order != nil:
			h.HandleDomainErrorWithData(c, err, order)
		case err != nil:
			h.HandleDomainError(c, err)
		default:
			h.Success(c, order)
		}
	}
}
