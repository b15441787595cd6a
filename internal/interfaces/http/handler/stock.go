package handler

import (
	appinv "github.com/erp/manufacturing/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// StockHandler serves the stock ledger
type StockHandler struct {
	BaseHandler
	ledger *appinv.StockLedgerService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(ledger *appinv.StockLedgerService) *StockHandler {
	return &StockHandler{ledger: ledger}
}

// RegisterRoutes mounts the ledger routes on rg
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stock := rg.Group("/stock")
	stock.POST("/reservations", h.Reserve)
	stock.GET("/reservations/:handle", h.GetReservation)
	stock.DELETE("/reservations/:handle", h.Release)
	stock.POST("/issues", h.Issue)
	stock.POST("/receipts", h.Receive)
	stock.POST("/adjustments", h.Adjust)
	stock.POST("/transfers", h.Transfer)
	stock.GET("/balances", h.ListBalances)
	stock.GET("/balances/:product_id/:warehouse_id", h.GetBalance)
	stock.GET("/movements/:product_id/:warehouse_id", h.ListMovements)
}

// ReleaseResponse reports how much a released reservation still held
type ReleaseResponse struct {
	Handle   string          `json:"handle"`
	Released decimal.Decimal `json:"released"`
}

type balanceQuery struct {
	ProductID int64 `form:"product_id" binding:"required,min=1"`
}

// Reserve handles POST /stock/reservations
func (h *StockHandler) Reserve(c *gin.Context) {
	var req appinv.ReserveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.ledger.Reserve(c.Request.Context(), req, actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, res)
}

// GetReservation handles GET /stock/reservations/:handle
func (h *StockHandler) GetReservation(c *gin.Context) {
	handle, ok := h.ParamUUID(c, "handle")
	if !ok {
		return
	}
	res, err := h.ledger.GetReservation(c.Request.Context(), handle)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, res)
}

// Release handles DELETE /stock/reservations/:handle. Releasing an already
// released or consumed reservation answers 0.
func (h *StockHandler) Release(c *gin.Context) {
	handle, ok := h.ParamUUID(c, "handle")
	if !ok {
		return
	}
	released, err := h.ledger.Release(c.Request.Context(), handle, actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, ReleaseResponse{Handle: handle.String(), Released: released})
}

// Issue handles POST /stock/issues
func (h *StockHandler) Issue(c *gin.Context) {
	var req appinv.IssueStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	movements, err := h.ledger.Issue(c.Request.Context(), req, actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, movements)
}

// Receive handles POST /stock/receipts
func (h *StockHandler) Receive(c *gin.Context) {
	var req appinv.ReceiveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	movements, err := h.ledger.Receive(c.Request.Context(), req, actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, movements)
}

// Adjust handles POST /stock/adjustments
func (h *StockHandler) Adjust(c *gin.Context) {
	var req appinv.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	movement, err := h.ledger.Adjust(c.Request.Context(), req, actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, movement)
}

// Transfer handles POST /stock/transfers
func (h *StockHandler) Transfer(c *gin.Context) {
	var req appinv.TransferStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	movements, err := h.ledger.Transfer(c.Request.Context(), req, actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, movements)
}

// ListBalances handles GET /stock/balances?product_id=
func (h *StockHandler) ListBalances(c *gin.Context) {
	var q balanceQuery
	if !h.BindQuery(c, &q) {
		return
	}
	balances, err := h.ledger.ListBalances(c.Request.Context(), q.ProductID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, balances)
}

// GetBalance handles GET /stock/balances/:product_id/:warehouse_id
func (h *StockHandler) GetBalance(c *gin.Context) {
	productID, warehouseID, ok := h.balancePath(c)
	if !ok {
		return
	}
	balance, err := h.ledger.GetBalance(c.Request.Context(), productID, warehouseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, balance)
}

// ListMovements handles GET /stock/movements/:product_id/:warehouse_id
func (h *StockHandler) ListMovements(c *gin.Context) {
	productID, warehouseID, ok := h.balancePath(c)
	if !ok {
		return
	}
	var filter appinv.MovementListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	movements, total, err := h.ledger.ListMovements(c.Request.Context(), productID, warehouseID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, movements, total, filter.Page, filter.PageSize)
}

func (h *StockHandler) balancePath(c *gin.Context) (int64, int64, bool) {
	productID, ok := h.ParamID(c, "product_id")
	if !ok {
		return 0, 0, false
	}
	warehouseID, ok := h.ParamID(c, "warehouse_id")
	if !ok {
		return 0, 0, false
	}
	return productID, warehouseID, true
}
